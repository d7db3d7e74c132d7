package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cppreflect/internal/model"
)

const cppSource = `#include <vector>
#include "local.h"
#define VERSION 3
#define SQUARE(x) ((x) * (x))

namespace geo {

struct Point {
  double x;
  double y = 0;
  double norm() const;
};

class Shape {
public:
  virtual ~Shape();
  virtual double area() const = 0;
protected:
  int id;
private:
  static int count;
};

class Circle : public Shape {
public:
  explicit Circle(double r);
  double area() const override;
private:
  double r_;
};

enum class Color : int { Red, Green = 2 };
enum Mode { Fast, Slow };

double dist(const Point& a, const Point& b = Point());

template <typename T, int N = 4>
struct Buffer {
  T data[N];
};

using Id = int;

} // namespace geo

namespace a::b {
int v;
}

double geo::Point::norm() const { return 0; }

typedef struct { int a; } Pair;
int counter = 0;

#if VERSION >= 3
int modern();
#else
int legacy();
#endif

#ifdef DEBUG
void trace();
#endif
`

func extractCPP(t *testing.T, src string, macros Macros) *model.Model {
	t.Helper()
	m, bag, err := Extract(context.Background(), []byte(src), Options{
		Path:     "/p/a.cpp",
		Language: LangCPP,
		Standard: "c++17",
		Macros:   macros,
	})
	require.NoError(t, err)
	require.False(t, bag.HasErrors(), bag.Summary())
	return m
}

func mustDecl(t *testing.T, m *model.Model, qn string) *model.Decl {
	t.Helper()
	d, ok := m.Lookup(qn)
	require.True(t, ok, "declaration %s not found", qn)
	return d
}

func TestExtract_CPP_Records(t *testing.T) {
	t.Parallel()
	m := extractCPP(t, cppSource, nil)

	ns := mustDecl(t, m, "geo")
	assert.Equal(t, model.KindNamespace, ns.Kind)

	pt := mustDecl(t, m, "geo::Point")
	assert.Equal(t, model.KindStruct, pt.Kind)
	assert.Same(t, ns, pt.Parent)

	x := mustDecl(t, m, "geo::Point::x")
	assert.Equal(t, model.KindField, x.Kind)
	assert.Equal(t, "double", x.Type)
	assert.Equal(t, "public", x.Visibility)
	assert.Equal(t, "0", mustDecl(t, m, "geo::Point::y").Value)

	norm := mustDecl(t, m, "geo::Point::norm")
	assert.Equal(t, model.KindMethod, norm.Kind)
	assert.True(t, norm.HasModifier("const"))
	assert.True(t, norm.HasModifier("defined"), "out-of-line definition marks the declaration")
	assert.Len(t, m.LookupAll("geo::Point::norm"), 1)

	shape := mustDecl(t, m, "geo::Shape")
	assert.Equal(t, model.KindClass, shape.Kind)
	assert.Equal(t, model.KindDestructor, mustDecl(t, m, "geo::Shape::~Shape").Kind)
	area := mustDecl(t, m, "geo::Shape::area")
	assert.True(t, area.HasModifier("virtual"))
	assert.True(t, area.HasModifier("pure"))
	assert.Equal(t, "protected", mustDecl(t, m, "geo::Shape::id").Visibility)
	count := mustDecl(t, m, "geo::Shape::count")
	assert.Equal(t, "private", count.Visibility)
	assert.True(t, count.HasModifier("static"))

	circle := mustDecl(t, m, "geo::Circle")
	require.Len(t, circle.Bases, 1)
	assert.Equal(t, "Shape", circle.Bases[0].Name)
	assert.Equal(t, "public", circle.Bases[0].Access)
	ctor := mustDecl(t, m, "geo::Circle::Circle")
	assert.Equal(t, model.KindConstructor, ctor.Kind)
	assert.True(t, ctor.HasModifier("explicit"))
	require.Len(t, ctor.Params, 1)
	assert.Equal(t, "r", ctor.Params[0].Name)
	assert.True(t, mustDecl(t, m, "geo::Circle::area").HasModifier("override"))
	assert.Equal(t, "private", mustDecl(t, m, "geo::Circle::r_").Visibility)
}

func TestExtract_CPP_EnumsFunctionsTemplates(t *testing.T) {
	t.Parallel()
	m := extractCPP(t, cppSource, nil)

	color := mustDecl(t, m, "geo::Color")
	assert.Equal(t, model.KindEnum, color.Kind)
	assert.True(t, color.HasModifier("scoped"))
	green := mustDecl(t, m, "geo::Color::Green")
	assert.Equal(t, model.KindEnumerator, green.Kind)
	assert.Equal(t, "2", green.Value)
	assert.Same(t, color, green.Parent)

	// Unscoped enumerators live in the enclosing scope.
	fast := mustDecl(t, m, "geo::Fast")
	assert.Equal(t, "geo::Mode", fast.Parent.QualifiedName)

	dist := mustDecl(t, m, "geo::dist")
	assert.Equal(t, model.KindFunction, dist.Kind)
	assert.Equal(t, "double", dist.Type)
	require.Len(t, dist.Params, 2)
	assert.Equal(t, "a", dist.Params[0].Name)
	assert.Equal(t, "const Point&", dist.Params[0].Type)
	assert.Equal(t, 1, dist.Params[1].Ordinal)
	assert.Equal(t, "Point()", dist.Params[1].Default)

	buf := mustDecl(t, m, "geo::Buffer")
	require.Len(t, buf.TypeParams, 2)
	assert.Equal(t, "T", buf.TypeParams[0].Name)
	assert.Equal(t, "type", buf.TypeParams[0].Kind)
	assert.Equal(t, "N", buf.TypeParams[1].Name)
	assert.Equal(t, "value", buf.TypeParams[1].Kind)
	assert.Equal(t, "4", buf.TypeParams[1].Default)
	data := mustDecl(t, m, "geo::Buffer::data")
	assert.Equal(t, "T[N]", data.Type)
	assert.Empty(t, data.TypeParams)

	id := mustDecl(t, m, "geo::Id")
	assert.Equal(t, model.KindAlias, id.Kind)
	assert.Equal(t, "int", id.Type)

	assert.Equal(t, model.KindVariable, mustDecl(t, m, "a::b::v").Kind)
	mustDecl(t, m, "a::b")

	pair := mustDecl(t, m, "Pair")
	assert.Equal(t, model.KindStruct, pair.Kind)
	mustDecl(t, m, "Pair::a")
	assert.Empty(t, m.DeclsByKind(model.KindTypedef), "typedef naming an anonymous struct is folded into it")

	counter := mustDecl(t, m, "counter")
	assert.Equal(t, "int", counter.Type)
	assert.Equal(t, "0", counter.Value)

	for _, d := range m.All() {
		assert.NotEmpty(t, d.SignatureHash, d.QualifiedName)
		assert.Positive(t, d.Range.Start.Line, d.QualifiedName)
	}
}

func TestExtract_Preprocessor(t *testing.T) {
	t.Parallel()
	m := extractCPP(t, cppSource, nil)

	require.Len(t, m.Includes, 2)
	assert.Equal(t, "vector", m.Includes[0].Path)
	assert.True(t, m.Includes[0].System)
	assert.Equal(t, "local.h", m.Includes[1].Path)
	assert.False(t, m.Includes[1].System)

	ver, ok := m.Macro("VERSION")
	require.True(t, ok)
	assert.Equal(t, "3", ver.Value)
	assert.Equal(t, model.OriginSource, ver.Origin)
	sq, ok := m.Macro("SQUARE")
	require.True(t, ok)
	assert.True(t, sq.FunctionLike)
	assert.Equal(t, []string{"x"}, sq.Params)

	mustDecl(t, m, "modern")
	_, ok = m.Lookup("legacy")
	assert.False(t, ok, "inactive #else branch")
	_, ok = m.Lookup("trace")
	assert.False(t, ok, "DEBUG is not defined")

	debug := macroMap{"DEBUG": "1"}
	m = extractCPP(t, cppSource, debug)
	mustDecl(t, m, "trace")
}

func TestExtract_UndefAndNestedConditions(t *testing.T) {
	t.Parallel()
	src := `#define A 1
#undef A
#ifndef A
int no_a();
#endif
#if defined(B) && B > 2
int big_b();
#elif defined(B)
int small_b();
#else
int no_b();
#endif
`
	m := extractCPP(t, src, macroMap{"B": "2"})
	mustDecl(t, m, "no_a")
	mustDecl(t, m, "small_b")
	_, ok := m.Lookup("big_b")
	assert.False(t, ok)
	_, ok = m.Lookup("no_b")
	assert.False(t, ok)
	_, ok = m.Macro("A")
	assert.False(t, ok)
}

func TestExtract_C(t *testing.T) {
	t.Parallel()
	src := `#ifndef NODE_H
#define NODE_H
struct node {
  int v;
  struct node *next;
};
int add(int a, int b);
int vsum(int n, ...);
int noargs(void);
static const char *name = "n";
#endif
`
	m, bag, err := Extract(context.Background(), []byte(src), Options{Path: "/p/node.h", Language: LangC, Standard: "c17"})
	require.NoError(t, err)
	require.False(t, bag.HasErrors(), bag.Summary())

	node := mustDecl(t, m, "node")
	assert.Equal(t, model.KindStruct, node.Kind)
	assert.Equal(t, "struct node*", mustDecl(t, m, "node::next").Type)

	add := mustDecl(t, m, "add")
	require.Len(t, add.Params, 2)
	assert.Equal(t, "int", add.Params[1].Type)

	vsum := mustDecl(t, m, "vsum")
	require.Len(t, vsum.Params, 2)
	assert.True(t, vsum.Params[1].Variadic)

	assert.Empty(t, mustDecl(t, m, "noargs").Params)

	name := mustDecl(t, m, "name")
	assert.Equal(t, "char*", name.Type)
	assert.True(t, name.HasModifier("static"))
	assert.True(t, name.HasModifier("const"))
}

func TestExtract_ZeroInitializedFields(t *testing.T) {
	t.Parallel()
	m := extractCPP(t, `struct Counter {
  int count = 0;
  double ratio = 0;
  unsigned limit = 8;
  virtual void reset() = 0;
};
`, nil)

	for _, qn := range []string{"Counter::count", "Counter::ratio"} {
		d := mustDecl(t, m, qn)
		assert.Equal(t, model.KindField, d.Kind, qn)
		assert.Equal(t, "0", d.Value, qn)
		assert.False(t, d.HasModifier("pure"), qn)
		assert.False(t, d.HasModifier("defined"), qn)
	}
	assert.Equal(t, "int", mustDecl(t, m, "Counter::count").Type)
	assert.Equal(t, "8", mustDecl(t, m, "Counter::limit").Value)

	reset := mustDecl(t, m, "Counter::reset")
	assert.Equal(t, model.KindMethod, reset.Kind)
	assert.True(t, reset.HasModifier("pure"))

	fields := 0
	for _, c := range mustDecl(t, m, "Counter").Children {
		if c.Kind == model.KindField {
			fields++
		}
	}
	assert.Equal(t, 3, fields)
}

func TestExtract_VariadicParams(t *testing.T) {
	t.Parallel()
	m := extractCPP(t, `int f(int a, ...);
int g(...);
template <typename... Ts> void h(Ts... rest);
`, nil)

	f := mustDecl(t, m, "f")
	require.Len(t, f.Params, 2)
	assert.Equal(t, "a", f.Params[0].Name)
	assert.False(t, f.Params[0].Variadic)
	assert.Equal(t, "...", f.Params[1].Type)
	assert.True(t, f.Params[1].Variadic)
	assert.Equal(t, 1, f.Params[1].Ordinal)

	g := mustDecl(t, m, "g")
	require.Len(t, g.Params, 1)
	assert.True(t, g.Params[0].Variadic)

	h := mustDecl(t, m, "h")
	require.Len(t, h.Params, 1)
	assert.Equal(t, "rest", h.Params[0].Name)
	assert.True(t, h.Params[0].Variadic)
}

func TestExtract_SyntaxErrorsAreDiagnostics(t *testing.T) {
	t.Parallel()
	m, bag, err := Extract(context.Background(), []byte("int x = ;\nstruct S { int a\n"), Options{
		Path:     "/p/bad.cpp",
		Language: LangCPP,
	})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, bag.HasErrors())
	assert.Positive(t, bag.Items()[0].Line)
}

func TestExtract_UnsupportedLanguage(t *testing.T) {
	t.Parallel()
	_, _, err := Extract(context.Background(), []byte("x"), Options{Language: "fortran"})
	assert.Error(t, err)
}

func TestLanguageForFile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"a.c", LangC, true},
		{"a.h", LangC, true},
		{"a.CPP", LangCPP, true},
		{"a.hpp", LangCPP, true},
		{"a.go", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageForFile(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestParseInt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"42", 42},
		{"201703L", 201703},
		{"0x10", 16},
		{"010", 8},
		{"1'000", 1000},
		{"7u", 7},
	}
	for _, tt := range tests {
		got, ok := parseInt(tt.in)
		assert.True(t, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, ok := parseInt("abc")
	assert.False(t, ok)
}
