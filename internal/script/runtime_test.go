package script

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cppreflect/internal/extract"
	"github.com/jward/cppreflect/internal/model"
)

const shopSource = `#include <string>
#define LIMIT 8
#define CLAMP(v) ((v) > LIMIT ? LIMIT : (v))

namespace shop {

struct Item {
  int id;
  double price;
};

class Cart : public Item {
public:
  int add(int id, int qty);
  int add(const Item& item);
private:
  int count;
};

}
`

// extractShop builds the model scripts run against.
func extractShop(t *testing.T) *model.Model {
	t.Helper()
	m, _, err := extract.Extract(context.Background(), []byte(shopSource), extract.Options{
		Path:     "/p/shop.cpp",
		Language: extract.LangCPP,
		Standard: "c++17",
	})
	require.NoError(t, err)
	return m
}

func TestRunSource_Unit(t *testing.T) {
	t.Parallel()
	rt := New(WithOutput(&bytes.Buffer{}))

	script := `
assert(unit["path"] == "/p/shop.cpp", 'path was {unit["path"]}')
assert(unit["language"] == "cpp")
assert(unit["standard"] == "c++17")
assert(unit["decl_count"] == len(decls()))
`
	require.NoError(t, rt.RunSource(context.Background(), extractShop(t), script, nil))
}

func TestRunSource_DeclsAndLookup(t *testing.T) {
	t.Parallel()
	rt := New(WithOutput(&bytes.Buffer{}))

	script := `
ds := decls()
assert(ds[0]["qualified_name"] == "shop", "pre-order starts at the namespace")
assert(len(decls("struct")) == 1)
assert(len(decls("method")) == 2)

cart := lookup("shop::Cart")
assert(cart["kind"] == "class")
assert(cart["start_line"] == 12, 'start_line was {cart["start_line"]}')
assert(cart["template"] == false)
assert(lookup("shop::Missing") == nil)

adds := lookup_all("shop::Cart::add")
assert(len(adds) == 2)
assert(adds[0]["signature_hash"] != adds[1]["signature_hash"])
`
	require.NoError(t, rt.RunSource(context.Background(), extractShop(t), script, nil))
}

func TestRunSource_Relations(t *testing.T) {
	t.Parallel()
	rt := New(WithOutput(&bytes.Buffer{}))

	script := `
cart := lookup("shop::Cart")

names := []
for _, c := range children(cart["id"]) {
    names.append(c["name"])
}
assert(strings.join(names, ",") == "add,add,count", 'children were {names}')

b := bases(cart["id"])
assert(len(b) == 1)
assert(b[0]["name"] == "Item")
assert(b[0]["access"] == "public")
assert(b[0]["virtual"] == false)

p := params(lookup_all("shop::Cart::add")[0]["id"])
assert(len(p) == 2)
assert(p[1]["name"] == "qty")
assert(p[1]["type"] == "int")
assert(p[1]["ordinal"] == 1)

count := lookup("shop::Cart::count")
assert(count["visibility"] == "private")
assert(decl(count["parent_id"])["qualified_name"] == "shop::Cart")
assert(decl(cart["id"])["parent_id"] == lookup("shop")["id"])
assert(lookup("shop")["parent_id"] == nil)
assert(len(type_params(cart["id"])) == 0)
`
	require.NoError(t, rt.RunSource(context.Background(), extractShop(t), script, nil))
}

func TestRunSource_MacrosAndIncludes(t *testing.T) {
	t.Parallel()
	rt := New(WithOutput(&bytes.Buffer{}))

	script := `
limit := macro("LIMIT")
assert(limit["value"] == "8")
assert(limit["origin"] == "source")
assert(limit["function_like"] == false)
assert(limit["line"] == 2)

clamp := macro("CLAMP")
assert(clamp["function_like"])
assert(clamp["params"][0] == "v")

assert(macro("UNDEFINED_THING") == nil)
assert(len(macros("source")) == 2)
assert(len(macros("builtin")) == 0)

inc := includes()
assert(len(inc) == 1)
assert(inc[0]["path"] == "string")
assert(inc[0]["system"])
`
	require.NoError(t, rt.RunSource(context.Background(), extractShop(t), script, nil))
}

func TestRunSource_HostFunctionErrors(t *testing.T) {
	t.Parallel()
	m := extractShop(t)

	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"unknown id", `children(99999)`, "no declaration with id 99999"},
		{"id type", `params("x")`, "expected int"},
		{"decls arity", `decls("a", "b")`, "decls"},
		{"lookup arity", `lookup()`, "lookup"},
		{"includes arity", `includes(1)`, "includes"},
		{"failed assert", `assert(false, "boom")`, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := New(WithOutput(&bytes.Buffer{}))
			err := rt.RunSource(context.Background(), m, tt.script, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "script: <inline>")
		})
	}
}

func TestRunSource_NoModel(t *testing.T) {
	t.Parallel()
	err := New().RunSource(context.Background(), nil, `x := 1`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model")
}

func TestRunSource_Emit(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	rt := New(WithOutput(&out))

	script := `
emit("records", len(decls("struct")) + len(decls("class")))
emit()
emit(unit["standard"])
`
	require.NoError(t, rt.RunSource(context.Background(), extractShop(t), script, nil))
	assert.Equal(t, "records 2\n\nc++17\n", out.String())
}

func TestRunSource_Log(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	rt := New(WithOutput(&bytes.Buffer{}), WithLogOutput(&logs))

	script := `
log.Info("starting")
log.Warn("odd")
log.Error("bad")
`
	require.NoError(t, rt.RunSource(context.Background(), extractShop(t), script, nil))
	assert.Equal(t, "[cppreflect] INFO: starting\n[cppreflect] WARN: odd\n[cppreflect] ERROR: bad\n", logs.String())
}

func TestRunSource_ExtraGlobals(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	rt := New(WithOutput(&out))

	script := `emit(prefix + unit["language"])`
	err := rt.RunSource(context.Background(), extractShop(t), script, map[string]any{"prefix": "lang="})
	require.NoError(t, err)
	assert.Equal(t, "lang=cpp\n", out.String())
}

func TestRun_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "count.risor"), []byte(`emit(len(decls("field")))`), 0o644))

	var out bytes.Buffer
	rt := New(WithDir(dir), WithOutput(&out))
	require.NoError(t, rt.Run(context.Background(), extractShop(t), "count", nil))
	assert.Equal(t, "3\n", out.String())
}

func TestRun_MissingFile(t *testing.T) {
	rt := New(WithDir(t.TempDir()))
	err := rt.Run(context.Background(), extractShop(t), "nonexistent.risor", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script: loading")
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `x := 42`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(content), 0o644))

	rt := New(WithDir(dir))
	for _, name := range []string{"test.risor", "test", filepath.Join(dir, "test.risor")} {
		got, err := rt.LoadScript(name)
		require.NoError(t, err, name)
		assert.Equal(t, content, got)
	}
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()

	content := `y := 99`
	rt := New(WithFS(fstest.MapFS{
		"gen/headers.risor": &fstest.MapFile{Data: []byte(content)},
	}))

	got, err := rt.LoadScript("gen/headers.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	got, err = rt.LoadScript("/gen/headers")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = rt.LoadScript("missing.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestScripts(t *testing.T) {
	t.Parallel()

	rt := New(WithFS(fstest.MapFS{
		"b.risor":     &fstest.MapFile{Data: []byte(`x := 1`)},
		"a.risor":     &fstest.MapFile{Data: []byte(`x := 1`)},
		"README.md":   &fstest.MapFile{Data: []byte(`docs`)},
		"sub/c.risor": &fstest.MapFile{Data: []byte(`x := 1`)},
	}))
	names, err := rt.Scripts()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.risor", "b.risor"}, names)

	names, err = New().Scripts()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestImport_FSImporter(t *testing.T) {
	// FSImporter resolves "naming" by trying name + ".risor" at the FS root.
	rt := New(WithOutput(&bytes.Buffer{}), WithFS(fstest.MapFS{
		"naming.risor": &fstest.MapFile{Data: []byte(`
func tagged(d) {
	return d["kind"] + ":" + d["name"]
}
`)},
	}))

	script := `
import naming

got := naming.tagged(lookup("shop::Item"))
assert(got == "struct:Item", 'expected struct:Item, got ' + got)
`
	require.NoError(t, rt.RunSource(context.Background(), extractShop(t), script, nil))
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0o644))

	rt := New(WithDir(dir), WithOutput(&bytes.Buffer{}))

	script := `
import math_utils

result := math_utils.double(len(decls("field")))
assert(result == 6, 'expected 6, got {result}')
`
	require.NoError(t, rt.RunSource(context.Background(), extractShop(t), script, nil))
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	var logs bytes.Buffer
	rt := New(WithOutput(&bytes.Buffer{}), WithLogOutput(&logs), WithFS(fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func report() {
	log.Info(unit["path"])
}
`)},
	}))

	script := `
import helper
helper.report()
`
	require.NoError(t, rt.RunSource(context.Background(), extractShop(t), script, nil))
	assert.Contains(t, logs.String(), "/p/shop.cpp")
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	rt := New()
	assert.Equal(t, os.Stdout, rt.out)
	assert.Equal(t, os.Stderr, rt.logOut)
	assert.Nil(t, rt.fsys)
	assert.Empty(t, rt.scriptsDir)
}
