// Package model is the in-memory semantic model of one translation unit:
// its declarations (as a tree with flat indexes), macros and includes.
//
// A Model is built by a single goroutine (extraction or snapshot loading)
// and is read-only once handed out, so concurrent readers need no locking.
package model

// Declaration kinds.
const (
	KindNamespace   = "namespace"
	KindClass       = "class"
	KindStruct      = "struct"
	KindUnion       = "union"
	KindEnum        = "enum"
	KindEnumerator  = "enumerator"
	KindFunction    = "function"
	KindMethod      = "method"
	KindConstructor = "constructor"
	KindDestructor  = "destructor"
	KindField       = "field"
	KindVariable    = "variable"
	KindTypedef     = "typedef"
	KindAlias       = "alias"
)

// Macro origins.
const (
	OriginBuiltin     = "builtin"
	OriginCommandLine = "command-line"
	OriginSource      = "source"
)

type Position struct {
	Line int
	Col  int
}

type Range struct {
	Start Position
	End   Position
}

type Decl struct {
	ID            int64
	Name          string
	QualifiedName string
	Kind          string
	Visibility    string
	Modifiers     []string
	Type          string // return type, field/variable type, or aliased type
	Value         string // enumerator value or initializer
	SignatureHash string
	Range         Range

	Params     []*Param
	TypeParams []*TypeParam
	Bases      []*Base

	Parent   *Decl
	Children []*Decl
}

type Param struct {
	Name     string
	Ordinal  int
	Type     string
	Default  string
	Variadic bool
}

type TypeParam struct {
	Name    string
	Ordinal int
	Kind    string // "type", "value" or "template"
	Default string
}

type Base struct {
	Name    string
	Access  string
	Virtual bool
}

type Macro struct {
	Name         string
	Value        string
	Params       []string
	FunctionLike bool
	Origin       string
	Line         int
}

type Include struct {
	Path   string
	System bool
	Line   int
}

// HasModifier reports whether mod is among d's modifiers.
func (d *Decl) HasModifier(mod string) bool {
	for _, m := range d.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}

// IsRecord reports whether d is a class, struct or union.
func (d *Decl) IsRecord() bool {
	switch d.Kind {
	case KindClass, KindStruct, KindUnion:
		return true
	}
	return false
}

// IsCallable reports whether d is a function-like declaration.
func (d *Decl) IsCallable() bool {
	switch d.Kind {
	case KindFunction, KindMethod, KindConstructor, KindDestructor:
		return true
	}
	return false
}

// Model is the semantic model of a translation unit.
type Model struct {
	Path        string
	Language    string
	Standard    string
	Fingerprint string

	Decls    []*Decl  // top-level declarations in source order
	Macros   []*Macro // macros defined at the end of the unit, in definition order
	Includes []*Include

	all    []*Decl
	byID   map[int64]*Decl
	byName map[string][]*Decl
	byKind map[string][]*Decl
	macros map[string]*Macro
	nextID int64
}

func New(path, language, standard, fingerprint string) *Model {
	return &Model{
		Path:        path,
		Language:    language,
		Standard:    standard,
		Fingerprint: fingerprint,
		byID:        make(map[int64]*Decl),
		byName:      make(map[string][]*Decl),
		byKind:      make(map[string][]*Decl),
		macros:      make(map[string]*Macro),
	}
}

// Add attaches d under parent (nil for top level) and indexes it. A zero
// ID is assigned the next sequential ID; a preset ID is kept.
func (m *Model) Add(parent, d *Decl) *Decl {
	if d.ID == 0 {
		m.nextID++
		d.ID = m.nextID
	} else if d.ID > m.nextID {
		m.nextID = d.ID
	}
	if d.QualifiedName == "" {
		d.QualifiedName = d.Name
	}
	d.Parent = parent
	if parent == nil {
		m.Decls = append(m.Decls, d)
	} else {
		parent.Children = append(parent.Children, d)
	}
	m.all = append(m.all, d)
	m.byID[d.ID] = d
	if d.QualifiedName != "" {
		m.byName[d.QualifiedName] = append(m.byName[d.QualifiedName], d)
	}
	m.byKind[d.Kind] = append(m.byKind[d.Kind], d)
	return d
}

// AddMacro records a macro definition, replacing any earlier definition
// of the same name.
func (m *Model) AddMacro(mac *Macro) {
	if _, ok := m.macros[mac.Name]; ok {
		m.RemoveMacro(mac.Name)
	}
	m.Macros = append(m.Macros, mac)
	m.macros[mac.Name] = mac
}

// RemoveMacro undefines name (#undef).
func (m *Model) RemoveMacro(name string) {
	if _, ok := m.macros[name]; !ok {
		return
	}
	delete(m.macros, name)
	for i, mac := range m.Macros {
		if mac.Name == name {
			m.Macros = append(m.Macros[:i], m.Macros[i+1:]...)
			break
		}
	}
}

func (m *Model) AddInclude(inc *Include) {
	m.Includes = append(m.Includes, inc)
}

// Len returns the number of declarations at any depth.
func (m *Model) Len() int {
	return len(m.all)
}

// All returns every declaration in pre-order.
func (m *Model) All() []*Decl {
	return m.all
}

// Decl returns the declaration with the given ID.
func (m *Model) Decl(id int64) (*Decl, bool) {
	d, ok := m.byID[id]
	return d, ok
}

// Lookup returns the first declaration with the given qualified name.
func (m *Model) Lookup(qualifiedName string) (*Decl, bool) {
	ds := m.byName[qualifiedName]
	if len(ds) == 0 {
		return nil, false
	}
	return ds[0], true
}

// LookupAll returns every declaration with the given qualified name
// (overloads, redeclarations).
func (m *Model) LookupAll(qualifiedName string) []*Decl {
	return m.byName[qualifiedName]
}

// DeclsByKind returns declarations of kind in pre-order.
func (m *Model) DeclsByKind(kind string) []*Decl {
	return m.byKind[kind]
}

// TopLevel returns the declarations with no parent.
func (m *Model) TopLevel() []*Decl {
	return m.Decls
}

// Records returns classes, structs and unions in pre-order.
func (m *Model) Records() []*Decl {
	var out []*Decl
	for _, d := range m.all {
		if d.IsRecord() {
			out = append(out, d)
		}
	}
	return out
}

// Functions returns free functions, methods, constructors and destructors.
func (m *Model) Functions() []*Decl {
	var out []*Decl
	for _, d := range m.all {
		if d.IsCallable() {
			out = append(out, d)
		}
	}
	return out
}

// Macro returns the macro currently defined under name.
func (m *Model) Macro(name string) (*Macro, bool) {
	mac, ok := m.macros[name]
	return mac, ok
}

// Walk visits declarations depth-first in source order. Returning false
// from fn skips the declaration's children.
func (m *Model) Walk(fn func(d *Decl) bool) {
	var visit func(ds []*Decl)
	visit = func(ds []*Decl) {
		for _, d := range ds {
			if fn(d) {
				visit(d.Children)
			}
		}
	}
	visit(m.Decls)
}
