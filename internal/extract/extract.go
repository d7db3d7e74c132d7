// Package extract walks a tree-sitter syntax tree of a C or C++ source file
// and builds its semantic model: declarations, macros and includes.
// Preprocessor conditionals are evaluated against a macro table so only the
// active branches contribute declarations.
package extract

import (
	"context"
	"fmt"
	"strings"

	"fortio.org/safecast"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/cppreflect/internal/diag"
	"github.com/jward/cppreflect/internal/model"
)

// Macros is the preprocessor state consulted and updated during extraction.
type Macros interface {
	Defined(name string) bool
	Value(name string) (string, bool)
	Define(name, value string)
	Undefine(name string)
}

// Options configures one extraction.
type Options struct {
	Path        string
	Language    string // LangC or LangCPP
	Standard    string
	Fingerprint string

	// Macros holds the predefined and command-line macros. Nil means an
	// empty table.
	Macros Macros

	// Predefined are recorded in the model ahead of the source's own
	// definitions.
	Predefined []*model.Macro

	// MaxDiagnostics caps the diagnostics bag (0 = unlimited).
	MaxDiagnostics int
}

// Extract parses src and returns its semantic model together with the
// diagnostics produced on the way. Syntax errors are reported in the bag,
// not as an error; the error return is reserved for failures to parse at
// all (unsupported language, cancellation).
func Extract(ctx context.Context, src []byte, opts Options) (*model.Model, *diag.Bag, error) {
	lang, ok := ParserForLanguage(opts.Language)
	if !ok {
		return nil, nil, fmt.Errorf("extract: unsupported language %q", opts.Language)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: parse %s: %w", opts.Path, err)
	}
	defer tree.Close()

	macros := opts.Macros
	if macros == nil {
		macros = make(macroMap)
	}

	w := &walker{
		src:    src,
		macros: macros,
		model:  model.New(opts.Path, opts.Language, opts.Standard, opts.Fingerprint),
		bag:    diag.NewBag(opts.MaxDiagnostics),
	}

	for _, mac := range opts.Predefined {
		w.model.AddMacro(mac)
	}

	root := tree.RootNode()
	if root.HasError() {
		w.reportSyntaxErrors(root)
	}
	w.items(root, nil)

	for _, d := range w.model.All() {
		d.SignatureHash = model.SignatureHash(d)
	}
	w.bag.Sort()
	return w.model, w.bag, nil
}

// macroMap is the fallback macro table used when Options.Macros is nil.
type macroMap map[string]string

func (m macroMap) Defined(name string) bool {
	_, ok := m[name]
	return ok
}

func (m macroMap) Value(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func (m macroMap) Define(name, value string) { m[name] = value }
func (m macroMap) Undefine(name string)      { delete(m, name) }

type walker struct {
	src    []byte
	macros Macros
	model  *model.Model
	bag    *diag.Bag

	scope []string // enclosing qualified scope components

	// pendingTParams are the template parameters of the template_declaration
	// being walked; the next declaration added takes them.
	pendingTParams []*model.TypeParam
}

// container is the declaration context of a walk: the parent decl (nil at
// file scope) and, inside records, the current member access.
type container struct {
	parent *model.Decl
	record *model.Decl
	access string
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *walker) pos(p sitter.Point) model.Position {
	line, err := safecast.Conv[int](p.Row)
	if err != nil {
		line = 0
	}
	col, err := safecast.Conv[int](p.Column)
	if err != nil {
		col = 0
	}
	return model.Position{Line: line + 1, Col: col + 1}
}

func (w *walker) rangeOf(n *sitter.Node) model.Range {
	return model.Range{Start: w.pos(n.StartPoint()), End: w.pos(n.EndPoint())}
}

func (w *walker) qualify(name string) string {
	if name == "" {
		return ""
	}
	if len(w.scope) == 0 {
		return name
	}
	return strings.Join(w.scope, "::") + "::" + name
}

func appendScope(scope []string, name string) []string {
	out := make([]string, len(scope), len(scope)+1)
	copy(out, scope)
	return append(out, name)
}

func (w *walker) add(ctr *container, n *sitter.Node, d *model.Decl) *model.Decl {
	if d.QualifiedName == "" {
		d.QualifiedName = w.qualify(d.Name)
	}
	d.Range = w.rangeOf(n)
	if ctr != nil && ctr.record != nil && d.Visibility == "" {
		d.Visibility = ctr.access
	}
	if w.pendingTParams != nil {
		d.TypeParams = w.pendingTParams
		w.pendingTParams = nil
	}
	var parent *model.Decl
	if ctr != nil {
		parent = ctr.parent
	}
	return w.model.Add(parent, d)
}

func (w *walker) reportSyntaxErrors(n *sitter.Node) {
	switch {
	case n.Type() == "ERROR":
		p := w.pos(n.StartPoint())
		snippet := strings.TrimSpace(w.text(n))
		if len(snippet) > 32 {
			snippet = snippet[:32] + "..."
		}
		w.bag.Addf(diag.SevError, p.Line, p.Col, "syntax error near %q", snippet)
		return
	case n.IsMissing():
		p := w.pos(n.StartPoint())
		w.bag.Addf(diag.SevError, p.Line, p.Col, "expected %q", n.Type())
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.HasError() || c.IsMissing() {
			w.reportSyntaxErrors(c)
		}
	}
}

// items walks the named children of a block-like node (translation unit,
// declaration list, field declaration list, preprocessor branch).
func (w *walker) items(n *sitter.Node, ctr *container) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.item(n.NamedChild(i), ctr)
	}
}

// branchItems walks the children of a preprocessor branch, skipping its
// controlling parts.
func (w *walker) branchItems(n *sitter.Node, ctr *container, skip ...*sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if isAnyOf(c, skip) {
			continue
		}
		w.item(c, ctr)
	}
}

func isAnyOf(n *sitter.Node, set []*sitter.Node) bool {
	for _, s := range set {
		if s != nil && s.Type() == n.Type() && s.StartByte() == n.StartByte() && s.EndByte() == n.EndByte() {
			return true
		}
	}
	return false
}

func (w *walker) item(n *sitter.Node, ctr *container) {
	switch n.Type() {
	// Preprocessor.
	case "preproc_include":
		w.include(n)
	case "preproc_def":
		w.define(n, false)
	case "preproc_function_def":
		w.define(n, true)
	case "preproc_call":
		w.directive(n)
	case "preproc_ifdef", "preproc_elifdef":
		w.ifdef(n, ctr)
	case "preproc_if", "preproc_elif":
		w.ifBranch(n, ctr)
	case "preproc_else":
		w.items(n, ctr)

	// Scopes.
	case "namespace_definition":
		w.namespace(n, ctr)
	case "linkage_specification":
		if body := n.ChildByFieldName("body"); body != nil {
			if body.Type() == "declaration_list" {
				w.items(body, ctr)
			} else {
				w.item(body, ctr)
			}
		}
	case "template_declaration":
		w.template(n, ctr)

	// Records and enums without declarators: `struct S { ... };`
	case "struct_specifier", "class_specifier", "union_specifier":
		w.record(n, ctr, "")
	case "enum_specifier":
		w.enum(n, ctr, "")

	// Declarations.
	case "declaration", "field_declaration":
		w.declaration(n, ctr)
	case "function_definition":
		w.functionDefinition(n, ctr)
	case "type_definition":
		w.typedef(n, ctr)
	case "alias_declaration":
		w.alias(n, ctr)
	case "access_specifier":
		if ctr != nil && ctr.record != nil {
			ctr.access = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(w.text(n)), ":"))
		}
	}
}

func (w *walker) include(n *sitter.Node) {
	path := n.ChildByFieldName("path")
	if path == nil {
		return
	}
	inc := &model.Include{
		Path:   strings.Trim(w.text(path), "\"<>"),
		System: path.Type() == "system_lib_string",
		Line:   w.pos(n.StartPoint()).Line,
	}
	w.model.AddInclude(inc)
}

func (w *walker) define(n *sitter.Node, functionLike bool) {
	name := w.text(n.ChildByFieldName("name"))
	if name == "" {
		return
	}
	value := strings.TrimSpace(w.text(n.ChildByFieldName("value")))
	mac := &model.Macro{
		Name:         name,
		Value:        value,
		FunctionLike: functionLike,
		Origin:       model.OriginSource,
		Line:         w.pos(n.StartPoint()).Line,
	}
	if functionLike {
		if params := n.ChildByFieldName("parameters"); params != nil {
			for i := 0; i < int(params.ChildCount()); i++ {
				c := params.Child(i)
				if c.Type() == "identifier" || c.Type() == "..." {
					mac.Params = append(mac.Params, w.text(c))
				}
			}
		}
	}
	w.macros.Define(name, value)
	w.model.AddMacro(mac)
}

func (w *walker) directive(n *sitter.Node) {
	dir := strings.TrimSpace(w.text(n.ChildByFieldName("directive")))
	arg := strings.TrimSpace(w.text(n.ChildByFieldName("argument")))
	switch dir {
	case "#undef":
		if arg != "" {
			w.macros.Undefine(arg)
			w.model.RemoveMacro(arg)
		}
	case "#error":
		p := w.pos(n.StartPoint())
		w.bag.Addf(diag.SevError, p.Line, p.Col, "#error %s", arg)
	case "#warning":
		p := w.pos(n.StartPoint())
		w.bag.Addf(diag.SevWarning, p.Line, p.Col, "#warning %s", arg)
	}
}

func (w *walker) ifdef(n *sitter.Node, ctr *container) {
	name := n.ChildByFieldName("name")
	alt := n.ChildByFieldName("alternative")
	negate := false
	if n.ChildCount() > 0 {
		switch n.Child(0).Type() {
		case "#ifndef", "#elifndef":
			negate = true
		}
	}
	active := w.macros.Defined(w.text(name)) != negate
	if active {
		w.branchItems(n, ctr, name, alt)
		return
	}
	if alt != nil {
		w.item(alt, ctr)
	}
}

func (w *walker) ifBranch(n *sitter.Node, ctr *container) {
	cond := n.ChildByFieldName("condition")
	alt := n.ChildByFieldName("alternative")
	if w.evalCondition(cond) != 0 {
		w.branchItems(n, ctr, cond, alt)
		return
	}
	if alt != nil {
		w.item(alt, ctr)
	}
}

func (w *walker) namespace(n *sitter.Node, ctr *container) {
	body := n.ChildByFieldName("body")
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		// Anonymous namespaces are transparent.
		if body != nil {
			w.items(body, ctr)
		}
		return
	}

	parts := strings.Split(w.text(nameNode), "::")
	saved := w.scope
	cur := ctr
	for _, part := range parts {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "inline "))
		if part == "" {
			continue
		}
		qn := w.qualify(part)
		ns := w.existingNamespace(qn)
		if ns == nil {
			ns = w.add(cur, n, &model.Decl{Name: part, QualifiedName: qn, Kind: model.KindNamespace})
		}
		w.scope = appendScope(w.scope, part)
		cur = &container{parent: ns}
	}
	if body != nil {
		w.items(body, cur)
	}
	w.scope = saved
}

// existingNamespace returns the namespace decl a reopened namespace
// continues, if any.
func (w *walker) existingNamespace(qn string) *model.Decl {
	for _, d := range w.model.LookupAll(qn) {
		if d.Kind == model.KindNamespace {
			return d
		}
	}
	return nil
}

func (w *walker) template(n *sitter.Node, ctr *container) {
	params := n.ChildByFieldName("parameters")
	var tps []*model.TypeParam
	if params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			if tp := w.typeParam(params.NamedChild(i), len(tps)); tp != nil {
				tps = append(tps, tp)
			}
		}
	}
	if tps == nil {
		// Explicit specialization: template<>.
		tps = []*model.TypeParam{}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if isAnyOf(c, []*sitter.Node{params}) || c.Type() == "requires_clause" {
			continue
		}
		w.pendingTParams = tps
		w.item(c, ctr)
	}
	w.pendingTParams = nil
}

func (w *walker) typeParam(n *sitter.Node, ordinal int) *model.TypeParam {
	tp := &model.TypeParam{Ordinal: ordinal}
	switch n.Type() {
	case "type_parameter_declaration":
		tp.Kind = "type"
		tp.Name = w.firstNamed(n, "type_identifier")
	case "optional_type_parameter_declaration":
		tp.Kind = "type"
		tp.Name = w.text(n.ChildByFieldName("name"))
		tp.Default = w.text(n.ChildByFieldName("default_type"))
	case "variadic_type_parameter_declaration":
		tp.Kind = "pack"
		tp.Name = w.firstNamed(n, "type_identifier")
	case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
		tp.Kind = "value"
		tp.Name, _ = w.declaratorName(n.ChildByFieldName("declarator"))
		tp.Default = w.text(n.ChildByFieldName("default_value"))
	case "template_template_parameter_declaration":
		tp.Kind = "template"
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "type_parameter_declaration", "variadic_type_parameter_declaration":
				tp.Name = w.firstNamed(c, "type_identifier")
			case "optional_type_parameter_declaration":
				tp.Name = w.text(c.ChildByFieldName("name"))
				tp.Default = w.text(c.ChildByFieldName("default_type"))
			}
		}
	default:
		return nil
	}
	return tp
}

func (w *walker) firstNamed(n *sitter.Node, typ string) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == typ {
			return w.text(c)
		}
	}
	return ""
}

// record walks a struct/class/union specifier. A specifier without a body
// is a reference, not a declaration, and yields nil. fallbackName names an
// anonymous record (typedef struct { ... } Name;).
func (w *walker) record(n *sitter.Node, ctr *container, fallbackName string) *model.Decl {
	body := n.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	kind := model.KindStruct
	access := "public"
	switch n.Type() {
	case "class_specifier":
		kind = model.KindClass
		access = "private"
	case "union_specifier":
		kind = model.KindUnion
	}

	name := w.text(n.ChildByFieldName("name"))
	if name == "" {
		name = fallbackName
	}
	// Out-of-line nested definitions (struct Outer::Inner { ... }) carry
	// their scope in the name.
	shortName := name
	if i := strings.LastIndex(name, "::"); i >= 0 && !strings.Contains(name, "<") {
		shortName = name[i+2:]
	}

	d := &model.Decl{Name: shortName, Kind: kind}
	if name == "" {
		// Anonymous members are visible in the enclosing scope.
		d.QualifiedName = ""
	} else if shortName != name {
		d.QualifiedName = w.qualify(name)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "base_class_clause":
			d.Bases = w.bases(c)
		case "virtual_specifier":
			d.Modifiers = append(d.Modifiers, w.text(c))
		}
	}

	rec := w.add(ctr, n, d)

	saved := w.scope
	if name != "" {
		w.scope = appendScope(saved, name)
	}
	// Template parameters belong to the record, not its first member.
	w.pendingTParams = nil
	w.items(body, &container{parent: rec, record: rec, access: access})
	w.scope = saved
	return rec
}

func (w *walker) bases(n *sitter.Node) []*model.Base {
	var out []*model.Base
	cur := &model.Base{}
	flush := func() {
		if cur.Name != "" {
			out = append(out, cur)
		}
		cur = &model.Base{}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case ",":
			flush()
		case ":", "...", "attribute_declaration":
		case "access_specifier", "public", "private", "protected":
			cur.Access = strings.TrimSpace(w.text(c))
		case "virtual":
			cur.Virtual = true
		default:
			if c.IsNamed() {
				cur.Name = w.text(c)
			}
		}
	}
	flush()
	return out
}

func (w *walker) enum(n *sitter.Node, ctr *container, fallbackName string) *model.Decl {
	body := n.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	name := w.text(n.ChildByFieldName("name"))
	if name == "" {
		name = fallbackName
	}
	d := &model.Decl{Name: name, Kind: model.KindEnum, Type: w.text(n.ChildByFieldName("base"))}
	scoped := false
	for i := 0; i < int(n.ChildCount()); i++ {
		switch n.Child(i).Type() {
		case "class", "struct":
			scoped = true
		}
	}
	if scoped {
		d.Modifiers = append(d.Modifiers, "scoped")
	}
	if name == "" {
		d.QualifiedName = ""
	}
	en := w.add(ctr, n, d)

	// Unscoped enumerators live in the enclosing scope.
	saved := w.scope
	if scoped && name != "" {
		w.scope = appendScope(saved, name)
	}
	inner := &container{parent: en}
	if ctr != nil && ctr.record != nil {
		inner.record = ctr.record
		inner.access = ctr.access
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() != "enumerator" {
			continue
		}
		w.add(inner, c, &model.Decl{
			Name:  w.text(c.ChildByFieldName("name")),
			Kind:  model.KindEnumerator,
			Value: w.text(c.ChildByFieldName("value")),
		})
	}
	w.scope = saved
	return en
}

// specifierModifiers collects storage classes, qualifiers and function
// specifiers attached directly to a declaration node.
func (w *walker) specifierModifiers(n *sitter.Node) []string {
	var mods []string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "storage_class_specifier", "type_qualifier", "virtual", "virtual_function_specifier",
			"explicit_function_specifier", "inline", "static", "extern", "constexpr", "explicit":
			if m := firstWord(w.text(c)); m != "" {
				mods = appendUnique(mods, m)
			}
		case "default_method_clause":
			mods = appendUnique(mods, "default")
		case "delete_method_clause":
			mods = appendUnique(mods, "delete")
		case "pure_virtual_clause":
			mods = appendUnique(mods, "pure")
		}
	}
	return mods
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t("); i >= 0 {
		return s[:i]
	}
	return s
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// declarator is an unwrapped declarator chain.
type declarator struct {
	name        string
	nameNode    *sitter.Node
	suffix      string // pointer/reference/array decoration of the type
	value       string // initializer
	function    *sitter.Node
	funcPointer bool
	destructor  bool
	qualified   bool
}

func (w *walker) unwrap(n *sitter.Node) declarator {
	var d declarator
	for n != nil {
		switch n.Type() {
		case "init_declarator":
			if v := n.ChildByFieldName("value"); v != nil {
				d.value = w.text(v)
			}
			n = n.ChildByFieldName("declarator")
		case "pointer_declarator":
			if d.function != nil {
				d.funcPointer = true
			}
			d.suffix += "*"
			n = n.ChildByFieldName("declarator")
		case "reference_declarator":
			if n.ChildCount() > 0 {
				d.suffix += n.Child(0).Type()
			}
			if n.NamedChildCount() == 0 {
				return d
			}
			n = n.NamedChild(0)
		case "array_declarator":
			d.suffix += "[" + w.text(n.ChildByFieldName("size")) + "]"
			n = n.ChildByFieldName("declarator")
		case "function_declarator":
			if d.function == nil {
				d.function = n
			}
			n = n.ChildByFieldName("declarator")
		case "parenthesized_declarator", "attributed_declarator":
			if n.NamedChildCount() == 0 {
				return d
			}
			n = n.NamedChild(0)
		case "destructor_name":
			d.destructor = true
			d.name = w.text(n)
			d.nameNode = n
			return d
		case "qualified_identifier":
			d.qualified = true
			d.name = w.text(n)
			d.nameNode = n
			return d
		default:
			d.name = w.text(n)
			d.nameNode = n
			return d
		}
	}
	return d
}

func (w *walker) declaratorName(n *sitter.Node) (string, declarator) {
	d := w.unwrap(n)
	return d.name, d
}

// declaration handles declaration and field_declaration nodes: variables,
// fields, function prototypes and method declarations, plus any record or
// enum defined inline in the type specifier.
func (w *walker) declaration(n *sitter.Node, ctr *container) {
	typeNode := n.ChildByFieldName("type")
	typeText := w.typeSpecifier(typeNode, ctr)
	mods := w.specifierModifiers(n)

	inRecord := ctr != nil && ctr.record != nil
	defaultValue := n.ChildByFieldName("default_value")

	declarators := w.fieldNodes(n, "declarator")
	for _, dn := range declarators {
		dc := w.unwrap(dn)
		if dc.name == "" {
			continue
		}
		if dc.function != nil && !dc.funcPointer {
			fmods := append([]string(nil), mods...)
			if inRecord && defaultValue != nil && strings.TrimSpace(w.text(defaultValue)) == "0" {
				fmods = appendUnique(fmods, "pure")
			}
			w.callable(n, ctr, typeNode, typeText, dc, fmods)
			continue
		}
		if dc.qualified {
			// Out-of-line static member definition.
			continue
		}
		kind := model.KindVariable
		if inRecord && n.Type() == "field_declaration" {
			kind = model.KindField
		}
		typ := typeText + dc.suffix
		if dc.funcPointer {
			typ = strings.TrimSpace(typeText + " " + strings.Replace(w.text(dn), dc.name, "", 1))
		}
		value := dc.value
		if value == "" && defaultValue != nil {
			value = w.text(defaultValue)
		}
		if bf := w.firstChildOfType(n, "bitfield_clause"); bf != nil {
			value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(w.text(bf)), ":"))
			mods = appendUnique(mods, "bitfield")
		}
		w.add(ctr, n, &model.Decl{
			Name:      dc.name,
			Kind:      kind,
			Type:      typ,
			Value:     value,
			Modifiers: mods,
		})
	}
	w.pendingTParams = nil
}

// typeSpecifier walks a record or enum defined inside the type specifier
// and returns the type's spelling.
func (w *walker) typeSpecifier(typeNode *sitter.Node, ctr *container) string {
	if typeNode == nil {
		return ""
	}
	switch typeNode.Type() {
	case "struct_specifier", "class_specifier", "union_specifier":
		if typeNode.ChildByFieldName("body") != nil {
			rec := w.record(typeNode, ctr, "")
			if rec != nil && rec.Name != "" {
				return rec.Name
			}
			return typeNode.Type()[:strings.Index(typeNode.Type(), "_")]
		}
	case "enum_specifier":
		if typeNode.ChildByFieldName("body") != nil {
			en := w.enum(typeNode, ctr, "")
			if en != nil && en.Name != "" {
				return en.Name
			}
			return "enum"
		}
	}
	return w.text(typeNode)
}

func (w *walker) fieldNodes(n *sitter.Node, field string) []*sitter.Node {
	var out []*sitter.Node
	first := n.ChildByFieldName(field)
	if first == nil {
		return nil
	}
	// ChildByFieldName returns only the first; the rest are the
	// comma-separated declarator siblings that follow it.
	skip := []*sitter.Node{n.ChildByFieldName("default_value")}
	out = append(out, first)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.StartByte() <= first.StartByte() || isAnyOf(c, skip) {
			continue
		}
		if isDeclaratorNode(c.Type()) {
			out = append(out, c)
		}
	}
	return out
}

func isDeclaratorNode(t string) bool {
	switch t {
	case "identifier", "field_identifier", "init_declarator", "pointer_declarator",
		"reference_declarator", "array_declarator", "function_declarator",
		"parenthesized_declarator", "attributed_declarator":
		return true
	}
	return false
}

func (w *walker) firstChildOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == typ {
			return c
		}
	}
	return nil
}

func (w *walker) functionDefinition(n *sitter.Node, ctr *container) {
	typeNode := n.ChildByFieldName("type")
	typeText := w.typeSpecifier(typeNode, ctr)
	mods := w.specifierModifiers(n)
	dc := w.unwrap(n.ChildByFieldName("declarator"))
	if w.zeroInitField(n, ctr, dc) {
		w.add(ctr, n, &model.Decl{
			Name:      dc.name,
			Kind:      model.KindField,
			Type:      typeText + dc.suffix,
			Value:     "0",
			Modifiers: removeModifier(mods, "pure"),
		})
		w.pendingTParams = nil
		return
	}
	if dc.name == "" || dc.function == nil {
		w.pendingTParams = nil
		return
	}
	mods = appendUnique(mods, "defined")
	w.callable(n, ctr, typeNode, typeText, dc, mods)
	w.pendingTParams = nil
}

// zeroInitField reports whether a function_definition is really a member
// like `int count = 0;`, which the grammar reads as a pure-virtual clause on
// a bare field name.
func (w *walker) zeroInitField(n *sitter.Node, ctr *container, dc declarator) bool {
	if ctr == nil || ctr.record == nil || dc.function != nil || dc.nameNode == nil {
		return false
	}
	if dc.nameNode.Type() != "field_identifier" {
		return false
	}
	return w.firstChildOfType(n, "pure_virtual_clause") != nil
}

func removeModifier(list []string, s string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// callable adds a function, method, constructor or destructor.
func (w *walker) callable(n *sitter.Node, ctr *container, typeNode *sitter.Node, typeText string, dc declarator, mods []string) {
	fn := dc.function
	for i := 0; i < int(fn.ChildCount()); i++ {
		c := fn.Child(i)
		switch c.Type() {
		case "type_qualifier", "virtual_specifier", "noexcept", "ref_qualifier", "throw_specifier":
			if m := firstWord(w.text(c)); m != "" {
				mods = appendUnique(mods, m)
			}
		case "trailing_return_type":
			if tr := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(w.text(c)), "->")); tr != "" {
				typeText = tr
			}
		}
	}
	params := w.params(fn.ChildByFieldName("parameters"))

	var record *model.Decl
	if ctr != nil {
		record = ctr.record
	}

	name := dc.name
	qn := ""
	kind := model.KindFunction
	switch {
	case dc.qualified:
		// Out-of-line member or namespace-qualified definition. If the
		// declaration is already known, record the definition on it.
		qn = w.qualifyOutOfLine(name)
		if existing := w.matchDeclaration(qn, params); existing != nil {
			existing.Modifiers = appendUnique(existing.Modifiers, "defined")
			return
		}
		if i := strings.LastIndex(name, "::"); i >= 0 {
			name = name[i+2:]
		}
		scopeName := ""
		if i := strings.LastIndex(qn, "::"); i >= 0 {
			scopeName = qn[:i]
		}
		if owner := w.recordNamed(scopeName); owner != nil {
			kind = model.KindMethod
			record = owner
			switch {
			case strings.HasPrefix(name, "~"):
				kind = model.KindDestructor
			case name == owner.Name:
				kind = model.KindConstructor
			}
		}
	case dc.destructor:
		kind = model.KindDestructor
	case record != nil && typeNode == nil && name == record.Name:
		kind = model.KindConstructor
	case record != nil:
		kind = model.KindMethod
	}
	if typeNode != nil {
		typeText += dc.suffix
	}

	d := &model.Decl{
		Name:          name,
		QualifiedName: qn,
		Kind:          kind,
		Type:          typeText,
		Modifiers:     mods,
		Params:        params,
	}
	if kind != model.KindFunction && dc.qualified && record != nil {
		// Out-of-line definitions of undeclared members hang off their record.
		w.add(&container{parent: record}, n, d)
		return
	}
	w.add(ctr, n, d)
}

// qualifyOutOfLine resolves a qualified declarator name against the current
// scope.
func (w *walker) qualifyOutOfLine(name string) string {
	name = strings.TrimPrefix(name, "::")
	return w.qualify(name)
}

func (w *walker) matchDeclaration(qn string, params []*model.Param) *model.Decl {
	for _, d := range w.model.LookupAll(qn) {
		if !d.IsCallable() || len(d.Params) != len(params) {
			continue
		}
		same := true
		for i := range params {
			if d.Params[i].Type != params[i].Type {
				same = false
				break
			}
		}
		if same {
			return d
		}
	}
	return nil
}

func (w *walker) recordNamed(qn string) *model.Decl {
	for _, d := range w.model.LookupAll(qn) {
		if d.IsRecord() {
			return d
		}
	}
	return nil
}

func (w *walker) params(list *sitter.Node) []*model.Param {
	if list == nil {
		return nil
	}
	var out []*model.Param
	// C-style "..." is an anonymous child, so walk every child.
	for i := 0; i < int(list.ChildCount()); i++ {
		c := list.Child(i)
		p := &model.Param{Ordinal: len(out)}
		switch c.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
			typ := w.text(c.ChildByFieldName("type"))
			dc := w.unwrap(c.ChildByFieldName("declarator"))
			if typ == "void" && dc.name == "" && dc.suffix == "" && list.NamedChildCount() == 1 {
				return nil
			}
			p.Name = dc.name
			p.Type = w.qualifiedParamType(c, typ) + dc.suffix
			if dv := c.ChildByFieldName("default_value"); dv != nil {
				p.Default = w.text(dv)
			}
		case "variadic_parameter_declaration":
			dc := w.unwrap(c.ChildByFieldName("declarator"))
			p.Name = strings.TrimSpace(strings.TrimPrefix(dc.name, "..."))
			p.Type = w.text(c.ChildByFieldName("type")) + dc.suffix + "..."
			p.Variadic = true
		case "variadic_parameter", "...":
			p.Type = "..."
			p.Variadic = true
		default:
			continue
		}
		out = append(out, p)
	}
	return out
}

// qualifiedParamType prefixes cv-qualifiers that precede the type
// specifier (const T&).
func (w *walker) qualifiedParamType(n *sitter.Node, typ string) string {
	var quals []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "type_qualifier" {
			quals = append(quals, w.text(c))
		}
	}
	if len(quals) == 0 {
		return typ
	}
	return strings.Join(quals, " ") + " " + typ
}

func (w *walker) typedef(n *sitter.Node, ctr *container) {
	typeNode := n.ChildByFieldName("type")
	declarators := w.fieldNodes(n, "declarator")

	// typedef struct { ... } Name; names the anonymous record after the
	// typedef.
	fallback := ""
	if len(declarators) > 0 {
		fallback = w.unwrap(declarators[0]).name
	}
	typeText := ""
	if typeNode != nil {
		switch typeNode.Type() {
		case "struct_specifier", "class_specifier", "union_specifier":
			if typeNode.ChildByFieldName("body") != nil {
				if rec := w.record(typeNode, ctr, fallback); rec != nil {
					typeText = rec.Name
				}
			}
		case "enum_specifier":
			if typeNode.ChildByFieldName("body") != nil {
				if en := w.enum(typeNode, ctr, fallback); en != nil {
					typeText = en.Name
				}
			}
		}
		if typeText == "" {
			typeText = w.text(typeNode)
		}
	}

	for _, dn := range declarators {
		dc := w.unwrap(dn)
		if dc.name == "" {
			continue
		}
		typ := typeText + dc.suffix
		if dc.function != nil {
			typ = strings.TrimSpace(typeText + " " + strings.Replace(w.text(dn), dc.name, "", 1))
		}
		if typ == dc.name {
			// typedef struct Name { ... } Name;
			continue
		}
		w.add(ctr, n, &model.Decl{Name: dc.name, Kind: model.KindTypedef, Type: typ})
	}
}

func (w *walker) alias(n *sitter.Node, ctr *container) {
	name := w.text(n.ChildByFieldName("name"))
	if name == "" {
		return
	}
	w.add(ctr, n, &model.Decl{
		Name: name,
		Kind: model.KindAlias,
		Type: w.text(n.ChildByFieldName("type")),
	})
}
