package script

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/risor-io/risor/object"

	"github.com/jward/cppreflect/internal/model"
)

// Risor scripts only see maps, lists and primitives; declarations are
// flattened into maps keyed by snake_case field names and linked by id.

func unitObject(m *model.Model) object.Object {
	return object.NewMap(map[string]object.Object{
		"path":        object.NewString(m.Path),
		"language":    object.NewString(m.Language),
		"standard":    object.NewString(m.Standard),
		"fingerprint": object.NewString(m.Fingerprint),
		"decl_count":  object.NewInt(int64(m.Len())),
	})
}

func declObject(d *model.Decl) object.Object {
	m := map[string]object.Object{
		"id":             object.NewInt(d.ID),
		"name":           object.NewString(d.Name),
		"qualified_name": object.NewString(d.QualifiedName),
		"kind":           object.NewString(d.Kind),
		"visibility":     object.NewString(d.Visibility),
		"modifiers":      stringList(d.Modifiers),
		"type":           object.NewString(d.Type),
		"value":          object.NewString(d.Value),
		"signature_hash": object.NewString(d.SignatureHash),
		"start_line":     object.NewInt(int64(d.Range.Start.Line)),
		"start_col":      object.NewInt(int64(d.Range.Start.Col)),
		"end_line":       object.NewInt(int64(d.Range.End.Line)),
		"end_col":        object.NewInt(int64(d.Range.End.Col)),
		"template":       object.NewBool(len(d.TypeParams) > 0),
		"parent_id":      object.Nil,
	}
	if d.Parent != nil {
		m["parent_id"] = object.NewInt(d.Parent.ID)
	}
	return object.NewMap(m)
}

func declList(ds []*model.Decl) object.Object {
	items := make([]object.Object, 0, len(ds))
	for _, d := range ds {
		items = append(items, declObject(d))
	}
	return object.NewList(items)
}

func stringList(ss []string) object.Object {
	items := make([]object.Object, 0, len(ss))
	for _, s := range ss {
		items = append(items, object.NewString(s))
	}
	return object.NewList(items)
}

func macroObject(mac *model.Macro) object.Object {
	return object.NewMap(map[string]object.Object{
		"name":          object.NewString(mac.Name),
		"value":         object.NewString(mac.Value),
		"params":        stringList(mac.Params),
		"function_like": object.NewBool(mac.FunctionLike),
		"origin":        object.NewString(mac.Origin),
		"line":          object.NewInt(int64(mac.Line)),
	})
}

// makeDeclsFn creates "decls".
//
// decls() → every declaration in source order
// decls(kind) → declarations of one kind
func makeDeclsFn(m *model.Model) *object.Builtin {
	return object.NewBuiltin("decls", func(ctx context.Context, args ...object.Object) object.Object {
		switch len(args) {
		case 0:
			return declList(m.All())
		case 1:
			kind, err := toString(args[0])
			if err != nil {
				return object.Errorf("decls: kind: %v", err)
			}
			return declList(m.DeclsByKind(kind))
		}
		return object.NewArgsRangeError("decls", 0, 1, len(args))
	})
}

// makeLookupFn creates "lookup".
//
// lookup(qualified_name) → decl map or nil
func makeLookupFn(m *model.Model) *object.Builtin {
	return object.NewBuiltin("lookup", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("lookup", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("lookup: %v", err)
		}
		d, ok := m.Lookup(name)
		if !ok {
			return object.Nil
		}
		return declObject(d)
	})
}

// makeLookupAllFn creates "lookup_all" for overloads.
//
// lookup_all(qualified_name) → list of decl maps
func makeLookupAllFn(m *model.Model) *object.Builtin {
	return object.NewBuiltin("lookup_all", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("lookup_all", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("lookup_all: %v", err)
		}
		return declList(m.LookupAll(name))
	})
}

// declArg resolves the single id argument of fn. The second result is a
// Risor error to return as is.
func declArg(m *model.Model, fn string, args []object.Object) (*model.Decl, object.Object) {
	if len(args) != 1 {
		return nil, object.NewArgsError(fn, 1, len(args))
	}
	id, err := toInt64(args[0])
	if err != nil {
		return nil, object.Errorf("%s: id: %v", fn, err)
	}
	d, ok := m.Decl(id)
	if !ok {
		return nil, object.Errorf("%s: no declaration with id %d", fn, id)
	}
	return d, nil
}

// makeDeclFn creates "decl".
//
// decl(id) → decl map
func makeDeclFn(m *model.Model) *object.Builtin {
	return object.NewBuiltin("decl", func(ctx context.Context, args ...object.Object) object.Object {
		d, errObj := declArg(m, "decl", args)
		if errObj != nil {
			return errObj
		}
		return declObject(d)
	})
}

// makeChildrenFn creates "children".
//
// children(id) → direct members of the declaration
func makeChildrenFn(m *model.Model) *object.Builtin {
	return object.NewBuiltin("children", func(ctx context.Context, args ...object.Object) object.Object {
		d, errObj := declArg(m, "children", args)
		if errObj != nil {
			return errObj
		}
		return declList(d.Children)
	})
}

// makeParamsFn creates "params".
//
// params(id) → [{name, ordinal, type, default, variadic}]
func makeParamsFn(m *model.Model) *object.Builtin {
	return object.NewBuiltin("params", func(ctx context.Context, args ...object.Object) object.Object {
		d, errObj := declArg(m, "params", args)
		if errObj != nil {
			return errObj
		}
		items := make([]object.Object, 0, len(d.Params))
		for _, p := range d.Params {
			items = append(items, object.NewMap(map[string]object.Object{
				"name":     object.NewString(p.Name),
				"ordinal":  object.NewInt(int64(p.Ordinal)),
				"type":     object.NewString(p.Type),
				"default":  object.NewString(p.Default),
				"variadic": object.NewBool(p.Variadic),
			}))
		}
		return object.NewList(items)
	})
}

// makeTypeParamsFn creates "type_params".
//
// type_params(id) → [{name, ordinal, kind, default}]
func makeTypeParamsFn(m *model.Model) *object.Builtin {
	return object.NewBuiltin("type_params", func(ctx context.Context, args ...object.Object) object.Object {
		d, errObj := declArg(m, "type_params", args)
		if errObj != nil {
			return errObj
		}
		items := make([]object.Object, 0, len(d.TypeParams))
		for _, tp := range d.TypeParams {
			items = append(items, object.NewMap(map[string]object.Object{
				"name":    object.NewString(tp.Name),
				"ordinal": object.NewInt(int64(tp.Ordinal)),
				"kind":    object.NewString(tp.Kind),
				"default": object.NewString(tp.Default),
			}))
		}
		return object.NewList(items)
	})
}

// makeBasesFn creates "bases".
//
// bases(id) → [{name, access, virtual}]
func makeBasesFn(m *model.Model) *object.Builtin {
	return object.NewBuiltin("bases", func(ctx context.Context, args ...object.Object) object.Object {
		d, errObj := declArg(m, "bases", args)
		if errObj != nil {
			return errObj
		}
		items := make([]object.Object, 0, len(d.Bases))
		for _, b := range d.Bases {
			items = append(items, object.NewMap(map[string]object.Object{
				"name":    object.NewString(b.Name),
				"access":  object.NewString(b.Access),
				"virtual": object.NewBool(b.Virtual),
			}))
		}
		return object.NewList(items)
	})
}

// makeMacrosFn creates "macros".
//
// macros() → every macro defined at the end of the unit
// macros(origin) → only those with origin "builtin", "command-line" or "source"
func makeMacrosFn(m *model.Model) *object.Builtin {
	return object.NewBuiltin("macros", func(ctx context.Context, args ...object.Object) object.Object {
		origin := ""
		switch len(args) {
		case 0:
		case 1:
			o, err := toString(args[0])
			if err != nil {
				return object.Errorf("macros: origin: %v", err)
			}
			origin = o
		default:
			return object.NewArgsRangeError("macros", 0, 1, len(args))
		}
		items := make([]object.Object, 0, len(m.Macros))
		for _, mac := range m.Macros {
			if origin == "" || mac.Origin == origin {
				items = append(items, macroObject(mac))
			}
		}
		return object.NewList(items)
	})
}

// makeMacroFn creates "macro".
//
// macro(name) → macro map or nil
func makeMacroFn(m *model.Model) *object.Builtin {
	return object.NewBuiltin("macro", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("macro", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("macro: %v", err)
		}
		mac, ok := m.Macro(name)
		if !ok {
			return object.Nil
		}
		return macroObject(mac)
	})
}

// makeIncludesFn creates "includes".
//
// includes() → [{path, system, line}]
func makeIncludesFn(m *model.Model) *object.Builtin {
	return object.NewBuiltin("includes", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("includes", 0, len(args))
		}
		items := make([]object.Object, 0, len(m.Includes))
		for _, inc := range m.Includes {
			items = append(items, object.NewMap(map[string]object.Object{
				"path":   object.NewString(inc.Path),
				"system": object.NewBool(inc.System),
				"line":   object.NewInt(int64(inc.Line)),
			}))
		}
		return object.NewList(items)
	})
}

// makeEmitFn creates "emit", the output channel of codegen scripts.
//
// emit(values...) writes the values separated by spaces and a newline.
func makeEmitFn(w io.Writer) *object.Builtin {
	var mu sync.Mutex
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		parts := make([]string, len(args))
		for i, a := range args {
			if s, ok := a.(*object.String); ok {
				parts[i] = s.Value()
			} else {
				parts[i] = a.Inspect()
			}
		}
		mu.Lock()
		defer mu.Unlock()
		if _, err := io.WriteString(w, strings.Join(parts, " ")+"\n"); err != nil {
			return object.Errorf("emit: %v", err)
		}
		return object.Nil
	})
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	prefix string
	w      io.Writer
}

func (l *logObject) Info(msg string) {
	fmt.Fprintf(l.w, "[%s] INFO: %s\n", l.prefix, msg)
}

func (l *logObject) Warn(msg string) {
	fmt.Fprintf(l.w, "[%s] WARN: %s\n", l.prefix, msg)
}

func (l *logObject) Error(msg string) {
	fmt.Fprintf(l.w, "[%s] ERROR: %s\n", l.prefix, msg)
}
