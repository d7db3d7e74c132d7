package model

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// SignatureHash computes a deterministic hash from a declaration's semantic
// identity: qualified name, kind, visibility, modifiers, type, parameters,
// template parameters and bases. Location changes do NOT affect the hash.
func SignatureHash(d *Decl) string {
	h := sha256.New()

	fmt.Fprintf(h, "name:%s\n", d.QualifiedName)
	fmt.Fprintf(h, "kind:%s\n", d.Kind)
	fmt.Fprintf(h, "visibility:%s\n", d.Visibility)
	fmt.Fprintf(h, "type:%s\n", d.Type)
	fmt.Fprintf(h, "value:%s\n", d.Value)

	// Modifiers sorted for determinism.
	sorted := make([]string, len(d.Modifiers))
	copy(sorted, d.Modifiers)
	sort.Strings(sorted)
	fmt.Fprintf(h, "modifiers:%s\n", strings.Join(sorted, ","))

	params := make([]*Param, len(d.Params))
	copy(params, d.Params)
	sort.Slice(params, func(i, j int) bool {
		return params[i].Ordinal < params[j].Ordinal
	})
	for _, p := range params {
		fmt.Fprintf(h, "param:%s:%d:%s:%s:%v\n", p.Name, p.Ordinal, p.Type, p.Default, p.Variadic)
	}

	tparams := make([]*TypeParam, len(d.TypeParams))
	copy(tparams, d.TypeParams)
	sort.Slice(tparams, func(i, j int) bool {
		return tparams[i].Ordinal < tparams[j].Ordinal
	})
	for _, tp := range tparams {
		fmt.Fprintf(h, "typeparam:%s:%d:%s:%s\n", tp.Name, tp.Ordinal, tp.Kind, tp.Default)
	}

	// Base order is significant (layout), so no sorting.
	for _, b := range d.Bases {
		fmt.Fprintf(h, "base:%s:%s:%v\n", b.Name, b.Access, b.Virtual)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
