package cppreflect

import "strings"

// BaseRelation is one base-specifier of a record, with the base resolved to
// its declaration when the unit declares it.
type BaseRelation struct {
	Base *Base
	Decl *Decl // nil when the base is declared outside the unit
}

// TypeHierarchy is the inheritance view of a single record within its unit.
type TypeHierarchy struct {
	Record  *Decl
	Bases   []*BaseRelation // direct bases, in declaration order
	Derived []*Decl         // records in the unit that list Record as a direct base
}

// TypeHierarchy returns the direct bases and derived records of the record
// with id. Returns nil if id does not name a record.
func (q *QueryBuilder) TypeHierarchy(id int64) *TypeHierarchy {
	d, ok := q.model.Decl(id)
	if !ok || !d.IsRecord() {
		return nil
	}

	h := &TypeHierarchy{Record: d, Bases: []*BaseRelation{}, Derived: []*Decl{}}
	for _, b := range d.Bases {
		h.Bases = append(h.Bases, &BaseRelation{Base: b, Decl: q.ResolveBase(d, b)})
	}
	for _, other := range q.model.Records() {
		if other == d {
			continue
		}
		for _, b := range other.Bases {
			if q.ResolveBase(other, b) == d {
				h.Derived = append(h.Derived, other)
				break
			}
		}
	}
	return h
}

// ResolveBase finds the record a base-specifier of rec names, searching
// from rec's enclosing scope outwards as C++ name lookup does. Template
// arguments on the base are ignored.
func (q *QueryBuilder) ResolveBase(rec *Decl, b *Base) *Decl {
	name := b.Name
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(strings.TrimPrefix(name, "::"))
	if strings.HasPrefix(b.Name, "::") {
		return q.record(name)
	}

	for scope := rec.Parent; ; scope = scope.Parent {
		prefix := ""
		if scope != nil {
			prefix = scope.QualifiedName + "::"
		}
		if r := q.record(prefix + name); r != nil && r != rec {
			return r
		}
		if scope == nil {
			return nil
		}
	}
}

func (q *QueryBuilder) record(qn string) *Decl {
	for _, d := range q.model.LookupAll(qn) {
		if d.IsRecord() {
			return d
		}
	}
	return nil
}

// Ancestors returns every record reachable through base-specifiers of the
// record with id, nearest first, each listed once.
func (q *QueryBuilder) Ancestors(id int64) []*Decl {
	d, ok := q.model.Decl(id)
	if !ok {
		return nil
	}
	seen := map[*Decl]bool{d: true}
	out := []*Decl{}
	queue := []*Decl{d}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, b := range cur.Bases {
			r := q.ResolveBase(cur, b)
			if r == nil || seen[r] {
				continue
			}
			seen[r] = true
			out = append(out, r)
			queue = append(queue, r)
		}
	}
	return out
}
