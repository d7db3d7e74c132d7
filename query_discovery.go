package cppreflect

import (
	"path"
	"sort"
	"strings"
)

// --- Common Types ---

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results.
type SortField string

const (
	SortBySource SortField = "source" // declaration order
	SortByName   SortField = "name"
	SortByKind   SortField = "kind"
	SortByLine   SortField = "line"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// DeclFilter specifies which declarations to include.
type DeclFilter struct {
	Kinds      []string // match any of these kinds
	Visibility *string  // exact match
	Modifiers  []string // declaration must have ALL of these modifiers
	ParentID   *int64   // restrict to direct children of this declaration
	Namespace  *string  // restrict to declarations qualified under this scope
}

func (f DeclFilter) match(d *Decl) bool {
	if len(f.Kinds) > 0 {
		found := false
		for _, k := range f.Kinds {
			if d.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Visibility != nil && d.Visibility != *f.Visibility {
		return false
	}
	for _, mod := range f.Modifiers {
		if !d.HasModifier(mod) {
			return false
		}
	}
	if f.ParentID != nil && (d.Parent == nil || d.Parent.ID != *f.ParentID) {
		return false
	}
	if f.Namespace != nil && *f.Namespace != "" && !strings.HasPrefix(d.QualifiedName, *f.Namespace+"::") {
		return false
	}
	return true
}

// --- Enumeration Endpoints ---

// Decls returns declarations matching filter, sorted and paginated.
func (q *QueryBuilder) Decls(filter DeclFilter, s Sort, page Pagination) *PagedResult[*Decl] {
	return q.collect(func(d *Decl) bool { return filter.match(d) }, s, page)
}

// --- Search ---

// SearchDecls performs glob-style search on qualified names. '*' matches
// any run of characters including "::"; '?' matches one character.
func (q *QueryBuilder) SearchDecls(pattern string, filter DeclFilter, s Sort, page Pagination) *PagedResult[*Decl] {
	match := globMatcher(pattern)
	return q.collect(func(d *Decl) bool {
		return filter.match(d) && (match(d.QualifiedName) || match(d.Name))
	}, s, page)
}

func (q *QueryBuilder) collect(keep func(*Decl) bool, s Sort, page Pagination) *PagedResult[*Decl] {
	page = page.normalize()

	var matched []*Decl
	for _, d := range q.model.All() {
		if keep(d) {
			matched = append(matched, d)
		}
	}
	sortDecls(matched, s)

	items := []*Decl{}
	if page.Offset < len(matched) {
		end := min(page.Offset+page.Limit, len(matched))
		items = matched[page.Offset:end]
	}
	return &PagedResult[*Decl]{Items: items, TotalCount: len(matched)}
}

func sortDecls(ds []*Decl, s Sort) {
	var less func(a, b *Decl) bool
	switch s.Field {
	case SortByName:
		less = func(a, b *Decl) bool { return a.QualifiedName < b.QualifiedName }
	case SortByKind:
		less = func(a, b *Decl) bool { return a.Kind < b.Kind }
	case SortByLine:
		less = func(a, b *Decl) bool { return before(a.Range.Start, b.Range.Start) }
	default:
		if s.Order == Desc {
			for i, j := 0, len(ds)-1; i < j; i, j = i+1, j-1 {
				ds[i], ds[j] = ds[j], ds[i]
			}
		}
		return
	}
	sort.SliceStable(ds, func(i, j int) bool {
		if s.Order == Desc {
			return less(ds[j], ds[i])
		}
		return less(ds[i], ds[j])
	})
}

// globMatcher compiles pattern into a predicate. An empty pattern or "*"
// matches everything. A malformed pattern matches nothing.
func globMatcher(pattern string) func(string) bool {
	if pattern == "" || pattern == "*" {
		return func(string) bool { return true }
	}
	// Qualified names never contain '/', so path.Match's '*' spans "::".
	if _, err := path.Match(pattern, ""); err != nil {
		return func(string) bool { return false }
	}
	return func(name string) bool {
		ok, _ := path.Match(pattern, name)
		return ok
	}
}

// --- Digest Endpoints ---

// UnitSummary provides a high-level overview of a unit.
type UnitSummary struct {
	Path         string
	Language     string
	Standard     string
	DeclCount    int
	KindCounts   map[string]int
	MacroCount   int
	IncludeCount int
	TopLevel     []*Decl
}

// Summary returns declaration counts per kind and the top-level
// declarations of the unit.
func (q *QueryBuilder) Summary() *UnitSummary {
	m := q.model
	s := &UnitSummary{
		Path:         m.Path,
		Language:     m.Language,
		Standard:     m.Standard,
		DeclCount:    m.Len(),
		KindCounts:   make(map[string]int),
		MacroCount:   len(m.Macros),
		IncludeCount: len(m.Includes),
		TopLevel:     m.TopLevel(),
	}
	for _, d := range m.All() {
		s.KindCounts[d.Kind]++
	}
	return s
}
