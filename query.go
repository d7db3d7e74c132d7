package cppreflect

// QueryBuilder answers positional, discovery and hierarchy questions about
// one materialized model. Models are read-only, so a QueryBuilder is safe
// for concurrent use.
type QueryBuilder struct {
	model *Model
}

// Query returns a QueryBuilder over m.
func Query(m *Model) *QueryBuilder {
	return &QueryBuilder{model: m}
}

// Model returns the model being queried.
func (q *QueryBuilder) Model() *Model { return q.model }

// Location represents a source code position range.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// LocationOf returns the source range of d within the queried unit.
func (q *QueryBuilder) LocationOf(d *Decl) Location {
	return Location{
		File:      q.model.Path,
		StartLine: d.Range.Start.Line,
		StartCol:  d.Range.Start.Col,
		EndLine:   d.Range.End.Line,
		EndCol:    d.Range.End.Col,
	}
}

// DeclAt returns the innermost declaration whose range contains the 1-based
// position (line, col), or nil.
func (q *QueryBuilder) DeclAt(line, col int) *Decl {
	pos := Position{Line: line, Col: col}
	var best *Decl
	q.model.Walk(func(d *Decl) bool {
		if !contains(d.Range, pos) {
			return false
		}
		best = d
		return true
	})
	return best
}

// ScopeAt returns the chain of declarations enclosing (line, col), outermost
// first.
func (q *QueryBuilder) ScopeAt(line, col int) []*Decl {
	var chain []*Decl
	for d := q.DeclAt(line, col); d != nil; d = d.Parent {
		chain = append(chain, d)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Children returns the direct members of the declaration with id, or nil if
// there is none.
func (q *QueryBuilder) Children(id int64) []*Decl {
	d, ok := q.model.Decl(id)
	if !ok {
		return nil
	}
	return d.Children
}

func contains(r Range, p Position) bool {
	return !before(p, r.Start) && !before(r.End, p)
}

func before(a, b Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Col < b.Col)
}
