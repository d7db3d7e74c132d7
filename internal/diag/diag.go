// Package diag collects diagnostics produced while building or loading a
// frontend session.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "note"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// Diagnostic is a single message. Line and Col are 1-based; zero means the
// diagnostic has no source location (command-line problems, for example).
type Diagnostic struct {
	Severity Severity
	Message  string
	Line     int
	Col      int
}

func (d Diagnostic) String() string {
	if d.Line == 0 {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Col, d.Severity, d.Message)
}

// Bag accumulates diagnostics up to a limit. A zero max means unlimited.
type Bag struct {
	items []Diagnostic
	max   int
}

func NewBag(max int) *Bag {
	return &Bag{max: max}
}

// Add appends d unless the bag is full. Returns false if it was dropped.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Addf formats and appends a diagnostic.
func (b *Bag) Addf(sev Severity, line, col int, format string, args ...any) bool {
	return b.Add(Diagnostic{Severity: sev, Message: fmt.Sprintf(format, args...), Line: line, Col: col})
}

// HasErrors reports whether any diagnostic has SevError.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any diagnostic is at least a warning.
func (b *Bag) HasWarnings() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevWarning {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the diagnostics. The slice aliases the bag's storage.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends every diagnostic of other, ignoring the limit.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
}

// Sort orders diagnostics by line, column, then severity (errors first).
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Col != dj.Col {
			return di.Col < dj.Col
		}
		return di.Severity > dj.Severity
	})
}

// Summary joins all error-severity messages into one line, or returns ""
// when there are none.
func (b *Bag) Summary() string {
	var parts []string
	for _, d := range b.items {
		if d.Severity >= SevError {
			parts = append(parts, d.String())
		}
	}
	return strings.Join(parts, "; ")
}
