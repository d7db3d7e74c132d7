package main

import (
	"github.com/jward/cppreflect"
)

// CLIResult is the top-level envelope for all commands.
type CLIResult struct {
	Command    string `json:"command" yaml:"command"`
	Results    any    `json:"results" yaml:"results"`
	TotalCount *int   `json:"total_count,omitempty" yaml:"total_count,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIDecl is a serializable declaration.
type CLIDecl struct {
	ID            int64    `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	QualifiedName string   `json:"qualified_name" yaml:"qualified_name"`
	Kind          string   `json:"kind" yaml:"kind"`
	Visibility    string   `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Modifiers     []string `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Type          string   `json:"type,omitempty" yaml:"type,omitempty"`
	File          string   `json:"file" yaml:"file"`
	StartLine     int      `json:"start_line" yaml:"start_line"`
	StartCol      int      `json:"start_col" yaml:"start_col"`
	EndLine       int      `json:"end_line" yaml:"end_line"`
	EndCol        int      `json:"end_col" yaml:"end_col"`
}

// CLIUnitSummary is the overview of one materialized unit.
type CLIUnitSummary struct {
	Path         string         `json:"path" yaml:"path"`
	Language     string         `json:"language" yaml:"language"`
	Standard     string         `json:"standard" yaml:"standard"`
	DeclCount    int            `json:"decl_count" yaml:"decl_count"`
	KindCounts   map[string]int `json:"kind_counts" yaml:"kind_counts"`
	MacroCount   int            `json:"macro_count" yaml:"macro_count"`
	IncludeCount int            `json:"include_count" yaml:"include_count"`
	TopLevel     []CLIDecl      `json:"top_level" yaml:"top_level"`
}

// CLIHierarchy is the inheritance view of a record.
type CLIHierarchy struct {
	Record  CLIDecl   `json:"record" yaml:"record"`
	Bases   []CLIBase `json:"bases" yaml:"bases"`
	Derived []CLIDecl `json:"derived" yaml:"derived"`
}

// CLIBase is one base-specifier; Decl is nil for bases declared outside
// the unit.
type CLIBase struct {
	Name    string   `json:"name" yaml:"name"`
	Access  string   `json:"access,omitempty" yaml:"access,omitempty"`
	Virtual bool     `json:"virtual,omitempty" yaml:"virtual,omitempty"`
	Decl    *CLIDecl `json:"decl,omitempty" yaml:"decl,omitempty"`
}

// CLIResolution is the outcome of resolving one requested path.
type CLIResolution struct {
	Requested string `json:"requested" yaml:"requested"`
	Resolved  string `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIGenerated is the outcome of generating one unit.
type CLIGenerated struct {
	Unit        string          `json:"unit" yaml:"unit"`
	Snapshot    string          `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Bytes       int             `json:"bytes" yaml:"bytes"`
	DeclCount   int             `json:"decl_count" yaml:"decl_count"`
	Diagnostics []CLIDiagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Error       string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIBatch is the outcome of gen-all.
type CLIBatch struct {
	Units            []CLIGenerated `json:"units" yaml:"units"`
	RegistrationFile string         `json:"registration_file,omitempty" yaml:"registration_file,omitempty"`
}

// CLIDiagnostic is a serializable diagnostic.
type CLIDiagnostic struct {
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message" yaml:"message"`
	Line     int    `json:"line,omitempty" yaml:"line,omitempty"`
	Col      int    `json:"col,omitempty" yaml:"col,omitempty"`
}

// --- Conversion helpers ---

func declToCLI(q *cppreflect.QueryBuilder, d *cppreflect.Decl) CLIDecl {
	loc := q.LocationOf(d)
	return CLIDecl{
		ID:            d.ID,
		Name:          d.Name,
		QualifiedName: d.QualifiedName,
		Kind:          d.Kind,
		Visibility:    d.Visibility,
		Modifiers:     d.Modifiers,
		Type:          d.Type,
		File:          loc.File,
		StartLine:     loc.StartLine,
		StartCol:      loc.StartCol,
		EndLine:       loc.EndLine,
		EndCol:        loc.EndCol,
	}
}

func declsToCLI(q *cppreflect.QueryBuilder, ds []*cppreflect.Decl) []CLIDecl {
	out := make([]CLIDecl, len(ds))
	for i, d := range ds {
		out[i] = declToCLI(q, d)
	}
	return out
}

func summaryToCLI(q *cppreflect.QueryBuilder, s *cppreflect.UnitSummary) CLIUnitSummary {
	return CLIUnitSummary{
		Path:         s.Path,
		Language:     s.Language,
		Standard:     s.Standard,
		DeclCount:    s.DeclCount,
		KindCounts:   s.KindCounts,
		MacroCount:   s.MacroCount,
		IncludeCount: s.IncludeCount,
		TopLevel:     declsToCLI(q, s.TopLevel),
	}
}

func hierarchyToCLI(q *cppreflect.QueryBuilder, h *cppreflect.TypeHierarchy) CLIHierarchy {
	out := CLIHierarchy{
		Record:  declToCLI(q, h.Record),
		Bases:   make([]CLIBase, len(h.Bases)),
		Derived: declsToCLI(q, h.Derived),
	}
	for i, rel := range h.Bases {
		b := CLIBase{Name: rel.Base.Name, Access: rel.Base.Access, Virtual: rel.Base.Virtual}
		if rel.Decl != nil {
			d := declToCLI(q, rel.Decl)
			b.Decl = &d
		}
		out.Bases[i] = b
	}
	return out
}

func diagnosticsToCLI(ds []cppreflect.Diagnostic) []CLIDiagnostic {
	if len(ds) == 0 {
		return nil
	}
	out := make([]CLIDiagnostic, len(ds))
	for i, d := range ds {
		out[i] = CLIDiagnostic{Severity: d.Severity.String(), Message: d.Message, Line: d.Line, Col: d.Col}
	}
	return out
}

func generatedToCLI(unit, snapshotFile string, res *cppreflect.GenerateResult, err error) CLIGenerated {
	out := CLIGenerated{Unit: unit, Snapshot: snapshotFile}
	if res != nil {
		if res.Unit != "" {
			out.Unit = res.Unit
		}
		out.Bytes = len(res.Snapshot)
		if res.Model != nil {
			out.DeclCount = res.Model.Len()
		}
		out.Diagnostics = diagnosticsToCLI(res.Diagnostics)
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}
