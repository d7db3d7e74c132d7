package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	noteColor    = color.New(color.FgCyan)
	okColor      = color.New(color.FgGreen)
)

// formatDeclsText formats CLIDecl results as aligned columns.
func formatDeclsText(w io.Writer, decls []CLIDecl) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tVISIBILITY\tTYPE\tLINE")
	for _, d := range decls {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n",
			d.ID, d.QualifiedName, d.Kind, d.Visibility, d.Type, d.StartLine)
	}
	tw.Flush()
}

// formatSummaryText formats CLIUnitSummary as readable text.
func formatSummaryText(w io.Writer, s CLIUnitSummary) {
	fmt.Fprintf(w, "Unit: %s\n", s.Path)
	fmt.Fprintf(w, "Language: %s (%s)\n", s.Language, s.Standard)
	fmt.Fprintf(w, "Declarations: %d\n", s.DeclCount)
	fmt.Fprintf(w, "Macros: %d\n", s.MacroCount)
	fmt.Fprintf(w, "Includes: %d\n", s.IncludeCount)
	fmt.Fprintln(w)

	if len(s.KindCounts) > 0 {
		fmt.Fprintln(w, "Kinds:")
		kinds := make([]string, 0, len(s.KindCounts))
		for kind := range s.KindCounts {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(w, "  %s: %d\n", kind, s.KindCounts[kind])
		}
		fmt.Fprintln(w)
	}

	if len(s.TopLevel) > 0 {
		fmt.Fprintln(w, "Top Level:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, d := range s.TopLevel {
			fmt.Fprintf(tw, "  %s\t%s\t%d\n", d.QualifiedName, d.Kind, d.StartLine)
		}
		tw.Flush()
	}
}

// formatHierarchyText formats CLIHierarchy as readable text.
func formatHierarchyText(w io.Writer, h CLIHierarchy) {
	fmt.Fprintf(w, "%s %s\n", h.Record.Kind, h.Record.QualifiedName)
	if len(h.Bases) > 0 {
		fmt.Fprintln(w, "Bases:")
		for _, b := range h.Bases {
			label := strings.TrimSpace(b.Access + " " + b.Name)
			if b.Virtual {
				label = "virtual " + label
			}
			where := "external"
			if b.Decl != nil {
				where = fmt.Sprintf("line %d", b.Decl.StartLine)
			}
			fmt.Fprintf(w, "  %s (%s)\n", label, where)
		}
	}
	if len(h.Derived) > 0 {
		fmt.Fprintln(w, "Derived:")
		for _, d := range h.Derived {
			fmt.Fprintf(w, "  %s (line %d)\n", d.QualifiedName, d.StartLine)
		}
	}
}

// formatResolutionsText prints one "requested -> resolved" line per path.
func formatResolutionsText(w io.Writer, rs []CLIResolution) {
	for _, r := range rs {
		if r.Error != "" {
			fmt.Fprintf(w, "%s: %s\n", r.Requested, errorColor.Sprint(r.Error))
			continue
		}
		fmt.Fprintf(w, "%s -> %s\n", r.Requested, r.Resolved)
	}
}

// formatGeneratedText prints one status line per generated unit.
func formatGeneratedText(w io.Writer, units []CLIGenerated) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tUNIT\tSNAPSHOT\tDECLS\tBYTES")
	for _, u := range units {
		status := okColor.Sprint("ok")
		if u.Error != "" {
			status = errorColor.Sprint("failed")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", status, u.Unit, u.Snapshot, u.DeclCount, u.Bytes)
	}
	tw.Flush()
}

// formatDiagnostics writes diagnostics to w, colored by severity.
func formatDiagnostics(w io.Writer, unit string, ds []CLIDiagnostic) {
	for _, d := range ds {
		c := noteColor
		switch d.Severity {
		case "error":
			c = errorColor
		case "warning":
			c = warningColor
		}
		loc := unit
		if d.Line > 0 {
			loc = fmt.Sprintf("%s:%d:%d", unit, d.Line, d.Col)
		}
		fmt.Fprintf(w, "%s: %s %s\n", loc, c.Sprint(d.Severity+":"), d.Message)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIDecl:
		formatDeclsText(w, v)
	case CLIDecl:
		formatDeclsText(w, []CLIDecl{v})
	case CLIUnitSummary:
		formatSummaryText(w, v)
	case CLIHierarchy:
		formatHierarchyText(w, v)
	case []CLIResolution:
		formatResolutionsText(w, v)
	case CLIGenerated:
		formatGeneratedText(w, []CLIGenerated{v})
	case CLIBatch:
		formatGeneratedText(w, v.Units)
		if v.RegistrationFile != "" {
			fmt.Fprintf(w, "\nRegistration: %s\n", v.RegistrationFile)
		}
	case nil:
		// No output for nil results (e.g., decl-at with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIDecl:
		return len(r)
	case []CLIResolution:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// outputResult writes result to w in the selected format.
func outputResult(w io.Writer, format string, result CLIResult) error {
	switch format {
	case "text":
		return outputResultText(w, result)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text", "yaml"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(validFormats, ", "))
}
