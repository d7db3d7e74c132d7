package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/cppreflect"
)

func (a *app) dumpCmd() *cobra.Command {
	var (
		search    string
		kinds     []string
		at        string
		hierarchy string
		limit     int
		offset    int
		sortField string
		order     string
	)
	cmd := &cobra.Command{
		Use:   "dump <snapshot>",
		Short: "Materialize a snapshot and print its model",
		Long: "Registers the snapshot with the compilation database, materializes the unit's model and " +
			"prints a summary, or the declarations selected by --search, --kind, --at or --hierarchy. " +
			"Line and column numbers are 1-based.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.materialize(args[0])
			if err != nil {
				return err
			}
			q := cppreflect.Query(m)

			switch {
			case at != "":
				line, col, err := parsePosition(at)
				if err != nil {
					return err
				}
				scope := q.ScopeAt(line, col)
				return outputResult(a.stdout, a.format, CLIResult{Command: "dump", Results: declsToCLI(q, scope)})

			case hierarchy != "":
				d, ok := m.Lookup(hierarchy)
				if !ok {
					return fmt.Errorf("no declaration named %s", hierarchy)
				}
				h := q.TypeHierarchy(d.ID)
				if h == nil {
					return fmt.Errorf("%s is a %s, not a record", hierarchy, d.Kind)
				}
				return outputResult(a.stdout, a.format, CLIResult{Command: "dump", Results: hierarchyToCLI(q, h)})

			case search != "" || len(kinds) > 0:
				s, err := parseSort(sortField, order)
				if err != nil {
					return err
				}
				filter := cppreflect.DeclFilter{Kinds: kinds}
				page := cppreflect.Pagination{Offset: offset, Limit: limit}
				var res *cppreflect.PagedResult[*cppreflect.Decl]
				if search != "" {
					res = q.SearchDecls(search, filter, s, page)
				} else {
					res = q.Decls(filter, s, page)
				}
				total := res.TotalCount
				return outputResult(a.stdout, a.format, CLIResult{
					Command:    "dump",
					Results:    declsToCLI(q, res.Items),
					TotalCount: &total,
				})
			}
			return outputResult(a.stdout, a.format, CLIResult{Command: "dump", Results: summaryToCLI(q, q.Summary())})
		},
	}
	f := cmd.Flags()
	f.StringVar(&search, "search", "", "glob over qualified or short names (e.g. \"app::*\", \"*Handler\")")
	f.StringSliceVar(&kinds, "kind", nil, "declaration kinds to list (class, struct, function, ...)")
	f.StringVar(&at, "at", "", "print the scope chain at <line>:<col>")
	f.StringVar(&hierarchy, "hierarchy", "", "print bases and derived records of a qualified record name")
	f.IntVar(&limit, "limit", 50, "pagination limit (max 500)")
	f.IntVar(&offset, "offset", 0, "pagination offset")
	f.StringVar(&sortField, "sort", "source", "sort field: source|name|kind|line")
	f.StringVar(&order, "order", "asc", "sort order: asc|desc")
	return cmd
}

// parsePosition parses "line:col".
func parsePosition(v string) (line, col int, err error) {
	l, c, ok := strings.Cut(v, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid position %q: want <line>:<col>", v)
	}
	if line, err = parsePositiveInt(l, "line"); err != nil {
		return 0, 0, err
	}
	if col, err = parsePositiveInt(c, "col"); err != nil {
		return 0, 0, err
	}
	return line, col, nil
}

// parsePositiveInt parses a 1-based coordinate with a clear error.
func parsePositiveInt(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, value)
	}
	return n, nil
}

func parseSort(field, order string) (cppreflect.Sort, error) {
	s := cppreflect.Sort{Field: cppreflect.SortField(field), Order: cppreflect.SortOrder(order)}
	switch s.Field {
	case cppreflect.SortBySource, cppreflect.SortByName, cppreflect.SortByKind, cppreflect.SortByLine:
	default:
		return s, fmt.Errorf("invalid sort field %q: must be source, name, kind or line", field)
	}
	switch s.Order {
	case cppreflect.Asc, cppreflect.Desc:
	default:
		return s, fmt.Errorf("invalid sort order %q: must be asc or desc", order)
	}
	return s, nil
}
