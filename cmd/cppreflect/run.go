package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/cppreflect/internal/script"
	"github.com/jward/cppreflect/scripts"
)

func (a *app) runCmd() *cobra.Command {
	var (
		scriptsDir string
		list       bool
		vars       map[string]string
	)
	cmd := &cobra.Command{
		Use:   "run <script> <snapshot>",
		Short: "Run a Risor codegen script against a materialized unit",
		Long: "Materializes the unit of a snapshot and runs a Risor script over its model. Scripts write " +
			"their output with emit(). Built-in scripts are used unless --scripts-dir is given.",
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []script.Option{script.WithOutput(a.stdout), script.WithLogOutput(a.stderr)}
			if scriptsDir != "" {
				opts = append(opts, script.WithDir(scriptsDir))
			} else {
				opts = append(opts, script.WithFS(scripts.FS))
			}
			rt := script.New(opts...)

			if list {
				names, err := rt.Scripts()
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(a.stdout, n)
				}
				return nil
			}

			m, err := a.materialize(args[1])
			if err != nil {
				return err
			}
			extra := make(map[string]any, len(vars))
			for k, v := range vars {
				extra[k] = v
			}
			return rt.Run(cmd.Context(), m, args[0], extra)
		},
	}
	f := cmd.Flags()
	f.StringVar(&scriptsDir, "scripts-dir", "", "load scripts from disk path instead of the built-in set")
	f.BoolVar(&list, "list", false, "list available scripts")
	f.StringToStringVar(&vars, "var", nil, "extra script globals as name=value")
	return cmd
}
