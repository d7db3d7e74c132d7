package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <path>...",
		Short: "Resolve paths against the compilation database",
		Long: "Resolves each path the way the registry does: absolute paths as is, relative paths by " +
			"matching whole trailing path components of the database entries.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			out := make([]CLIResolution, len(args))
			failed := 0
			for i, p := range args {
				out[i] = CLIResolution{Requested: p}
				resolved, err := reg.Resolve(p)
				if err != nil {
					out[i].Error = err.Error()
					failed++
					continue
				}
				out[i].Resolved = resolved
			}
			if err := outputResult(a.stdout, a.format, CLIResult{Command: "resolve", Results: out}); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d path(s) did not resolve", failed, len(args))
			}
			return nil
		},
	}
}
