package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jward/cppreflect"
	"github.com/jward/cppreflect/internal/config"
	"github.com/jward/cppreflect/internal/snapshot"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(1)
	}
}

// app carries the persistent flags and the loaded configuration shared by
// every subcommand.
type app struct {
	configPath string
	format     string
	verbose    bool
	database   string
	firstMatch bool

	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "cppreflect",
		Short:         "Reflection data for C and C++ translation units",
		Long:          "cppreflect compiles C/C++ translation units into snapshots, generates Go sources that embed them, and materializes their semantic models on demand.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(a.format); err != nil {
				return err
			}
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("database") {
				cfg.Database = a.database
			}
			if a.firstMatch {
				cfg.Ambiguity = config.AmbiguityFirst
			}
			a.cfg = cfg
			return nil
		},
		// No Run; prints help by default.
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: cppreflect.yaml or cppreflect.toml in the working directory)")
	pf.StringVar(&a.format, "format", "text", "output format: json|text|yaml")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "report per-unit progress on stderr")
	pf.StringVar(&a.database, "database", "", "compilation database (overrides the config file)")
	pf.BoolVar(&a.firstMatch, "first-match", false, "resolve ambiguous paths to the first candidate")

	root.AddCommand(a.genCmd())
	root.AddCommand(a.genAllCmd())
	root.AddCommand(a.resolveCmd())
	root.AddCommand(a.dumpCmd())
	root.AddCommand(a.runCmd())
	return root
}

// registry builds a Registry over the configured compilation database.
func (a *app) registry() (*cppreflect.Registry, error) {
	data, err := os.ReadFile(a.cfg.Database)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found: %s", a.cfg.Database)
		}
		return nil, fmt.Errorf("reading database: %w", err)
	}
	var opts []cppreflect.Option
	if a.cfg.FirstMatch() {
		opts = append(opts, cppreflect.WithFirstMatch())
	}
	reg := cppreflect.New(opts...)
	if err := reg.RegisterDatabase(cppreflect.NewDatabaseEntry(cppreflect.NewBlob(data))); err != nil {
		return nil, err
	}
	return reg, nil
}

// materialize registers the snapshot at snapPath under the unit recorded in
// its header and asks the registry for the model.
func (a *app) materialize(snapPath string) (*cppreflect.Model, error) {
	data, err := os.ReadFile(snapPath)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	h, err := snapshot.ReadHeader(data)
	if err != nil {
		return nil, err
	}
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	reg.RegisterUnit(cppreflect.NewUnitEntry(h.Source, cppreflect.NewBlob(data)))
	if a.verbose {
		fmt.Fprintf(a.stderr, "materializing %s from %s\n", h.Source, snapPath)
	}
	return reg.Model(h.Source)
}
