package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/cppreflect"
	"github.com/jward/cppreflect/internal/compdb"
)

func (a *app) genCmd() *cobra.Command {
	var (
		source    string
		snapPath  string
		output    string
		pkg       string
		directory string
		embedDB   string
	)
	cmd := &cobra.Command{
		Use:   "gen --source <file> --snapshot <file> [--output <file.go>] -- <build command>",
		Short: "Compile one unit and write its snapshot",
		Long: "Compiles a single translation unit with the given build command, writes its snapshot and, " +
			"with --output, a Go source file that embeds the snapshot and a compilation database.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pkg == "" {
				pkg = a.cfg.Package
			}
			req := cppreflect.GenerateRequest{
				Source:       source,
				Args:         args,
				Directory:    directory,
				SnapshotPath: snapPath,
				OutputPath:   output,
				Package:      pkg,
			}
			if embedDB != "" {
				data, err := os.ReadFile(embedDB)
				if err != nil {
					return fmt.Errorf("reading database: %w", err)
				}
				req.Database = data
			}

			start := time.Now()
			res, err := cppreflect.Generate(cmd.Context(), req)
			out := generatedToCLI(source, snapPath, res, err)
			formatDiagnostics(a.stderr, out.Unit, out.Diagnostics)
			if err != nil {
				return err
			}
			if a.verbose {
				fmt.Fprintf(a.stderr, "Generated %s in %s\n", out.Unit, time.Since(start).Round(time.Millisecond))
			}
			return outputResult(a.stdout, a.format, CLIResult{Command: "gen", Results: out})
		},
	}
	f := cmd.Flags()
	f.StringVar(&source, "source", "", "translation unit to compile")
	f.StringVar(&snapPath, "snapshot", "", "snapshot output path")
	f.StringVar(&output, "output", "", "Go registration output path (snapshot must be in the same directory tree)")
	f.StringVar(&pkg, "package", "", "package name of the registration file (default from config)")
	f.StringVar(&directory, "directory", "", "working directory of the build command (default: current)")
	f.StringVar(&embedDB, "embed-database", "", "compilation database to embed instead of a synthesized one")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

func (a *app) genAllCmd() *cobra.Command {
	var (
		outDir   string
		pkg      string
		jobs     int
		suffix   string
		includes []string
		excludes []string
	)
	cmd := &cobra.Command{
		Use:   "gen-all",
		Short: "Generate snapshots for every unit of a compilation database",
		Long: "Compiles every selected entry of the compilation database in parallel and writes one " +
			"registration file embedding all snapshots. The registration file is only written when every unit succeeds.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			flags := cmd.Flags()
			if flags.Changed("out-dir") {
				cfg.OutDir = outDir
			}
			if flags.Changed("package") {
				cfg.Package = pkg
			}
			if flags.Changed("jobs") {
				cfg.Jobs = jobs
			}
			if flags.Changed("suffix") {
				cfg.SnapshotSuffix = suffix
			}
			if flags.Changed("include") {
				cfg.Include = includes
			}
			if flags.Changed("exclude") {
				cfg.Exclude = excludes
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			data, err := os.ReadFile(cfg.Database)
			if err != nil {
				return fmt.Errorf("reading database: %w", err)
			}
			db, err := compdb.Parse(data)
			if err != nil {
				return fmt.Errorf("%s: %w", cfg.Database, err)
			}

			start := time.Now()
			var mu sync.Mutex
			batch, err := cppreflect.GenerateAll(cmd.Context(), db, cppreflect.BatchRequest{
				OutDir:         cfg.OutDir,
				Package:        cfg.Package,
				Jobs:           cfg.Jobs,
				Select:         cfg.Selects,
				SnapshotSuffix: cfg.SnapshotSuffix,
				Progress: func(u *cppreflect.UnitResult) {
					mu.Lock()
					defer mu.Unlock()
					var diags []cppreflect.Diagnostic
					if u.Result != nil {
						diags = u.Result.Diagnostics
					}
					formatDiagnostics(a.stderr, u.Path, diagnosticsToCLI(diags))
					if !a.verbose {
						return
					}
					if u.Err != nil {
						fmt.Fprintf(a.stderr, "%s %s: %v\n", errorColor.Sprint("failed"), u.Path, u.Err)
						return
					}
					fmt.Fprintf(a.stderr, "%s %s\n", okColor.Sprint("generated"), u.Path)
				},
			})
			if batch == nil {
				return err
			}

			out := CLIBatch{Units: make([]CLIGenerated, len(batch.Units))}
			for i, u := range batch.Units {
				out.Units[i] = generatedToCLI(u.Path, u.SnapshotFile, u.Result, u.Err)
			}
			out.RegistrationFile = batch.RegistrationFile
			if outErr := outputResult(a.stdout, a.format, CLIResult{Command: "gen-all", Results: out}); outErr != nil {
				return outErr
			}
			if a.verbose {
				fmt.Fprintf(a.stderr, "Generated %d unit(s) in %s\n",
					len(batch.Units)-len(batch.Failed()), time.Since(start).Round(time.Millisecond))
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&outDir, "out-dir", "", "output directory (default from config)")
	f.StringVar(&pkg, "package", "", "package name of the registration file (default from config)")
	f.IntVar(&jobs, "jobs", 0, "concurrent compilations (default from config)")
	f.StringVar(&suffix, "suffix", "", "snapshot file suffix (default from config)")
	f.StringSliceVar(&includes, "include", nil, "path globs selecting database entries (\"**\" spans directories)")
	f.StringSliceVar(&excludes, "exclude", nil, "path globs excluding database entries")
	return cmd
}
