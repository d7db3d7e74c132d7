package cppreflect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jward/cppreflect/internal/compdb"
	"github.com/jward/cppreflect/internal/diag"
	"github.com/jward/cppreflect/internal/frontend"
	"github.com/jward/cppreflect/internal/snapshot"
)

// Diagnostic is a message reported while compiling a unit.
type Diagnostic = diag.Diagnostic

// DefaultDatabaseFile is the name the generator gives the embedded
// compilation database.
const DefaultDatabaseFile = "compile_commands.json"

// GenerateRequest describes one unit to compile and snapshot.
type GenerateRequest struct {
	// Source is the unit's path, relative to Directory or absolute.
	Source string
	// Args is the build command, argv[0] being the driver. Source is
	// appended when no argument names it.
	Args []string
	// Directory is the working directory of the build command. Defaults to
	// the process working directory.
	Directory string

	// SnapshotPath receives the snapshot.
	SnapshotPath string
	// OutputPath receives the Go registration source. Empty skips it;
	// otherwise SnapshotPath must be inside OutputPath's directory.
	OutputPath string
	// Package names the registration package (DefaultPackage if empty).
	Package string
	// Database is an existing compilation database to embed. Nil embeds a
	// one-entry database synthesized from Args.
	Database []byte

	// TempDir stages scratch databases ("" for the system default).
	TempDir string
	// MaxDiagnostics caps diagnostics per unit (0 = unlimited).
	MaxDiagnostics int
}

// GenerateResult is the outcome of Generate.
type GenerateResult struct {
	Unit        string // absolute path of the compiled unit
	Command     Command
	Model       *Model
	Snapshot    []byte
	Diagnostics []Diagnostic
}

// Generate compiles one unit, writes its snapshot and, when requested, the
// registration source that embeds it.
func Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.Source == "" {
		return nil, fmt.Errorf("cppreflect: generate: no source")
	}
	if len(req.Args) == 0 {
		return nil, fmt.Errorf("cppreflect: generate %s: no build command", req.Source)
	}
	if req.SnapshotPath == "" {
		return nil, fmt.Errorf("cppreflect: generate %s: no snapshot path", req.Source)
	}
	dir := req.Directory
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cppreflect: generate: %w", err)
		}
		dir = wd
	}

	cmd := Command{Directory: dir, Arguments: withSource(req.Args, req.Source, dir)}
	res, err := compileUnit(ctx, cmd, req.TempDir, req.MaxDiagnostics)
	if err != nil {
		return res, err
	}
	if err := writeFile(req.SnapshotPath, res.Snapshot); err != nil {
		return res, fmt.Errorf("cppreflect: generate %s: %w", res.Unit, err)
	}
	if req.OutputPath == "" {
		return res, nil
	}

	dbBytes := req.Database
	if dbBytes == nil {
		if dbBytes, err = compdb.Marshal([]Command{res.Command}); err != nil {
			return res, fmt.Errorf("cppreflect: generate %s: %w", res.Unit, err)
		}
	} else if err := checkDatabaseCovers(dbBytes, res); err != nil {
		return res, fmt.Errorf("cppreflect: generate %s: %w", res.Unit, err)
	}

	outDir := filepath.Dir(req.OutputPath)
	snapRel, err := filepath.Rel(outDir, req.SnapshotPath)
	if err != nil {
		return res, fmt.Errorf("cppreflect: generate %s: %w", res.Unit, err)
	}
	src, err := RenderRegistration(Registration{
		Package:      req.Package,
		DatabaseFile: DefaultDatabaseFile,
		Units:        []RegisteredUnit{{Path: res.Unit, SnapshotFile: filepath.ToSlash(snapRel)}},
	})
	if err != nil {
		return res, err
	}
	if err := writeFile(filepath.Join(outDir, DefaultDatabaseFile), dbBytes); err != nil {
		return res, fmt.Errorf("cppreflect: generate %s: %w", res.Unit, err)
	}
	if err := writeFile(req.OutputPath, src); err != nil {
		return res, fmt.Errorf("cppreflect: generate %s: %w", res.Unit, err)
	}
	return res, nil
}

// compileUnit replays cmd in a fresh session, compiles the unit from disk
// and encodes its snapshot. cmd.File is filled in from the session.
func compileUnit(ctx context.Context, cmd Command, tmpDir string, maxDiags int) (*GenerateResult, error) {
	sess, err := frontend.NewSession(cmd.Arguments,
		frontend.WithDirectory(cmd.Directory),
		frontend.WithTempDir(tmpDir),
		frontend.WithMaxDiagnostics(maxDiags),
	)
	if err != nil {
		return nil, fmt.Errorf("cppreflect: generate: %w", err)
	}
	cmd.File = sess.Invocation().Input
	res := &GenerateResult{Unit: cmd.File, Command: cmd}

	m, err := sess.CompileFile(ctx)
	res.Diagnostics = sess.Diagnostics().Items()
	if err != nil {
		return res, fmt.Errorf("cppreflect: generate: %w", err)
	}
	res.Model = m

	data, err := snapshot.Encode(m, tmpDir)
	if err != nil {
		return res, fmt.Errorf("cppreflect: generate: %w", err)
	}
	res.Snapshot = data
	return res, nil
}

// withSource returns args with source appended unless some argument
// already names it.
func withSource(args []string, source, dir string) []string {
	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(dir, p)
	}
	want := abs(source)
	for _, a := range args[min(1, len(args)):] {
		if a == source || abs(a) == want {
			return args
		}
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args...)
	return append(out, source)
}

// checkDatabaseCovers verifies that the database's command for the unit
// re-creates the session the snapshot was made in.
func checkDatabaseCovers(data []byte, res *GenerateResult) error {
	db, err := compdb.Parse(data)
	if err != nil {
		return err
	}
	cmd, ok := db.Lookup(res.Unit)
	if !ok {
		return fmt.Errorf("compilation database has no entry for %s", res.Unit)
	}
	inv, err := frontend.ParseInvocation(cmd.Arguments, cmd.Directory)
	if err != nil {
		return fmt.Errorf("compilation database entry for %s: %w", res.Unit, err)
	}
	if inv.Fingerprint() != res.Model.Fingerprint {
		return fmt.Errorf("compilation database command for %s differs from the generator's build flags", res.Unit)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
