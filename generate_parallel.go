package cppreflect

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jward/cppreflect/internal/compdb"
)

// DefaultSnapshotSuffix is appended to snapshot file names.
const DefaultSnapshotSuffix = ".snap"

// DefaultRegistrationFile names the registration source GenerateAll writes.
const DefaultRegistrationFile = "cppreflect_gen.go"

// BatchRequest describes a GenerateAll run.
type BatchRequest struct {
	// OutDir receives the snapshots, the database and the registration file.
	OutDir  string
	Package string
	// Jobs bounds concurrent compilations (GOMAXPROCS if <= 0).
	Jobs int
	// Select picks the database files to generate; nil selects all.
	Select func(path string) bool
	// SnapshotSuffix defaults to DefaultSnapshotSuffix.
	SnapshotSuffix string

	TempDir        string
	MaxDiagnostics int

	// Progress, when set, is called once per finished unit. Calls may come
	// from several goroutines.
	Progress func(res *UnitResult)
}

// UnitResult is the outcome for one unit of a batch.
type UnitResult struct {
	Path         string
	SnapshotFile string // relative to OutDir
	Result       *GenerateResult
	Err          error
}

// BatchResult lists per-unit outcomes in database enumeration order.
type BatchResult struct {
	Units            []*UnitResult
	RegistrationFile string // empty when any unit failed
}

// Failed returns the units that did not generate.
func (b *BatchResult) Failed() []*UnitResult {
	var out []*UnitResult
	for _, u := range b.Units {
		if u.Err != nil {
			out = append(out, u)
		}
	}
	return out
}

// GenerateAll compiles every selected unit of db in parallel, then writes
// one database and one registration file covering all of them:
//
//	Phase A (serial):   select units and assign snapshot names.
//	Phase B (parallel): compile and encode each unit, write its snapshot.
//	Phase C (serial):   write the database and the registration source.
//
// A failing unit does not stop the others; the registration file is only
// written when every unit succeeded.
func GenerateAll(ctx context.Context, db *Database, req BatchRequest) (*BatchResult, error) {
	if req.OutDir == "" {
		return nil, fmt.Errorf("cppreflect: generate all: no output directory")
	}
	suffix := req.SnapshotSuffix
	if suffix == "" {
		suffix = DefaultSnapshotSuffix
	}

	// ---- Phase A ----
	var units []*UnitResult
	var cmds []Command
	for _, path := range db.Files() {
		if req.Select != nil && !req.Select(path) {
			continue
		}
		units = append(units, &UnitResult{
			Path:         path,
			SnapshotFile: snapshotName(len(units), path, suffix),
		})
		cmds = append(cmds, db.Commands(path)...)
	}
	result := &BatchResult{Units: units}
	if len(units) == 0 {
		return result, fmt.Errorf("cppreflect: generate all: no units selected")
	}

	// ---- Phase B ----
	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(units)))
	for _, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				u.Err = err
				return err
			}
			cmd, _ := db.Lookup(u.Path)
			res, err := compileUnit(gctx, cmd, req.TempDir, req.MaxDiagnostics)
			u.Result = res
			if err == nil {
				err = writeFile(filepath.Join(req.OutDir, u.SnapshotFile), res.Snapshot)
			}
			u.Err = err
			if req.Progress != nil {
				req.Progress(u)
			}
			// Unit failures are reported per unit; only cancellation stops
			// the group.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("cppreflect: generate all: %w", err)
	}

	// ---- Phase C ----
	if failed := result.Failed(); len(failed) > 0 {
		return result, fmt.Errorf("cppreflect: generate all: %d of %d unit(s) failed, first %s: %w",
			len(failed), len(units), failed[0].Path, failed[0].Err)
	}

	dbBytes, err := compdb.Marshal(cmds)
	if err != nil {
		return result, fmt.Errorf("cppreflect: generate all: %w", err)
	}
	reg := Registration{Package: req.Package, DatabaseFile: DefaultDatabaseFile}
	for _, u := range units {
		reg.Units = append(reg.Units, RegisteredUnit{Path: u.Path, SnapshotFile: u.SnapshotFile})
	}
	src, err := RenderRegistration(reg)
	if err != nil {
		return result, err
	}
	if err := writeFile(filepath.Join(req.OutDir, DefaultDatabaseFile), dbBytes); err != nil {
		return result, fmt.Errorf("cppreflect: generate all: %w", err)
	}
	regPath := filepath.Join(req.OutDir, DefaultRegistrationFile)
	if err := writeFile(regPath, src); err != nil {
		return result, fmt.Errorf("cppreflect: generate all: %w", err)
	}
	result.RegistrationFile = regPath
	return result, nil
}

// snapshotName gives unit i a file name that is unique within the batch and
// safe for go:embed.
func snapshotName(i int, path, suffix string) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, filepath.Base(path))
	return fmt.Sprintf("%03d_%s%s", i, base, suffix)
}
