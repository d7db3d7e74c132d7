package frontend

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jward/cppreflect/internal/diag"
	"github.com/jward/cppreflect/internal/extract"
	"github.com/jward/cppreflect/internal/model"
	"github.com/jward/cppreflect/internal/snapshot"
)

// ErrCompile is returned when a unit produced error diagnostics.
var ErrCompile = errors.New("frontend: compilation failed")

// Session is the state a build command establishes: the parsed invocation,
// its preprocessor and accumulated diagnostics. A session holds at most one
// unit's model at a time. Sessions are not safe for concurrent use.
type Session struct {
	inv         *Invocation
	fingerprint string
	pp          *Preprocessor
	diags       *diag.Bag
	model       *model.Model

	dir      string
	tmpDir   string
	maxDiags int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDirectory sets the working directory relative paths in the build
// command are resolved against. Defaults to the process working directory.
func WithDirectory(dir string) SessionOption {
	return func(s *Session) { s.dir = dir }
}

// WithTempDir sets where snapshot payloads are staged while loading.
func WithTempDir(dir string) SessionOption {
	return func(s *Session) { s.tmpDir = dir }
}

// WithMaxDiagnostics caps diagnostics collected per compile.
func WithMaxDiagnostics(n int) SessionOption {
	return func(s *Session) { s.maxDiags = n }
}

// NewSession parses args (argv[0] is the driver) and sets up the
// preprocessor. Errors wrap ErrInvalidCommandLine.
func NewSession(args []string, opts ...SessionOption) (*Session, error) {
	s := &Session{}
	for _, opt := range opts {
		opt(s)
	}
	if s.dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("frontend: working directory: %w", err)
		}
		s.dir = wd
	}

	inv, err := ParseInvocation(args, s.dir)
	if err != nil {
		return nil, err
	}
	s.inv = inv
	s.fingerprint = inv.Fingerprint()
	s.pp = NewPreprocessor(inv)
	s.diags = diag.NewBag(0)
	s.diags.Merge(inv.Diagnostics)
	return s, nil
}

func (s *Session) Invocation() *Invocation { return s.inv }

func (s *Session) Fingerprint() string { return s.fingerprint }

// Diagnostics returns everything reported so far: command-line warnings,
// then per-compile diagnostics.
func (s *Session) Diagnostics() *diag.Bag { return s.diags }

func (s *Session) Preprocessor() *Preprocessor { return s.pp }

// Model returns the unit compiled or loaded last, or nil.
func (s *Session) Model() *model.Model { return s.model }

// Compile builds the model of the session's input from src. The
// preprocessor state is only committed when compilation succeeds.
func (s *Session) Compile(ctx context.Context, src []byte) (*model.Model, error) {
	pp := s.pp.Clone()
	m, bag, err := extract.Extract(ctx, src, extract.Options{
		Path:           s.inv.Input,
		Language:       s.inv.Language,
		Standard:       s.inv.Standard,
		Fingerprint:    s.fingerprint,
		Macros:         pp,
		Predefined:     s.pp.Macros(),
		MaxDiagnostics: s.maxDiags,
	})
	if err != nil {
		return nil, fmt.Errorf("frontend: compile %s: %w", s.inv.Input, err)
	}
	s.diags.Merge(bag)
	if bag.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %s", ErrCompile, s.inv.Input, bag.Summary())
	}
	s.pp = pp
	s.model = m
	return m, nil
}

// CompileFile reads the session's input from disk and compiles it.
func (s *Session) CompileFile(ctx context.Context) (*model.Model, error) {
	src, err := os.ReadFile(s.inv.Input)
	if err != nil {
		return nil, fmt.Errorf("frontend: read %s: %w", s.inv.Input, err)
	}
	return s.Compile(ctx, src)
}

// LoadSnapshot rehydrates a snapshot produced for this session's input and
// flags. A snapshot built for another file or another fingerprint is
// rejected with snapshot.ErrMismatch. Source-defined macros of the unit are
// replayed into the preprocessor.
func (s *Session) LoadSnapshot(data []byte) (*model.Model, error) {
	h, err := snapshot.ReadHeader(data)
	if err != nil {
		return nil, fmt.Errorf("frontend: load %s: %w", s.inv.Input, err)
	}
	if h.Source != s.inv.Input {
		return nil, fmt.Errorf("frontend: load %s: %w: snapshot is for %s", s.inv.Input, snapshot.ErrMismatch, h.Source)
	}
	if h.Language != s.inv.Language || h.Standard != s.inv.Standard {
		return nil, fmt.Errorf("frontend: load %s: %w: snapshot is %s/%s, session is %s/%s",
			s.inv.Input, snapshot.ErrMismatch, h.Language, h.Standard, s.inv.Language, s.inv.Standard)
	}
	if h.Fingerprint != s.fingerprint {
		return nil, fmt.Errorf("frontend: load %s: %w: build flags differ", s.inv.Input, snapshot.ErrMismatch)
	}

	m, err := snapshot.Decode(data, s.tmpDir)
	if err != nil {
		return nil, fmt.Errorf("frontend: load %s: %w", s.inv.Input, err)
	}
	for _, mac := range m.Macros {
		if mac.Origin == model.OriginSource {
			s.pp.Define(mac.Name, mac.Value)
		}
	}
	s.model = m
	return m, nil
}
