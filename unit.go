package cppreflect

import (
	"sync"
)

// UnitEntry is one translation unit's embedded snapshot together with its
// lazily materialized model.
type UnitEntry struct {
	path         string
	snapshot     Blob
	materializer Materializer

	mu    sync.Mutex
	done  bool
	model *Model
	err   error
}

// UnitOption configures a UnitEntry.
type UnitOption func(*UnitEntry)

// WithUnitMaterializer overrides the materializer for this entry only.
func WithUnitMaterializer(m Materializer) UnitOption {
	return func(u *UnitEntry) { u.materializer = m }
}

// NewUnitEntry wraps the snapshot of the unit at path. The path is the key
// the entry is registered under and may be relative.
func NewUnitEntry(path string, snapshot Blob, opts ...UnitOption) *UnitEntry {
	u := &UnitEntry{path: path, snapshot: snapshot}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *UnitEntry) Path() string { return u.path }

func (u *UnitEntry) Snapshot() Blob { return u.snapshot }

// Materialized reports whether Model has completed, successfully or not.
func (u *UnitEntry) Materialized() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.done
}

// Model materializes the unit with cmd on the first call and returns the
// cached result on every later call, including a cached failure. Concurrent
// first callers wait for the single materialization.
func (u *UnitEntry) Model(cmd Command) (*Model, error) {
	return u.materialize(cmd, nil)
}

func (u *UnitEntry) materialize(cmd Command, fallback Materializer) (*Model, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return u.model, u.err
	}

	m := u.materializer
	if m == nil {
		m = fallback
	}
	if m == nil {
		m = FrontendMaterializer{}
	}

	model, err := m.Materialize(u.path, cmd, u.snapshot.Bytes())
	switch {
	case err != nil:
		u.err = &Error{Kind: KindMaterialization, Path: u.path, Err: err}
	case model == nil:
		u.err = &Error{Kind: KindMaterialization, Path: u.path, Err: ErrMaterialize}
	default:
		u.model = model
	}
	u.done = true
	return u.model, u.err
}
