package cppreflect

import (
	"errors"
	"path/filepath"
	"sort"
	"sync"
)

// Registry indexes unit entries and the compilation database, and hands out
// materialized models. The database is parsed at most once; each unit is
// materialized at most once. A Registry is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	units    map[string]*UnitEntry
	database *DatabaseEntry
	db       *Database
	dbErr    error
	loaded   bool

	firstMatch   bool
	materializer Materializer
}

// Option configures a Registry.
type Option func(*Registry)

// WithFirstMatch resolves an ambiguous relative path to the first matching
// database entry in enumeration order instead of failing.
func WithFirstMatch() Option {
	return func(r *Registry) { r.firstMatch = true }
}

// WithMaterializer sets the materializer used by entries that were created
// without one.
func WithMaterializer(m Materializer) Option {
	return func(r *Registry) { r.materializer = m }
}

func New(opts ...Option) *Registry {
	r := &Registry{units: make(map[string]*UnitEntry)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterUnit indexes e under the cleaned e.Path(). A later registration
// for the same path replaces the earlier one.
func (r *Registry) RegisterUnit(e *UnitEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[filepath.Clean(e.Path())] = e
}

// RegisterDatabase sets the compilation database, replacing any earlier
// entry. Once the database has been parsed it can no longer be replaced.
func (r *Registry) RegisterDatabase(e *DatabaseEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return configError(ErrDatabaseLoaded)
	}
	r.database = e
	return nil
}

// Units returns the registered unit paths, sorted.
func (r *Registry) Units() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.units))
	for p := range r.units {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Loaded reports whether the database has been parsed.
func (r *Registry) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Database returns the parsed compilation database, parsing it on first use.
func (r *Registry) Database() (*Database, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

func (r *Registry) loadLocked() (*Database, error) {
	if r.loaded {
		return r.db, r.dbErr
	}
	if r.database == nil {
		// Not cached: a database registered later still loads.
		return nil, configError(ErrNoDatabase)
	}
	db, err := r.database.Parse()
	if err != nil {
		r.dbErr = configError(err)
	}
	r.db = db
	r.loaded = true
	return r.db, r.dbErr
}

// Resolve maps requested to an absolute database path.
func (r *Registry) Resolve(requested string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(requested)
}

func (r *Registry) resolveLocked(requested string) (string, error) {
	db, err := r.loadLocked()
	if err != nil {
		return "", err
	}
	resolved, err := resolvePath(db.Files(), requested, r.firstMatch)
	if err != nil {
		return "", resolutionError(requested, err)
	}
	return resolved, nil
}

// Model returns the semantic model of the unit at requested, materializing
// it on first access.
func (r *Registry) Model(requested string) (*Model, error) {
	entry, cmd, err := r.lookup(requested)
	if err != nil {
		return nil, err
	}
	return entry.materialize(cmd, r.materializer)
}

// lookup does everything but materialization under the registry lock, so
// materializing one unit does not block lookups of others.
func (r *Registry) lookup(requested string) (*UnitEntry, Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	resolved, err := r.resolveLocked(requested)
	if err != nil {
		return nil, Command{}, err
	}
	entry, err := findUnit(r.units, resolved, r.firstMatch)
	if err != nil {
		return nil, Command{}, resolutionError(resolved, err)
	}
	cmd, ok := r.db.Lookup(resolved)
	if !ok {
		return nil, Command{}, resolutionError(resolved, ErrNoCommand)
	}
	return entry, cmd, nil
}

// IsNotFound reports whether err means the requested unit does not exist,
// as opposed to being broken.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnresolvedPath) || errors.Is(err, ErrUnknownUnit) || errors.Is(err, ErrNoCommand)
}
