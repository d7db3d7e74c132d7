package cppreflect

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cppreflect/internal/compdb"
	"github.com/jward/cppreflect/internal/model"
)

// countingMaterializer builds an empty model per call and counts calls.
type countingMaterializer struct {
	calls atomic.Int32
	err   error
}

func (c *countingMaterializer) Materialize(path string, cmd Command, _ []byte) (*Model, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return model.New(cmd.File, "cpp", "c++17", path), nil
}

func testDatabase(t *testing.T, files ...string) *DatabaseEntry {
	t.Helper()
	cmds := make([]Command, len(files))
	for i, f := range files {
		cmds[i] = Command{Directory: "/", File: f, Arguments: []string{"cc", "-std=c++17", f}}
	}
	data, err := compdb.Marshal(cmds)
	require.NoError(t, err)
	return NewDatabaseEntry(NewBlob(data))
}

func newTestRegistry(t *testing.T, mat Materializer, files ...string) *Registry {
	t.Helper()
	r := New(WithMaterializer(mat))
	require.NoError(t, r.RegisterDatabase(testDatabase(t, files...)))
	for _, f := range files {
		r.RegisterUnit(NewUnitEntry(f, NewBlob([]byte("snapshot of "+f))))
	}
	return r
}

func TestRegistry_ModelIsCached(t *testing.T) {
	t.Parallel()
	mat := &countingMaterializer{}
	r := newTestRegistry(t, mat, "/proj/src/foo/bar.cpp")

	first, err := r.Model("foo/bar.cpp")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "/proj/src/foo/bar.cpp", first.Path)

	for _, p := range []string{"bar.cpp", "/proj/src/foo/bar.cpp", "src/foo/bar.cpp"} {
		m, err := r.Model(p)
		require.NoError(t, err)
		assert.Same(t, first, m, p)
	}
	assert.Equal(t, int32(1), mat.calls.Load())
}

func TestRegistry_ConcurrentMaterializesOnce(t *testing.T) {
	t.Parallel()
	mat := &countingMaterializer{}
	r := newTestRegistry(t, mat, "/p/a.cpp", "/p/b.cpp")

	const callers = 64
	models := make([]*Model, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := "a.cpp"
			if i%2 == 1 {
				path = "/p/a.cpp"
			}
			m, err := r.Model(path)
			assert.NoError(t, err)
			models[i] = m
		}()
	}
	wg.Wait()

	for _, m := range models {
		assert.Same(t, models[0], m)
	}
	assert.Equal(t, int32(1), mat.calls.Load())

	_, err := r.Model("b.cpp")
	require.NoError(t, err)
	assert.Equal(t, int32(2), mat.calls.Load())
}

func TestRegistry_DatabaseParsedOnce(t *testing.T) {
	t.Parallel()
	r := New(WithMaterializer(&countingMaterializer{}))
	dbEntry := testDatabase(t, "/p/a.cpp", "/p/b.cpp")
	require.NoError(t, r.RegisterDatabase(dbEntry))
	r.RegisterUnit(NewUnitEntry("/p/a.cpp", Blob{}))
	assert.False(t, r.Loaded())

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Model("a.cpp")
			_, _ = r.Resolve("b.cpp")
			_, _ = r.Model("missing.cpp")
		}()
	}
	wg.Wait()

	assert.True(t, r.Loaded())
	assert.Equal(t, int32(1), dbEntry.parses.Load())

	err := r.RegisterDatabase(testDatabase(t, "/q/c.cpp"))
	assert.ErrorIs(t, err, ErrDatabaseLoaded)
	assert.Equal(t, KindConfiguration, KindOf(err))
}

func TestRegistry_NoDatabase(t *testing.T) {
	t.Parallel()
	r := New(WithMaterializer(&countingMaterializer{}))
	r.RegisterUnit(NewUnitEntry("/p/a.cpp", Blob{}))

	_, err := r.Model("a.cpp")
	require.ErrorIs(t, err, ErrNoDatabase)
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.False(t, r.Loaded())

	require.NoError(t, r.RegisterDatabase(testDatabase(t, "/p/a.cpp")))
	m, err := r.Model("a.cpp")
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestRegistry_InvalidDatabaseIsCached(t *testing.T) {
	t.Parallel()
	r := New()
	bad := NewDatabaseEntry(NewBlob([]byte(`{"not": "an array"}`)))
	require.NoError(t, r.RegisterDatabase(bad))

	for range 3 {
		m, err := r.Model("a.cpp")
		assert.Nil(t, m)
		require.ErrorIs(t, err, ErrInvalidDatabase)
		assert.Equal(t, KindConfiguration, KindOf(err))
	}
	assert.Equal(t, int32(1), bad.parses.Load())
}

func TestRegistry_ReRegisterDatabaseBeforeLoad(t *testing.T) {
	t.Parallel()
	r := New(WithMaterializer(&countingMaterializer{}))
	require.NoError(t, r.RegisterDatabase(testDatabase(t, "/old/a.cpp")))
	require.NoError(t, r.RegisterDatabase(testDatabase(t, "/new/a.cpp")))

	got, err := r.Resolve("a.cpp")
	require.NoError(t, err)
	assert.Equal(t, "/new/a.cpp", got, "last registration wins")
}

func TestRegistry_ResolutionErrors(t *testing.T) {
	t.Parallel()
	mat := &countingMaterializer{}
	r := New(WithMaterializer(mat))
	require.NoError(t, r.RegisterDatabase(testDatabase(t, "/p/a.cpp", "/p/x/util.c", "/p/y/util.c")))
	r.RegisterUnit(NewUnitEntry("/p/x/util.c", Blob{}))
	r.RegisterUnit(NewUnitEntry("/elsewhere/z.cpp", Blob{}))

	tests := []struct {
		name      string
		requested string
		want      error
	}{
		{"no database match", "nothing.cpp", ErrUnresolvedPath},
		{"no unit registered", "a.cpp", ErrUnknownUnit},
		{"ambiguous suffix", "util.c", ErrAmbiguousPath},
		{"absolute path without command", "/elsewhere/z.cpp", ErrNoCommand},
		{"absolute path without unit", "/p/a.cpp", ErrUnknownUnit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := r.Model(tt.requested)
			assert.Nil(t, m, "never a model on failure")
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindResolution, KindOf(err))
			var rerr *Error
			require.True(t, errors.As(err, &rerr))
			assert.NotEmpty(t, rerr.Path)
		})
	}
	assert.Zero(t, mat.calls.Load())

	m, err := r.Model("x/util.c")
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.True(t, IsNotFound(func() error { _, err := r.Model("a.cpp"); return err }()))
}

func TestRegistry_FirstMatch(t *testing.T) {
	t.Parallel()
	r := New(WithFirstMatch(), WithMaterializer(&countingMaterializer{}))
	require.NoError(t, r.RegisterDatabase(testDatabase(t, "/p/y/util.c", "/p/x/util.c")))
	r.RegisterUnit(NewUnitEntry("/p/y/util.c", Blob{}))
	r.RegisterUnit(NewUnitEntry("/p/x/util.c", Blob{}))

	m, err := r.Model("util.c")
	require.NoError(t, err)
	assert.Equal(t, "/p/y/util.c", m.Path)
}

func TestRegistry_RelativeUnitKey(t *testing.T) {
	t.Parallel()
	r := New(WithMaterializer(&countingMaterializer{}))
	require.NoError(t, r.RegisterDatabase(testDatabase(t, "/proj/src/a.cpp")))
	r.RegisterUnit(NewUnitEntry("src/a.cpp", Blob{}))

	m, err := r.Model("a.cpp")
	require.NoError(t, err)
	assert.Equal(t, "/proj/src/a.cpp", m.Path, "the database command is what gets replayed")
}

func TestRegistry_LastUnitRegistrationWins(t *testing.T) {
	t.Parallel()
	r := New(WithMaterializer(&countingMaterializer{}))
	require.NoError(t, r.RegisterDatabase(testDatabase(t, "/p/a.cpp")))
	first := NewUnitEntry("/p/a.cpp", Blob{})
	second := NewUnitEntry("/p/a.cpp", Blob{})
	r.RegisterUnit(first)
	r.RegisterUnit(second)

	_, err := r.Model("a.cpp")
	require.NoError(t, err)
	assert.False(t, first.Materialized())
	assert.True(t, second.Materialized())
	assert.Equal(t, []string{"/p/a.cpp"}, r.Units())
}

func TestRegistry_MaterializationErrorIsCached(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	mat := &countingMaterializer{err: boom}
	r := newTestRegistry(t, mat, "/p/a.cpp")

	for range 3 {
		m, err := r.Model("a.cpp")
		assert.Nil(t, m)
		require.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, ErrMaterialize)
		assert.Equal(t, KindMaterialization, KindOf(err))
		assert.False(t, IsNotFound(err))
	}
	assert.Equal(t, int32(1), mat.calls.Load())
}

func TestUnitEntry_OwnMaterializerWins(t *testing.T) {
	t.Parallel()
	regMat := &countingMaterializer{}
	unitMat := &countingMaterializer{}
	r := New(WithMaterializer(regMat))
	require.NoError(t, r.RegisterDatabase(testDatabase(t, "/p/a.cpp")))
	r.RegisterUnit(NewUnitEntry("/p/a.cpp", Blob{}, WithUnitMaterializer(unitMat)))

	_, err := r.Model("a.cpp")
	require.NoError(t, err)
	assert.Zero(t, regMat.calls.Load())
	assert.Equal(t, int32(1), unitMat.calls.Load())
}

func TestUnitEntry_ModelDirect(t *testing.T) {
	t.Parallel()
	var seen []byte
	u := NewUnitEntry("/p/a.cpp", NewBlob([]byte("payload")), WithUnitMaterializer(
		MaterializerFunc(func(path string, cmd Command, snap []byte) (*Model, error) {
			seen = snap
			return model.New(path, "cpp", "c++17", ""), nil
		}),
	))
	assert.False(t, u.Materialized())
	assert.Equal(t, 7, u.Snapshot().Len())

	m1, err := u.Model(Command{File: "/p/a.cpp"})
	require.NoError(t, err)
	m2, err := u.Model(Command{File: "/ignored"})
	require.NoError(t, err)
	assert.Same(t, m1, m2)
	assert.True(t, u.Materialized())
	assert.Equal(t, []byte("payload"), seen)
}

func TestUnitEntry_NilModelIsAnError(t *testing.T) {
	t.Parallel()
	u := NewUnitEntry("/p/a.cpp", Blob{}, WithUnitMaterializer(
		MaterializerFunc(func(string, Command, []byte) (*Model, error) { return nil, nil }),
	))
	_, err := u.Model(Command{})
	assert.ErrorIs(t, err, ErrMaterialize)
}

func TestError_Format(t *testing.T) {
	t.Parallel()
	err := resolutionError("a.cpp", ErrUnresolvedPath)
	assert.Equal(t, "cppreflect: resolution error for a.cpp: path matches no compilation database entry", err.Error())
	assert.Equal(t, "cppreflect: configuration error: no compilation database registered", configError(ErrNoDatabase).Error())
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "ErrorKind(9)", ErrorKind(9).String())
}

func TestRegistry_UnitKeysAreCleaned(t *testing.T) {
	t.Parallel()
	r := New(WithMaterializer(&countingMaterializer{}))
	require.NoError(t, r.RegisterDatabase(testDatabase(t, "/p/a.cpp", "/p/src/b.cpp")))
	r.RegisterUnit(NewUnitEntry("/p/./a.cpp", Blob{}))
	r.RegisterUnit(NewUnitEntry("/p//src/../src/b.cpp", Blob{}))

	assert.Equal(t, []string{"/p/a.cpp", "/p/src/b.cpp"}, r.Units())

	for _, p := range []string{"a.cpp", "/p/a.cpp", "src/b.cpp"} {
		m, err := r.Model(p)
		require.NoError(t, err, p)
		require.NotNil(t, m, p)
	}
}
