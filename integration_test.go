package cppreflect

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cppreflect/internal/compdb"
	"github.com/jward/cppreflect/internal/frontend"
	"github.com/jward/cppreflect/internal/snapshot"
)

const widgetSource = `#include <string>
#define WIDGET_VERSION 2

namespace ui {

class Widget {
public:
  Widget(int id);
  virtual ~Widget();
  int id() const;
private:
  int id_;
};

class Button : public Widget {
public:
  void click(int times = 1);
};

enum class Align { Left, Right };

} // namespace ui
`

// snapshotFor compiles src as if built by args in dir and returns the
// snapshot bytes.
func snapshotFor(t *testing.T, dir string, src string, args ...string) []byte {
	t.Helper()
	sess, err := frontend.NewSession(args, frontend.WithDirectory(dir), frontend.WithTempDir(t.TempDir()))
	require.NoError(t, err)
	m, err := sess.Compile(context.Background(), []byte(src))
	require.NoError(t, err)
	data, err := snapshot.Encode(m, t.TempDir())
	require.NoError(t, err)
	return data
}

func databaseBlob(t *testing.T, cmds ...Command) Blob {
	t.Helper()
	data, err := compdb.Marshal(cmds)
	require.NoError(t, err)
	return NewBlob(data)
}

func TestIntegration_MaterializeFromSnapshot(t *testing.T) {
	t.Parallel()
	args := []string{"cc1", "-std=c++17", "/p/a.src"}
	snap := snapshotFor(t, "/p", widgetSource, args...)

	r := New(WithMaterializer(FrontendMaterializer{TempDir: t.TempDir()}))
	require.NoError(t, r.RegisterDatabase(NewDatabaseEntry(databaseBlob(t,
		Command{Directory: "/p", File: "/p/a.src", Arguments: args},
	))))
	r.RegisterUnit(NewUnitEntry("/p/a.src", NewBlob(snap)))

	m, err := r.Model("a.src")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "/p/a.src", m.Path)
	assert.Equal(t, "cpp", m.Language)
	assert.Equal(t, "c++17", m.Standard)

	again, err := r.Model("/p/a.src")
	require.NoError(t, err)
	assert.Same(t, m, again)

	button, ok := m.Lookup("ui::Button")
	require.True(t, ok)
	require.Len(t, button.Bases, 1)
	assert.Equal(t, "Widget", button.Bases[0].Name)
	assert.Equal(t, "public", button.Bases[0].Access)

	click, ok := m.Lookup("ui::Button::click")
	require.True(t, ok)
	assert.Equal(t, KindMethod, click.Kind)
	require.Len(t, click.Params, 1)
	assert.Equal(t, "1", click.Params[0].Default)
	assert.Same(t, button, click.Parent)

	_, ok = m.Lookup("ui::Widget::~Widget")
	assert.True(t, ok)
	right, ok := m.Lookup("ui::Align::Right")
	require.True(t, ok)
	assert.Equal(t, KindEnumerator, right.Kind)

	ver, ok := m.Macro("WIDGET_VERSION")
	require.True(t, ok)
	assert.Equal(t, "2", ver.Value)
	require.Len(t, m.Includes, 1)
	assert.Equal(t, "string", m.Includes[0].Path)
}

func TestIntegration_FlagMismatchFailsMaterialization(t *testing.T) {
	t.Parallel()
	snap := snapshotFor(t, "/p", widgetSource, "cc1", "-std=c++17", "/p/a.src")

	r := New()
	require.NoError(t, r.RegisterDatabase(NewDatabaseEntry(databaseBlob(t,
		Command{Directory: "/p", File: "/p/a.src", Arguments: []string{"cc1", "-std=c++17", "-DOTHER", "/p/a.src"}},
	))))
	r.RegisterUnit(NewUnitEntry("/p/a.src", NewBlob(snap)))

	m, err := r.Model("a.src")
	assert.Nil(t, m)
	require.ErrorIs(t, err, snapshot.ErrMismatch)
	assert.Equal(t, KindMaterialization, KindOf(err))
}

func TestIntegration_CorruptSnapshot(t *testing.T) {
	t.Parallel()
	r := New()
	require.NoError(t, r.RegisterDatabase(NewDatabaseEntry(databaseBlob(t,
		Command{Directory: "/p", File: "/p/a.src", Arguments: []string{"cc1", "-std=c++17", "/p/a.src"}},
	))))
	r.RegisterUnit(NewUnitEntry("/p/a.src", NewBlob([]byte("definitely not a snapshot"))))

	_, err := r.Model("a.src")
	require.ErrorIs(t, err, snapshot.ErrCorrupt)
	assert.ErrorIs(t, err, ErrMaterialize)
}

func TestIntegration_GeneratedOutputsLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src", "widget.cpp")
	require.NoError(t, os.MkdirAll(filepath.Dir(srcPath), 0o755))
	require.NoError(t, os.WriteFile(srcPath, []byte(widgetSource), 0o644))

	out := filepath.Join(dir, "gen")
	res, err := Generate(context.Background(), GenerateRequest{
		Source:       "src/widget.cpp",
		Args:         []string{"c++", "-std=c++20"},
		Directory:    dir,
		SnapshotPath: filepath.Join(out, "widget.snap"),
		OutputPath:   filepath.Join(out, "register.go"),
		TempDir:      t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, srcPath, res.Unit)

	dbBytes, err := os.ReadFile(filepath.Join(out, DefaultDatabaseFile))
	require.NoError(t, err)
	snapBytes, err := os.ReadFile(filepath.Join(out, "widget.snap"))
	require.NoError(t, err)

	r := New(WithMaterializer(FrontendMaterializer{TempDir: t.TempDir()}))
	require.NoError(t, r.RegisterDatabase(NewDatabaseEntry(NewBlob(dbBytes))))
	r.RegisterUnit(NewUnitEntry(res.Unit, NewBlob(snapBytes)))

	var wg sync.WaitGroup
	models := make([]*Model, 8)
	for i := range models {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := r.Model("src/widget.cpp")
			assert.NoError(t, err)
			models[i] = m
		}()
	}
	wg.Wait()
	require.NotNil(t, models[0])
	for _, m := range models {
		assert.Same(t, models[0], m)
	}
	assert.Equal(t, "c++20", models[0].Standard)
	assert.Equal(t, res.Model.Fingerprint, models[0].Fingerprint)
	assert.Equal(t, res.Model.Len(), models[0].Len())
}
