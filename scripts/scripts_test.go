package scripts_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cppreflect/internal/extract"
	"github.com/jward/cppreflect/internal/model"
	"github.com/jward/cppreflect/internal/script"
	"github.com/jward/cppreflect/scripts"
)

const inventorySource = `#define MAX_ITEMS 16
namespace inv {
struct Item {
  int id;
};
class Store : public Item {
public:
  Store();
  int count(int shelf) const;
private:
  char* label;
};
int total(const Store& s, ...);
}
`

func inventoryModel(t *testing.T) *model.Model {
	t.Helper()
	m, _, err := extract.Extract(context.Background(), []byte(inventorySource), extract.Options{
		Path:     "/src/inv.cpp",
		Language: extract.LangCPP,
		Standard: "c++20",
	})
	require.NoError(t, err)
	return m
}

func run(t *testing.T, name string) string {
	t.Helper()
	var out bytes.Buffer
	rt := script.New(script.WithFS(scripts.FS), script.WithOutput(&out))
	require.NoError(t, rt.Run(context.Background(), inventoryModel(t), name, nil))
	return out.String()
}

func TestEmbeddedScripts(t *testing.T) {
	t.Parallel()
	names, err := script.New(script.WithFS(scripts.FS)).Scripts()
	require.NoError(t, err)
	assert.Equal(t, []string{"fields.risor", "summary.risor"}, names)
}

func TestSummary(t *testing.T) {
	t.Parallel()
	want := `unit /src/inv.cpp (cpp, c++20)
  class: 1
  constructor: 1
  field: 2
  function: 1
  method: 1
  namespace: 1
  struct: 1
struct inv::Item
class inv::Store : Item
  inv::Store::Store()
  int inv::Store::count(int shelf)
  int inv::total(const Store& s, ...)
macros MAX_ITEMS
`
	assert.Equal(t, want, run(t, "summary"))
}

func TestFields(t *testing.T) {
	t.Parallel()
	want := `record,field,type,visibility
inv::Item,id,int,public
inv::Store,label,char*,private
`
	assert.Equal(t, want, run(t, "fields.risor"))
}
