package compdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ArgumentsForm(t *testing.T) {
	t.Parallel()
	db, err := Parse([]byte(`[
  {"directory": "/p", "file": "/p/a.src", "arguments": ["cc1", "-std=c++17", "/p/a.src"]}
]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"/p/a.src"}, db.Files())
	cmd, ok := db.Lookup("/p/a.src")
	require.True(t, ok)
	assert.Equal(t, []string{"cc1", "-std=c++17", "/p/a.src"}, cmd.Arguments)
	assert.Equal(t, "/p", cmd.Directory)
}

func TestParse_CommandStringIsSplit(t *testing.T) {
	t.Parallel()
	db, err := Parse([]byte(`[
  {"directory": "/w", "file": "src/x.cpp", "command": "clang++ -DNAME=\"a b\" -I include -c src/x.cpp -o x.o", "output": "x.o"}
]`))
	require.NoError(t, err)

	cmd, ok := db.Lookup("/w/src/x.cpp")
	require.True(t, ok, "relative file is joined with directory")
	assert.Equal(t, []string{"clang++", "-DNAME=a b", "-I", "include", "-c", "src/x.cpp", "-o", "x.o"}, cmd.Arguments)
	assert.Equal(t, "x.o", cmd.Output)
}

func TestParse_FirstCommandWinsAndOrderIsStable(t *testing.T) {
	t.Parallel()
	db, err := Parse([]byte(`[
  {"directory": "/p", "file": "/p/b.cpp", "arguments": ["c++", "-O0", "/p/b.cpp"]},
  {"directory": "/p", "file": "/p/a.cpp", "arguments": ["c++", "/p/a.cpp"]},
  {"directory": "/p", "file": "/p/b.cpp", "arguments": ["c++", "-O2", "/p/b.cpp"]}
]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"/p/b.cpp", "/p/a.cpp"}, db.Files())
	assert.Equal(t, 2, db.Len())
	cmd, ok := db.Lookup("/p/b.cpp")
	require.True(t, ok)
	assert.Equal(t, "-O0", cmd.Arguments[1])
	assert.Len(t, db.Commands("/p/b.cpp"), 2)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data string
	}{
		{"empty input", ``},
		{"not json", `{{`},
		{"object instead of array", `{"file": "/a.c"}`},
		{"null", `null`},
		{"missing file", `[{"directory": "/p", "arguments": ["cc"]}]`},
		{"missing directory", `[{"file": "/p/a.c", "arguments": ["cc"]}]`},
		{"missing command", `[{"directory": "/p", "file": "/p/a.c"}]`},
		{"unterminated quote", `[{"directory": "/p", "file": "/p/a.c", "command": "cc \"oops"}]`},
		{"relative directory and file", `[{"directory": "p", "file": "a.c", "arguments": ["cc"]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParse_EmptyArrayIsValid(t *testing.T) {
	t.Parallel()
	db, err := Parse([]byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, 0, db.Len())
	_, ok := db.Lookup("/anything")
	assert.False(t, ok)
}

func TestMarshal_ParsesBack(t *testing.T) {
	t.Parallel()
	cmds := []Command{
		{Directory: "/p", File: "/p/a.cpp", Arguments: []string{"clang++", "-std=c++17", "/p/a.cpp"}},
	}
	data, err := Marshal(cmds)
	require.NoError(t, err)

	db, err := Parse(data)
	require.NoError(t, err)
	got, ok := db.Lookup("/p/a.cpp")
	require.True(t, ok)
	assert.Equal(t, cmds[0], got)
}
