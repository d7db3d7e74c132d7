// Package compdb reads and writes JSON compilation databases
// (compile_commands.json).
package compdb

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mattn/go-shellwords"
)

// Command is one build command: the exact argv used to compile File.
type Command struct {
	Directory string
	File      string // absolute and cleaned
	Arguments []string
	Output    string
}

// Database maps absolute source paths to their build commands. It is
// immutable once constructed.
type Database struct {
	files    []string
	commands map[string][]Command
}

// rawEntry is one object of the JSON array. Either Arguments or Command
// must be present; Arguments wins when both are.
type rawEntry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Arguments []string `json:"arguments,omitempty"`
	Command   string   `json:"command,omitempty"`
	Output    string   `json:"output,omitempty"`
}

// Parse decodes a JSON compilation database. Files are enumerated in the
// order of their first appearance; later commands for the same file are
// kept but Lookup returns the first.
func Parse(data []byte) (*Database, error) {
	var raw []rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("compdb: decode: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("compdb: decode: expected a JSON array of commands")
	}

	cmds := make([]Command, 0, len(raw))
	for i, e := range raw {
		cmd, err := e.command()
		if err != nil {
			return nil, fmt.Errorf("compdb: entry %d: %w", i, err)
		}
		cmds = append(cmds, cmd)
	}
	return New(cmds), nil
}

func (e rawEntry) command() (Command, error) {
	if e.File == "" {
		return Command{}, fmt.Errorf("missing \"file\"")
	}
	if e.Directory == "" {
		return Command{}, fmt.Errorf("missing \"directory\"")
	}

	args := e.Arguments
	if len(args) == 0 {
		if e.Command == "" {
			return Command{}, fmt.Errorf("missing \"arguments\" or \"command\" for %s", e.File)
		}
		words, err := shellwords.Parse(e.Command)
		if err != nil {
			return Command{}, fmt.Errorf("split command for %s: %w", e.File, err)
		}
		args = words
	}
	if len(args) == 0 {
		return Command{}, fmt.Errorf("empty command for %s", e.File)
	}

	file := e.File
	if !filepath.IsAbs(file) {
		file = filepath.Join(e.Directory, file)
	}
	if !filepath.IsAbs(file) {
		return Command{}, fmt.Errorf("file %q is not absolute and directory %q does not make it so", e.File, e.Directory)
	}

	return Command{
		Directory: e.Directory,
		File:      filepath.Clean(file),
		Arguments: args,
		Output:    e.Output,
	}, nil
}

// New builds a Database from already-decoded commands. Command.File must be
// absolute.
func New(cmds []Command) *Database {
	db := &Database{commands: make(map[string][]Command, len(cmds))}
	for _, c := range cmds {
		if _, seen := db.commands[c.File]; !seen {
			db.files = append(db.files, c.File)
		}
		db.commands[c.File] = append(db.commands[c.File], c)
	}
	return db
}

// Files returns every known absolute path in enumeration order.
func (db *Database) Files() []string {
	out := make([]string, len(db.files))
	copy(out, db.files)
	return out
}

// Len returns the number of distinct files.
func (db *Database) Len() int {
	return len(db.files)
}

// Lookup returns the first command recorded for path.
func (db *Database) Lookup(path string) (Command, bool) {
	cmds := db.commands[path]
	if len(cmds) == 0 {
		return Command{}, false
	}
	return cmds[0], true
}

// Commands returns all commands recorded for path.
func (db *Database) Commands(path string) []Command {
	return db.commands[path]
}

// Marshal encodes commands in the "arguments" form, indented.
func Marshal(cmds []Command) ([]byte, error) {
	raw := make([]rawEntry, len(cmds))
	for i, c := range cmds {
		raw[i] = rawEntry{
			Directory: c.Directory,
			File:      c.File,
			Arguments: c.Arguments,
			Output:    c.Output,
		}
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("compdb: encode: %w", err)
	}
	return append(data, '\n'), nil
}
