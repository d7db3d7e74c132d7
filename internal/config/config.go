// Package config loads the generator configuration from cppreflect.yaml or
// cppreflect.toml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Ambiguity policies for suffix path resolution.
const (
	AmbiguityError = "error"
	AmbiguityFirst = "first"
)

// FileNames are the configuration files looked up when no path is given,
// in order.
var FileNames = []string{"cppreflect.yaml", "cppreflect.yml", "cppreflect.toml"}

// Config represents the cppreflect configuration.
type Config struct {
	// Database is the compile_commands.json to generate from.
	Database string `yaml:"database" toml:"database"`
	// OutDir receives snapshots and the registration source.
	OutDir         string `yaml:"out_dir" toml:"out_dir"`
	Package        string `yaml:"package" toml:"package"`
	SnapshotSuffix string `yaml:"snapshot_suffix" toml:"snapshot_suffix"`
	Jobs           int    `yaml:"jobs" toml:"jobs"`
	// Include and Exclude select database entries by path glob. "**"
	// matches any number of path components.
	Include []string `yaml:"include" toml:"include"`
	Exclude []string `yaml:"exclude" toml:"exclude"`
	// Ambiguity is "error" or "first".
	Ambiguity string `yaml:"ambiguity" toml:"ambiguity"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database:       "compile_commands.json",
		OutDir:         "reflectdata",
		Package:        "reflectdata",
		SnapshotSuffix: ".snap",
		Jobs:           runtime.GOMAXPROCS(0),
		Exclude:        []string{"**/third_party/**", "**/CMakeFiles/**"},
		Ambiguity:      AmbiguityError,
	}
}

// Load reads configuration from file, falling back to defaults. If
// configPath is empty, the names in FileNames are tried in the current
// directory. Values present in the file replace the defaults.
func Load(configPath string) (*Config, error) {
	defaults := Default()

	if configPath == "" {
		for _, name := range FileNames {
			if _, err := os.Stat(name); err == nil {
				configPath = name
				break
			}
		}
		if configPath == "" {
			return defaults, nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	fileCfg, err := decode(configPath, data)
	if err != nil {
		return nil, err
	}

	defaults.Merge(fileCfg)
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", configPath, err)
	}
	return defaults, nil
}

// LoadFromDir loads the first configuration file found in dir.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return Default(), nil
}

// decode picks the format by extension. Unknown keys are errors.
func decode(configPath string, data []byte) (*Config, error) {
	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(configPath)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: %s: %w", configPath, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", configPath, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: %s: unknown key %q", configPath, undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("config: %s: unsupported format %q", configPath, ext)
	}
	return &cfg, nil
}

// Merge combines another config into this one, with other taking precedence.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Database != "" {
		c.Database = other.Database
	}
	if other.OutDir != "" {
		c.OutDir = other.OutDir
	}
	if other.Package != "" {
		c.Package = other.Package
	}
	if other.SnapshotSuffix != "" {
		c.SnapshotSuffix = other.SnapshotSuffix
	}
	if other.Jobs != 0 {
		c.Jobs = other.Jobs
	}
	if len(other.Include) > 0 {
		c.Include = other.Include
	}
	if other.Exclude != nil {
		c.Exclude = other.Exclude
	}
	if other.Ambiguity != "" {
		c.Ambiguity = other.Ambiguity
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Ambiguity {
	case AmbiguityError, AmbiguityFirst:
	default:
		return fmt.Errorf("ambiguity must be %q or %q, got %q", AmbiguityError, AmbiguityFirst, c.Ambiguity)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	if c.SnapshotSuffix == "" {
		return errors.New("snapshot_suffix must not be empty")
	}
	for _, p := range append(append([]string(nil), c.Include...), c.Exclude...) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("bad glob %q: %w", p, err)
		}
	}
	return nil
}

// FirstMatch reports whether ambiguous suffixes resolve to the first
// candidate instead of failing.
func (c *Config) FirstMatch() bool {
	return c.Ambiguity == AmbiguityFirst
}

// Selects reports whether a database entry path passes the include and
// exclude globs. An empty include list selects everything.
func (c *Config) Selects(p string) bool {
	p = filepath.ToSlash(p)
	if len(c.Include) > 0 {
		included := false
		for _, pattern := range c.Include {
			if MatchGlob(pattern, p) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}
	for _, pattern := range c.Exclude {
		if MatchGlob(pattern, p) {
			return false
		}
	}
	return true
}

// MatchGlob matches a slash-separated path against pattern. Components are
// matched with path.Match; a "**" component matches zero or more
// components. Leading slashes are ignored on both sides, so "**/x.cpp"
// matches absolute paths.
func MatchGlob(pattern, p string) bool {
	return matchParts(splitPath(pattern), splitPath(p))
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchParts(pattern, parts []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for i := 0; i <= len(parts); i++ {
				if matchParts(rest, parts[i:]) {
					return true
				}
			}
			return false
		}
		if len(parts) == 0 {
			return false
		}
		ok, err := path.Match(pattern[0], parts[0])
		if err != nil || !ok {
			return false
		}
		pattern, parts = pattern[1:], parts[1:]
	}
	return len(parts) == 0
}
