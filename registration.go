package cppreflect

import (
	"bytes"
	_ "embed"
	"fmt"
	"go/format"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

//go:embed registration.tmpl
var registrationSource string

var registrationTmpl = template.Must(template.New("registration").
	Funcs(template.FuncMap{"quote": strconv.Quote}).
	Parse(registrationSource))

// DefaultPackage is the package name of generated registration files.
const DefaultPackage = "reflectdata"

// Registration describes a generated registration file. File names are
// relative to the directory the file is written to, as go:embed requires.
type Registration struct {
	Package      string
	DatabaseFile string
	Units        []RegisteredUnit
}

type RegisteredUnit struct {
	Path         string // key the unit is registered under
	SnapshotFile string
}

// RenderRegistration produces gofmt-formatted Go source that embeds the
// database and snapshots and registers them on a Registry.
func RenderRegistration(reg Registration) ([]byte, error) {
	if reg.Package == "" {
		reg.Package = DefaultPackage
	}
	if !token.IsIdentifier(reg.Package) {
		return nil, fmt.Errorf("cppreflect: render registration: invalid package name %q", reg.Package)
	}
	for _, name := range append([]string{reg.DatabaseFile}, snapshotFiles(reg.Units)...) {
		if err := checkEmbedPath(name); err != nil {
			return nil, fmt.Errorf("cppreflect: render registration: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := registrationTmpl.Execute(&buf, reg); err != nil {
		return nil, fmt.Errorf("cppreflect: render registration: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("cppreflect: format registration: %w", err)
	}
	return src, nil
}

func snapshotFiles(units []RegisteredUnit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.SnapshotFile
	}
	return out
}

// checkEmbedPath rejects names go:embed cannot reference from the package
// directory.
func checkEmbedPath(name string) error {
	clean := filepath.ToSlash(filepath.Clean(name))
	switch {
	case name == "":
		return fmt.Errorf("empty embed path")
	case filepath.IsAbs(name):
		return fmt.Errorf("embed path %q is absolute", name)
	case clean == ".." || strings.HasPrefix(clean, "../"):
		return fmt.Errorf("embed path %q leaves the package directory", name)
	case strings.ContainsAny(name, " \t\"`"):
		return fmt.Errorf("embed path %q needs quoting", name)
	}
	return nil
}
