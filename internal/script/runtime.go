// Package script runs Risor codegen scripts against a materialized model.
package script

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/cppreflect/internal/model"
)

// Runtime embeds a Risor VM and exposes a unit's model to scripts through
// host functions.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	out        io.Writer
	logOut     io.Writer
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithFS configures the Runtime to load scripts from an fs.FS instead of
// from disk. Also configures the Risor importer to use FSImporter for
// import statement resolution.
func WithFS(fsys fs.FS) Option {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithDir loads scripts relative to dir.
func WithDir(dir string) Option {
	return func(r *Runtime) {
		r.scriptsDir = dir
	}
}

// WithOutput sets where emit writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) {
		r.out = w
	}
}

// WithLogOutput sets where the log object writes. Defaults to os.Stderr.
func WithLogOutput(w io.Writer) Option {
	return func(r *Runtime) {
		r.logOut = w
	}
}

func New(opts ...Option) *Runtime {
	r := &Runtime{out: os.Stdout, logOut: os.Stderr}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loads and executes a script against m with the model globals plus
// any extra globals provided by the caller.
func (r *Runtime) Run(ctx context.Context, m *model.Model, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, m, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly against m.
func (r *Runtime) RunSource(ctx context.Context, m *model.Model, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, m, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, m *model.Model, source, label string, extraGlobals map[string]any) error {
	if m == nil {
		return fmt.Errorf("script: %s: no model", label)
	}
	globals := r.buildGlobals(m, extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("script: %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's
// script source, or nil if neither an fs.FS nor a directory is set.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code. A name
// without extension gets ".risor" appended.
func (r *Runtime) LoadScript(path string) (string, error) {
	if filepath.Ext(path) == "" {
		path += ".risor"
	}
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("script: loading %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) && r.scriptsDir != "" {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("script: loading %s: %w", fullPath, err)
	}
	return string(data), nil
}

// Scripts lists the .risor files available to the Runtime, sorted.
func (r *Runtime) Scripts() ([]string, error) {
	fsys := r.fsys
	if fsys == nil {
		if r.scriptsDir == "" {
			return nil, nil
		}
		fsys = os.DirFS(r.scriptsDir)
	}
	names, err := fs.Glob(fsys, "*.risor")
	if err != nil {
		return nil, fmt.Errorf("script: list: %w", err)
	}
	return names, nil
}

// buildGlobals constructs the full set of globals exposed to scripts.
func (r *Runtime) buildGlobals(m *model.Model, extra map[string]any) map[string]any {
	globals := map[string]any{
		"unit":        unitObject(m),
		"decls":       makeDeclsFn(m),
		"decl":        makeDeclFn(m),
		"lookup":      makeLookupFn(m),
		"lookup_all":  makeLookupAllFn(m),
		"children":    makeChildrenFn(m),
		"params":      makeParamsFn(m),
		"type_params": makeTypeParamsFn(m),
		"bases":       makeBasesFn(m),
		"macros":      makeMacrosFn(m),
		"macro":       makeMacroFn(m),
		"includes":    makeIncludesFn(m),
		"emit":        makeEmitFn(r.out),
		"log":         mustProxy(&logObject{prefix: "cppreflect", w: r.logOut}),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("script: proxy error: %v", err))
	}
	return p
}
