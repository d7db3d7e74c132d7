package cppreflect

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// components splits a cleaned path into its non-empty components.
func components(p string) []string {
	p = filepath.ToSlash(filepath.Clean(p))
	var out []string
	for _, c := range strings.Split(p, "/") {
		if c != "" && c != "." {
			out = append(out, c)
		}
	}
	return out
}

// hasSuffix reports whether suffix is a trailing, component-aligned part of
// full.
func hasSuffix(full, suffix []string) bool {
	if len(suffix) == 0 || len(suffix) > len(full) {
		return false
	}
	off := len(full) - len(suffix)
	for i, c := range suffix {
		if full[off+i] != c {
			return false
		}
	}
	return true
}

// resolvePath maps requested to one of known. Absolute paths are returned
// unchanged without consulting known.
func resolvePath(known []string, requested string, firstMatch bool) (string, error) {
	if filepath.IsAbs(requested) {
		return requested, nil
	}
	req := components(requested)
	if len(req) == 0 {
		return "", fmt.Errorf("%w: empty path", ErrUnresolvedPath)
	}

	var matches []string
	for _, k := range known {
		if !hasSuffix(components(k), req) {
			continue
		}
		if firstMatch {
			return k, nil
		}
		matches = append(matches, k)
	}
	switch len(matches) {
	case 0:
		return "", ErrUnresolvedPath
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("%w: %d candidates: %s", ErrAmbiguousPath, len(matches), strings.Join(matches, ", "))
}

// findUnit returns the entry registered under resolved, falling back to
// entries registered under a relative key that is a suffix of resolved.
func findUnit(units map[string]*UnitEntry, resolved string, firstMatch bool) (*UnitEntry, error) {
	if u, ok := units[resolved]; ok {
		return u, nil
	}

	full := components(resolved)
	var keys []string
	for key := range units {
		if !filepath.IsAbs(key) && hasSuffix(full, components(key)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	switch {
	case len(keys) == 0:
		return nil, ErrUnknownUnit
	case len(keys) == 1 || firstMatch:
		return units[keys[0]], nil
	}
	return nil, fmt.Errorf("%w: units %s all match", ErrAmbiguousPath, strings.Join(keys, ", "))
}
