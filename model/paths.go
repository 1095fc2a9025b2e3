package model

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

func normalizePath(refdir string, fn string) string {
	if fn == "" {
		return fn
	}
	if !filepath.IsAbs(fn) {
		fn = filepath.Join(refdir, fn)
	}
	return filepath.Clean(fn)
}

// Canonical resolves fn to a clean absolute path, following symlinks when
// the path exists.
func Canonical(fn string) string {
	abs, err := filepath.Abs(fn)
	if err != nil {
		abs = filepath.Clean(fn)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	// the path may be gone already (remove/rename events); resolve its parent
	dir, base := filepath.Split(abs)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return filepath.Join(resolved, base)
	}
	return abs
}

// Within reports whether fn equals dir or lies below it. Both paths are
// expected in canonical form. Sibling directories sharing a name prefix
// (components vs components-extra) are not contained in each other.
func Within(dir, fn string) bool {
	rel, err := filepath.Rel(dir, fn)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Matcher matches slash-separated relative paths against doublestar globs.
// A nil Matcher matches nothing.
type Matcher struct {
	patterns []string
}

func NewMatcher(patterns []string) (*Matcher, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid ignore pattern '%s'", p)
		}
	}
	return &Matcher{patterns: patterns}, nil
}

func (m *Matcher) Match(rel string) bool {
	if m == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
