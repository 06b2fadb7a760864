// Package safepath confines untrusted path strings to a base directory.
package safepath

import (
	"path"
	"path/filepath"
	"strings"
)

// Path is an absolute path known to lie inside (or equal) the base it was
// resolved against. The zero value is not usable.
type Path struct {
	base string
	abs  string
}

// String returns the absolute path.
func (p Path) String() string { return p.abs }

// Base returns the directory the path was confined to.
func (p Path) Base() string { return p.base }

// IsBase reports whether the path resolved to the base directory itself.
func (p Path) IsBase() bool { return p.abs == p.base }

// Rel returns the path relative to its base, using the OS separator.
func (p Path) Rel() string {
	if p.IsBase() {
		return "."
	}
	return strings.TrimPrefix(p.abs, withSeparator(p.base))
}

// Resolve interprets name relative to base and never escapes it.
//
// Leading dots and separators are dropped, a drive letter prefix is removed,
// and ".." segments are resolved against a synthetic root so they cannot
// climb above base. Both '/' and '\' are treated as separators, which is what
// archive entry names use regardless of the host OS. An empty remainder
// resolves to base.
func Resolve(base, name string) Path {
	base = filepath.Clean(base)

	rel := strings.TrimLeft(name, `./\`)
	rel = strings.ReplaceAll(rel, `\`, "/")
	if hasDrivePrefix(rel) {
		rel = strings.TrimLeft(rel[2:], `./\`)
	}

	// Rooting at "/" makes path.Clean swallow any ".." that would climb out.
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	if rel == "" {
		return Path{base: base, abs: base}
	}

	abs := filepath.Clean(filepath.Join(base, filepath.FromSlash(rel)))
	if !Within(base, abs) {
		return Path{base: base, abs: base}
	}
	return Path{base: base, abs: abs}
}

// Within reports whether target is base or a descendant of base, compared
// lexically after cleaning both.
func Within(base, target string) bool {
	base = filepath.Clean(base)
	target = filepath.Clean(target)
	if target == base {
		return true
	}
	return strings.HasPrefix(target, withSeparator(base))
}

func withSeparator(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}

func hasDrivePrefix(s string) bool {
	if len(s) < 2 || s[1] != ':' {
		return false
	}
	c := s[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
