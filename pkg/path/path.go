package path

import (
	gopath "path"
	"strings"
)

// Separator is the segment separator used by every Path regardless of the
// host operating system.
const Separator = "/"

// Path is a normalized, slash-separated location inside a storage backend.
//
// Paths are immutable values. Two Paths are equal (==) iff their normalized
// strings are identical, which makes Path safe to use as a map key: different
// spellings of the same location ("./a/b/", "a//b", "a/./b") collapse to the
// same key.
//
// Normalization Rules:
//   - Consecutive separators collapse ("a//b" -> "a/b")
//   - "." segments are removed ("a/./b" -> "a/b")
//   - ".." removes the preceding real segment ("a/b/../c" -> "a/c")
//   - ".." at the root of an absolute path is dropped ("/../a" -> "/a")
//   - Leading ".." of a relative path is retained ("../a" -> "../a")
//   - Trailing separators are removed ("a/b/" -> "a/b")
//   - Absoluteness is preserved, never added or removed
//   - A path that cleans to nothing is "." (relative) or "/" (absolute)
//
// These are the lexical rules of Plan 9's cleanname, which the standard
// library's path.Clean implements exactly; Path never touches a filesystem.
type Path struct {
	// normalized is the cleaned path, except that "." is stored as "" so
	// the zero Path and New("") compare equal.
	normalized string
}

// Root is the absolute root path "/".
var Root = Path{normalized: Separator}

// New normalizes raw and returns the corresponding Path.
//
// New never fails: any string, including "" or a string made only of
// separators, produces a valid Path.
func New(raw string) Path {
	return Path{normalized: clean(raw)}
}

// clean applies the normalization rules. path.Clean is idempotent, which
// gives Path its idempotent-normalization guarantee.
func clean(raw string) string {
	cleaned := gopath.Clean(raw)
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// Join resolves other against p.
//
// If other is absolute the result is other and p is discarded. Otherwise the
// two are concatenated with a separator and normalized, so ".." segments at
// the start of other consume segments contributed by p (clamping at the root
// when p is absolute).
//
// Examples:
//
//	New("/base1/base2").Join(New("../path"))    // "/base1/path"
//	New("/base").Join(New("../../../path"))     // "/path"
//	New("base").Join(New("/path/to/thing"))     // "/path/to/thing"
//	New("../base").Join(New("path"))            // "../base/path"
func (p Path) Join(other Path) Path {
	if other.IsAbs() {
		return other
	}
	return New(p.String() + Separator + other.String())
}

// JoinString is shorthand for p.Join(New(raw)).
func (p Path) JoinString(raw string) Path {
	return p.Join(New(raw))
}

// String returns the normalized form.
func (p Path) String() string {
	if p.normalized == "" {
		return "."
	}
	return p.normalized
}

// IsAbs reports whether the path starts at the root.
func (p Path) IsAbs() bool {
	return strings.HasPrefix(p.normalized, Separator)
}

// IsRoot reports whether the path is exactly "/".
func (p Path) IsRoot() bool {
	return p.normalized == Separator
}

// IsZero reports whether p is the zero Path (equivalent to ".").
func (p Path) IsZero() bool {
	return p.normalized == ""
}

// Segments returns the non-empty segments of the path in order.
// Root and "." have no segments; retained ".." segments are returned as-is.
func (p Path) Segments() []string {
	s := strings.TrimPrefix(p.String(), Separator)
	if s == "" || s == "." {
		return nil
	}
	return strings.Split(s, Separator)
}

// IsAncestorOf reports whether p is a proper ancestor of other: other lies
// strictly below p, bounded by a separator. "/a" is an ancestor of "/a/b"
// but not of "/ab" nor of "/a" itself.
//
// Root is the ancestor of every other absolute path. Absolute and relative
// paths are never ancestors of one another.
func (p Path) IsAncestorOf(other Path) bool {
	if p.IsAbs() != other.IsAbs() || p.String() == other.String() {
		return false
	}
	if p.IsRoot() {
		return true
	}
	return strings.HasPrefix(other.String(), p.DirPrefix())
}

// Contains reports whether other is p itself or one of its descendants.
func (p Path) Contains(other Path) bool {
	return p.String() == other.String() || p.IsAncestorOf(other)
}

// DirPrefix returns the string every descendant of p starts with: the
// normalized path followed by a separator ("/" for the root).
func (p Path) DirPrefix() string {
	if p.IsRoot() {
		return Separator
	}
	return p.String() + Separator
}

// Parent returns the path one level up. The parent of the root is the root.
func (p Path) Parent() Path {
	return New(gopath.Dir(p.String()))
}

// Base returns the last segment of the path ("/" for the root).
func (p Path) Base() string {
	return gopath.Base(p.String())
}

// Rel returns other expressed relative to ancestor p, and whether p contains
// other at all. Rel of a path to itself is ".".
func (p Path) Rel(other Path) (string, bool) {
	if p.String() == other.String() {
		return ".", true
	}
	if !p.IsAncestorOf(other) {
		return "", false
	}
	return strings.TrimPrefix(other.String(), p.DirPrefix()), true
}

// MarshalText implements encoding.TextMarshaler so Paths round-trip through
// YAML and JSON as plain strings.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, normalizing the input.
func (p *Path) UnmarshalText(text []byte) error {
	*p = New(string(text))
	return nil
}
