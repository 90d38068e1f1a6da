package badger

import (
	"github.com/marmos91/larder/pkg/path"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a flat key-value store ordered by key bytes, so the hierarchy
// is emulated the same way the in-memory backend does it: one entry per
// stored path, no directory entries.
//
// Key Namespace Prefixes:
//
// Data Type        Prefix   Key Format          Value Type
// ===========================================================
// Content          "p:"     p:<absolute path>   content (raw bytes)
//
// Because keys are sorted, every descendant of a directory D lives in the
// contiguous key range starting with "p:<D>/". A directory check is a
// single seek with a prefix iterator, and a recursive remove is one range
// scan.
//
// Example:
//
//	p:/secrets/db/password   → "hunter2"
//	p:/secrets/api/key       → "abc123"
//
// "/secrets" is a directory because the prefix "p:/secrets/" is non-empty.

const prefixPath = "p:"

// keyPath returns the content key for p.
func keyPath(p path.Path) []byte {
	return []byte(prefixPath + p.String())
}

// keyChildPrefix returns the prefix shared by every descendant of p.
func keyChildPrefix(p path.Path) []byte {
	return []byte(prefixPath + p.DirPrefix())
}

// pathFromKey recovers the path from a content key.
func pathFromKey(key []byte) path.Path {
	return path.New(string(key[len(prefixPath):]))
}
