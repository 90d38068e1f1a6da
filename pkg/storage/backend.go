package storage

import (
	"context"

	"github.com/marmos91/larder/pkg/path"
)

// ============================================================================
// Backend Interface
// ============================================================================

// Backend is the capability set every storage medium implements.
//
// Backends receive resolved, normalized Paths. When reached through Storage
// these are always absolute; backends that accept raw input elsewhere (e.g.
// initial contents) normalize it themselves.
//
// Directory Semantics:
// A path D is a directory iff at least one stored path lies strictly below
// it. Backends must honour the same observable behaviour:
//   - Retrieve of a directory fails with PathIsDirectory, never
//     PathDoesNotExist, and the directory check wins even when content is
//     also stored at D itself
//   - Remove of D deletes D and every descendant, or fails with
//     PathDoesNotExist (and changes nothing) when neither exists
//
// Error Contract:
//   - Store: StoreError wrapping the I/O cause
//   - Remove: PathDoesNotExist, or RemoveError wrapping the I/O cause
//   - Retrieve: PathDoesNotExist, PathIsDirectory, or RetrieveError
//   - Any: UnsupportedOperation if the backend lacks the capability,
//     or the context error if ctx is done before the operation starts
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Backend interface {
	// Store writes content at p, overwriting any existing content.
	Store(ctx context.Context, p path.Path, content string) error

	// Remove deletes p and all of its descendants.
	Remove(ctx context.Context, p path.Path) error

	// Retrieve returns the content stored at p.
	Retrieve(ctx context.Context, p path.Path) (string, error)
}

// Unsupported implements Backend by failing every operation with
// UnsupportedOperation. Embed it in partial backends and override what is
// supported:
//
//	type readOnly struct {
//	    storage.Unsupported
//	    data map[path.Path]string
//	}
//
//	func (r *readOnly) Retrieve(ctx context.Context, p path.Path) (string, error) { ... }
type Unsupported struct{}

// Store implements Backend.
func (Unsupported) Store(context.Context, path.Path, string) error {
	return NewUnsupportedOperationError("store")
}

// Remove implements Backend.
func (Unsupported) Remove(context.Context, path.Path) error {
	return NewUnsupportedOperationError("remove")
}

// Retrieve implements Backend.
func (Unsupported) Retrieve(context.Context, path.Path) (string, error) {
	return "", NewUnsupportedOperationError("retrieve")
}

var _ Backend = Unsupported{}
