package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/marmos91/larder/internal/logger"
	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
)

// Backend implements storage.Backend using an in-memory map.
//
// The hierarchy is emulated over a flat map keyed by absolute normalized
// Paths. There are no directory nodes: a directory is any path that is a
// proper ancestor of at least one stored key, computed on demand by scanning
// the keys. A path can therefore be:
//   - absent (no key, no descendants)
//   - a file (key, no descendants)
//   - a directory (descendants, no key)
//   - both (key and descendants), which Retrieve treats as a directory
//
// Characteristics:
//   - Fast: All operations are memory-speed
//   - Volatile: Data lost on restart
//   - Thread-safe: Protected by RWMutex
//   - Directory checks are O(n) in the number of stored keys
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Remove holds the write
// lock for the whole descendant sweep, so callers never observe a partially
// removed subtree.
type Backend struct {
	// persistence maps resolved paths to their content
	persistence map[path.Path]string

	// manager normalizes every incoming path against the configured base
	manager *path.Manager

	// mu protects concurrent access to persistence
	mu sync.RWMutex
}

// Option configures a Backend.
type Option func(*options)

type options struct {
	manager  *path.Manager
	contents map[string]string
}

// WithManager sets the path manager the backend normalizes paths with.
// Defaults to a manager anchored at the root.
func WithManager(m *path.Manager) Option {
	return func(o *options) {
		o.manager = m
	}
}

// WithContents seeds the backend. Keys are raw paths and are resolved
// through the backend's manager, so relative keys land under its base.
func WithContents(contents map[string]string) Option {
	return func(o *options) {
		o.contents = contents
	}
}

// New creates a new in-memory backend.
//
// The manager option is applied before initial contents are normalized,
// regardless of the order options are passed in.
func New(opts ...Option) *Backend {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	manager := o.manager
	if manager == nil {
		manager = path.DefaultManager()
	}

	b := &Backend{
		persistence: make(map[path.Path]string, len(o.contents)),
		manager:     manager,
	}
	for raw, content := range o.contents {
		b.persistence[manager.Resolve(raw)] = content
	}

	return b
}

// normalise resolves p through the manager. Paths arriving through the
// Storage facade are already absolute and pass through unchanged.
func (b *Backend) normalise(p path.Path) path.Path {
	return b.manager.ResolvePath(p)
}

// ============================================================================
// storage.Backend Interface Implementation
// ============================================================================

// Store writes content at p, silently overwriting any existing content.
//
// Parameters:
//   - ctx: Context for cancellation (checked before acquiring the lock)
//   - p: Target path
//   - content: Content to store
//
// Returns:
//   - error: Only returns error if the context is cancelled
func (b *Backend) Store(ctx context.Context, p path.Path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p = b.normalise(p)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.persistence[p] = content
	logger.Debug("memory: stored %s (%d bytes)", p, len(content))

	return nil
}

// Remove deletes p and every stored path below it.
//
// The matching set is computed and deleted under one write lock: either all
// matches disappear, or none exist and PathDoesNotExist is returned with the
// map untouched.
//
// Parameters:
//   - ctx: Context for cancellation (checked before acquiring the lock)
//   - p: Path to remove
//
// Returns:
//   - error: PathDoesNotExist if nothing matches, or context errors
func (b *Backend) Remove(ctx context.Context, p path.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p = b.normalise(p)

	b.mu.Lock()
	defer b.mu.Unlock()

	matches := b.matchingPaths(p)
	if len(matches) == 0 {
		return storage.NewPathDoesNotExistError(p)
	}

	for _, m := range matches {
		delete(b.persistence, m)
	}
	logger.Debug("memory: removed %s (%d entries)", p, len(matches))

	return nil
}

// Retrieve returns the content stored at p.
//
// The directory check runs first: if anything is stored below p the call
// fails with PathIsDirectory, even when content is also stored at p itself.
//
// Parameters:
//   - ctx: Context for cancellation (checked before acquiring the lock)
//   - p: Path to read
//
// Returns:
//   - string: Stored content, unmodified
//   - error: PathIsDirectory, PathDoesNotExist, or context errors
func (b *Backend) Retrieve(ctx context.Context, p path.Path) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p = b.normalise(p)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.containsAsDirectory(p) {
		return "", storage.NewPathIsDirectoryError(p)
	}

	content, exists := b.persistence[p]
	if !exists {
		return "", storage.NewPathDoesNotExistError(p)
	}

	return content, nil
}

// ============================================================================
// Inspection
// ============================================================================

// Paths returns a sorted snapshot of every stored path.
func (b *Backend) Paths() []path.Path {
	b.mu.RLock()
	defer b.mu.RUnlock()

	paths := make([]path.Path, 0, len(b.persistence))
	for p := range b.persistence {
		paths = append(paths, p)
	}
	sortPaths(paths)
	return paths
}

// Len returns the number of stored entries.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.persistence)
}

// ============================================================================
// Helpers (callers must hold mu)
// ============================================================================

// matchingPaths returns p itself (if stored) plus every stored descendant.
func (b *Backend) matchingPaths(p path.Path) []path.Path {
	var matches []path.Path
	for k := range b.persistence {
		if p.Contains(k) {
			matches = append(matches, k)
		}
	}
	return matches
}

// containsAsDirectory reports whether any stored key lies strictly below p.
func (b *Backend) containsAsDirectory(p path.Path) bool {
	for k := range b.persistence {
		if p.IsAncestorOf(k) {
			return true
		}
	}
	return false
}

func sortPaths(paths []path.Path) {
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].String() < paths[j].String()
	})
}

var _ storage.Backend = (*Backend)(nil)
