package fs

import (
	"context"
	"path/filepath"

	"github.com/marmos91/larder/internal/logger"
	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
	"github.com/spf13/afero"
)

// ============================================================================
// storage.Backend Interface Implementation (mutations)
// ============================================================================

// Store writes content at p, creating parent directories as needed.
//
// Context Cancellation:
// This operation checks the context before touching the filesystem.
//
// Parameters:
//   - ctx: Context for cancellation
//   - p: Target path
//   - content: Content to store
//
// Returns:
//   - error: StoreError wrapping the OS error, or context errors
func (b *Backend) Store(ctx context.Context, p path.Path, content string) error {
	// ========================================================================
	// Step 1: Check context before filesystem operation
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}

	filePath := b.filePath(p)

	// ========================================================================
	// Step 2: Create parent directories
	// ========================================================================

	if err := b.fs.MkdirAll(filepath.Dir(filePath), b.dirMode); err != nil {
		return storage.NewStoreError(p, err)
	}

	// ========================================================================
	// Step 3: Write content
	// ========================================================================

	if err := afero.WriteFile(b.fs, filePath, []byte(content), b.fileMode); err != nil {
		return storage.NewStoreError(p, err)
	}

	logger.Debug("fs: stored %s (%d bytes)", p, len(content))
	return nil
}

// Remove deletes p and everything below it.
//
// A regular file is removed directly; a directory recursively.
// Removing the root empties it but keeps the root directory itself.
//
// Parameters:
//   - ctx: Context for cancellation
//   - p: Path to remove
//
// Returns:
//   - error: PathDoesNotExist, RemoveError wrapping the OS error, or context
//     errors
func (b *Backend) Remove(ctx context.Context, p path.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath := b.filePath(p)

	info, err := b.fs.Stat(filePath)
	if err != nil {
		if isNotExist(err) {
			return storage.NewPathDoesNotExistError(p)
		}
		return storage.NewRemoveError(p, err)
	}

	if !info.IsDir() {
		if err := b.fs.Remove(filePath); err != nil {
			return storage.NewRemoveError(p, err)
		}
		b.pruneEmptyParents(filepath.Dir(filePath))
		logger.Debug("fs: removed %s", p)
		return nil
	}

	empty, err := b.isEmptyDir(filePath)
	if err != nil {
		return storage.NewRemoveError(p, err)
	}
	if empty {
		return storage.NewPathDoesNotExistError(p)
	}

	if filePath == b.root {
		return b.clearRoot(p)
	}

	if err := b.fs.RemoveAll(filePath); err != nil {
		return storage.NewRemoveError(p, err)
	}
	b.pruneEmptyParents(filepath.Dir(filePath))

	logger.Debug("fs: removed directory %s", p)
	return nil
}

// clearRoot removes every entry under the root directory.
func (b *Backend) clearRoot(p path.Path) error {
	entries, err := afero.ReadDir(b.fs, b.root)
	if err != nil {
		return storage.NewRemoveError(p, err)
	}

	for _, entry := range entries {
		if err := b.fs.RemoveAll(filepath.Join(b.root, entry.Name())); err != nil {
			return storage.NewRemoveError(p, err)
		}
	}

	logger.Debug("fs: cleared root (%d entries)", len(entries))
	return nil
}
