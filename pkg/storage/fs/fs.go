// Package fs implements filesystem-based secret storage.
//
// This file contains the main infrastructure for the filesystem backend,
// including the backend type, constructor and path mapping helpers.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
	"github.com/spf13/afero"
)

const (
	// DefaultDirMode is used for directories created by Store.
	DefaultDirMode os.FileMode = 0700

	// DefaultFileMode is used for content files. Secrets are owner-only.
	DefaultFileMode os.FileMode = 0600
)

// Config holds the filesystem backend settings.
type Config struct {
	// Root is the directory every stored path is rooted under
	Root string

	// DirMode is the permission used for created directories (default 0700)
	DirMode os.FileMode

	// FileMode is the permission used for content files (default 0600)
	FileMode os.FileMode

	// Fs is the filesystem to operate on. Defaults to the OS filesystem;
	// afero.NewMemMapFs() gives an isolated in-memory tree.
	Fs afero.Fs
}

// Backend implements storage.Backend on a filesystem, the local one unless
// Config.Fs says otherwise.
//
// Every path maps to a regular file under Root, and the directory hierarchy
// is the real one: a path is a directory when its file is a non-empty
// directory. Directories left empty by Remove are pruned up to Root, so an
// empty directory is never observable as a directory.
//
// Unlike the in-memory backend a path can't be both a file and a directory.
// Storing below an existing file, or at an existing directory, fails with a
// StoreError wrapping the filesystem error.
//
// Thread Safety:
// The backend holds no mutable state. Concurrent operations on distinct paths
// are safe; concurrent writes to the same path race at the OS level.
type Backend struct {
	fs       afero.Fs
	root     string
	dirMode  os.FileMode
	fileMode os.FileMode
}

// New creates a new filesystem backend.
//
// This initializes the backend by creating the root directory if it doesn't
// exist.
//
// Parameters:
//   - ctx: Context for cancellation
//   - cfg: Backend configuration (Root is required)
//
// Returns:
//   - *Backend: Initialized backend
//   - error: Returns error if Root is empty, directory creation fails or
//     the context is cancelled
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Root == "" {
		return nil, fmt.Errorf("filesystem root is required")
	}

	if cfg.DirMode == 0 {
		cfg.DirMode = DefaultDirMode
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = DefaultFileMode
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}

	if err := cfg.Fs.MkdirAll(root, cfg.DirMode); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}

	return &Backend{
		fs:       cfg.Fs,
		root:     root,
		dirMode:  cfg.DirMode,
		fileMode: cfg.FileMode,
	}, nil
}

// Root returns the absolute root directory.
func (b *Backend) Root() string {
	return b.root
}

// filePath returns the OS path for p.
//
// Relative paths are anchored at the root first, which also clamps any
// leading ".." so nothing escapes Root.
func (b *Backend) filePath(p path.Path) string {
	abs := path.Root.Join(p)
	return filepath.Join(b.root, filepath.FromSlash(abs.String()))
}

// isNotExist reports whether err means nothing is stored at the path.
//
// ENOTDIR means an ancestor is a regular file, so the path itself can't exist.
func isNotExist(err error) bool {
	return errors.Is(err, iofs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// isEmptyDir reports whether dir has no entries.
func (b *Backend) isEmptyDir(dir string) (bool, error) {
	return afero.IsEmpty(b.fs, dir)
}

// pruneEmptyParents removes empty directories from dir up to, but not
// including, the root.
func (b *Backend) pruneEmptyParents(dir string) {
	for dir != b.root && len(dir) > len(b.root) {
		empty, err := b.isEmptyDir(dir)
		if err != nil || !empty {
			return
		}
		if err := b.fs.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

var _ storage.Backend = (*Backend)(nil)
