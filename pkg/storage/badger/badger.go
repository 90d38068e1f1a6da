package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/larder/internal/logger"
	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
)

// Backend implements storage.Backend using BadgerDB for persistence.
//
// Content survives restarts and the hierarchy semantics match the in-memory
// backend exactly, including a path holding content while also having
// descendants (Retrieve reports it as a directory).
//
// Thread Safety:
// BadgerDB transactions are serializable. Remove collects and deletes the
// whole subtree inside one read-write transaction, so concurrent readers see
// either all of it or none of it.
type Backend struct {
	db *badger.DB
}

// Config holds configuration for the badger backend.
type Config struct {
	// DBPath is the directory where BadgerDB stores its files.
	// Required unless InMemory is set.
	DBPath string

	// InMemory runs BadgerDB without touching disk (tests, ephemeral use)
	InMemory bool

	// SyncWrites fsyncs every write before the transaction commits
	SyncWrites bool

	// BadgerOptions allows full customization of BadgerDB behavior.
	// If nil, sensible defaults are derived from the fields above.
	BadgerOptions *badger.Options
}

// New opens a BadgerDB-backed storage backend.
//
// Context Cancellation:
// This operation checks the context before opening the database.
//
// Parameters:
//   - ctx: Context for cancellation
//   - cfg: Database location and durability settings
//
// Returns:
//   - *Backend: Open backend; call Close to release the database
//   - error: Error if the database can't be opened or context is cancelled
//
// Example:
//
//	b, err := badger.New(ctx, badger.Config{DBPath: "/var/lib/larder/db"})
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.BadgerOptions != nil {
		opts = *cfg.BadgerOptions
	} else {
		if cfg.InMemory {
			opts = badger.DefaultOptions("").WithInMemory(true)
		} else {
			if cfg.DBPath == "" {
				return nil, fmt.Errorf("badger db_path is required unless in_memory is set")
			}
			opts = badger.DefaultOptions(cfg.DBPath)
		}

		// Secrets are small: compression isn't worth it and badger's own
		// INFO logging is noise next to ours.
		opts = opts.
			WithSyncWrites(cfg.SyncWrites).
			WithLoggingLevel(badger.WARNING).
			WithCompression(options.None)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	return &Backend{db: db}, nil
}

// Close closes the underlying database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// ============================================================================
// storage.Backend Interface Implementation
// ============================================================================

// Store writes content at p in a single update transaction.
func (b *Backend) Store(ctx context.Context, p path.Path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p = path.Root.Join(p)

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyPath(p), []byte(content))
	})
	if err != nil {
		return storage.NewStoreError(p, err)
	}

	logger.Debug("badger: stored %s (%d bytes)", p, len(content))
	return nil
}

// Remove deletes p and all of its descendants in one transaction.
//
// Parameters:
//   - ctx: Context for cancellation
//   - p: Path to remove
//
// Returns:
//   - error: PathDoesNotExist when nothing matches, RemoveError wrapping
//     badger failures, or context errors
func (b *Backend) Remove(ctx context.Context, p path.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p = path.Root.Join(p)
	var removed int

	err := b.db.Update(func(txn *badger.Txn) error {
		// ====================================================================
		// Step 1: Collect the key itself and every descendant
		// ====================================================================

		var keys [][]byte

		own := keyPath(p)
		if _, err := txn.Get(own); err == nil {
			keys = append(keys, own)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		descendants, err := collectDescendants(ctx, txn, p)
		if err != nil {
			return err
		}
		keys = append(keys, descendants...)

		if len(keys) == 0 {
			return storage.NewPathDoesNotExistError(p)
		}

		// ====================================================================
		// Step 2: Delete them all before committing
		// ====================================================================

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		removed = len(keys)
		return nil
	})

	if err != nil {
		if storage.IsPathDoesNotExist(err) || ctx.Err() != nil {
			return err
		}
		return storage.NewRemoveError(p, err)
	}

	logger.Debug("badger: removed %s (%d entries)", p, removed)
	return nil
}

// Retrieve returns the content stored at p.
//
// The directory check runs first, so a path with descendants is reported as
// PathIsDirectory even when content is also stored at it.
func (b *Backend) Retrieve(ctx context.Context, p path.Path) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p = path.Root.Join(p)
	var content []byte

	err := b.db.View(func(txn *badger.Txn) error {
		isDir, err := hasDescendants(txn, p)
		if err != nil {
			return err
		}
		if isDir {
			return storage.NewPathIsDirectoryError(p)
		}

		item, err := txn.Get(keyPath(p))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.NewPathDoesNotExistError(p)
			}
			return err
		}

		content, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if storage.IsPathDoesNotExist(err) || storage.IsPathIsDirectory(err) {
			return "", err
		}
		return "", storage.NewRetrieveError(p, err)
	}

	return string(content), nil
}

// ============================================================================
// Helpers
// ============================================================================

// hasDescendants reports whether any key lies strictly below p.
func hasDescendants(txn *badger.Txn, p path.Path) (bool, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = keyChildPrefix(p)

	it := txn.NewIterator(opts)
	defer it.Close()

	own := keyPath(p)
	for it.Rewind(); it.Valid(); it.Next() {
		// The root's child prefix "p:/" also matches the root's own key.
		if bytes.Equal(it.Item().Key(), own) {
			continue
		}
		return true, nil
	}
	return false, nil
}

// collectDescendants returns copies of every key strictly below p.
func collectDescendants(ctx context.Context, txn *badger.Txn, p path.Path) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = keyChildPrefix(p)

	it := txn.NewIterator(opts)
	defer it.Close()

	own := keyPath(p)
	var keys [][]byte
	count := 0
	for it.Rewind(); it.Valid(); it.Next() {
		// Check context periodically
		if count%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		count++

		key := it.Item().KeyCopy(nil)
		if bytes.Equal(key, own) {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Paths returns every stored path in key order.
func (b *Backend) Paths(ctx context.Context) ([]path.Path, error) {
	var paths []path.Path

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixPath)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			paths = append(paths, pathFromKey(it.Item().Key()))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list paths: %w", err)
	}

	return paths, nil
}

var _ storage.Backend = (*Backend)(nil)
