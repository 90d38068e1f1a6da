package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marmos91/larder/internal/logger"
	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// scanCount is the COUNT hint passed to SCAN.
const scanCount = 100

// Client is the subset of *redis.Client the backend calls.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Options are the connection settings used by Open.
type Options struct {
	// Redis server address (host:port)
	Address string
	// Password required when connecting to the Redis server
	Password string
	// DB to connect to
	DB int
	// TLS config, nil for plaintext
	TLSConfig *tls.Config
}

// DefaultOptions returns options for a local unauthenticated server.
func DefaultOptions() Options {
	return Options{
		Address:  "localhost:6379",
		Password: "", // no password set
		DB:       0,  // use default DB
	}
}

// Config holds the redis backend settings.
type Config struct {
	// Client is the connected client
	Client Client

	// KeyPrefix namespaces every key (e.g. "larder:")
	KeyPrefix string
}

// Backend implements storage.Backend on a Redis keyspace.
//
// Each stored path is one string key, KeyPrefix + path. Directories are
// emulated with SCAN over the pattern "<key>/*", so a directory check is
// O(keyspace) on the server side, like the in-memory backend's scan.
//
// Remove issues one DEL for the key and all its descendants. DEL is atomic,
// but the SCAN that gathers the keys is not: a descendant stored
// concurrently with a Remove may survive it.
//
// Thread Safety:
// go-redis clients are safe for concurrent use.
type Backend struct {
	client    Client
	keyPrefix string
	owner     bool
}

// New creates a backend over an existing client. The caller keeps ownership
// of the client; Close does not close it.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	return &Backend{
		client:    cfg.Client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Open connects to Redis with options, pings the server and returns a
// backend that owns the connection.
func Open(ctx context.Context, options Options, keyPrefix string) (*Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		TLSConfig: options.TLSConfig,
		Addr:      options.Address,
		Password:  options.Password,
		DB:        options.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", options.Address, err)
	}

	return &Backend{
		client:    client,
		keyPrefix: keyPrefix,
		owner:     true,
	}, nil
}

// Close closes the connection if the backend opened it.
func (b *Backend) Close() error {
	if !b.owner {
		return nil
	}
	return b.client.Close()
}

// ============================================================================
// storage.Backend Interface Implementation
// ============================================================================

// Store sets the key for p to content, without expiration.
func (b *Backend) Store(ctx context.Context, p path.Path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p = path.Root.Join(p)

	if err := b.client.Set(ctx, b.key(p), content, 0).Err(); err != nil {
		return storage.NewStoreError(p, err)
	}

	logger.Debug("redis: stored %s (%d bytes)", p, len(content))
	return nil
}

// Remove deletes the key for p and every descendant key with one DEL.
//
// Returns:
//   - error: PathDoesNotExist when nothing matches, RemoveError wrapping the
//     client error, or context errors
func (b *Backend) Remove(ctx context.Context, p path.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p = path.Root.Join(p)
	own := b.key(p)

	// ========================================================================
	// Step 1: Collect the key itself and every descendant
	// ========================================================================

	keys, err := b.scanDescendants(ctx, p, 0)
	if err != nil {
		return storage.NewRemoveError(p, err)
	}

	n, err := b.client.Exists(ctx, own).Result()
	if err != nil {
		return storage.NewRemoveError(p, err)
	}
	if n > 0 {
		keys = append(keys, own)
	}

	if len(keys) == 0 {
		return storage.NewPathDoesNotExistError(p)
	}

	// ========================================================================
	// Step 2: Delete them in one command
	// ========================================================================

	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return storage.NewRemoveError(p, err)
	}

	logger.Debug("redis: removed %s (%d keys)", p, len(keys))
	return nil
}

// Retrieve returns the value of the key for p.
//
// The directory check runs first, so a path with descendants is reported as
// PathIsDirectory even when its own key also exists.
func (b *Backend) Retrieve(ctx context.Context, p path.Path) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p = path.Root.Join(p)

	descendants, err := b.scanDescendants(ctx, p, 1)
	if err != nil {
		return "", storage.NewRetrieveError(p, err)
	}
	if len(descendants) > 0 {
		return "", storage.NewPathIsDirectoryError(p)
	}

	content, err := b.client.Get(ctx, b.key(p)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.NewPathDoesNotExistError(p)
		}
		return "", storage.NewRetrieveError(p, err)
	}

	return content, nil
}

// ============================================================================
// Helpers
// ============================================================================

// key returns the Redis key for p.
func (b *Backend) key(p path.Path) string {
	return b.keyPrefix + p.String()
}

// scanDescendants returns keys strictly below p, stopping after limit keys
// when limit > 0.
func (b *Backend) scanDescendants(ctx context.Context, p path.Path, limit int) ([]string, error) {
	own := b.key(p)
	match := escapeGlob(b.keyPrefix+p.DirPrefix()) + "*"

	var found []string
	var cursor uint64
	for {
		keys, next, err := b.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, err
		}

		for _, k := range keys {
			// The root's pattern "/*" also matches the root's own key.
			if k == own {
				continue
			}
			found = append(found, k)
			if limit > 0 && len(found) >= limit {
				return found, nil
			}
		}

		if next == 0 {
			return dedupe(found), nil
		}
		cursor = next
	}
}

// dedupe drops repeated keys; SCAN may return a key more than once.
func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// escapeGlob escapes Redis glob metacharacters so s matches literally.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var _ storage.Backend = (*Backend)(nil)
