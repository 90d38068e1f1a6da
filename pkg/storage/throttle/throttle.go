// Package throttle wraps a storage.Backend so that its operations are rate
// limited. It is meant for remote backends (S3, Redis) shared with other
// workloads.
package throttle

import (
	"context"
	"io"

	"github.com/marmos91/larder/internal/ratelimiter"
	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
)

// Config controls the rate limit.
type Config struct {
	// OpsPerSecond is the sustained operation rate. Zero disables limiting.
	OpsPerSecond uint `mapstructure:"ops_per_second" yaml:"ops_per_second"`

	// Burst is how many operations may run back to back (default: OpsPerSecond)
	Burst uint `mapstructure:"burst" yaml:"burst,omitempty"`
}

// Backend delegates to an inner Backend after acquiring a rate limit token.
//
// When the context is cancelled while waiting for a token, the context error
// is returned and the inner backend is not called.
type Backend struct {
	inner   storage.Backend
	limiter *ratelimiter.RateLimiter
}

// Wrap returns inner wrapped with the limit in cfg. With OpsPerSecond zero,
// inner is returned unchanged.
func Wrap(inner storage.Backend, cfg Config) storage.Backend {
	limiter := ratelimiter.New(cfg.OpsPerSecond, cfg.Burst)
	if limiter.Unlimited() {
		return inner
	}
	return &Backend{inner: inner, limiter: limiter}
}

// Unwrap returns the wrapped backend.
func (b *Backend) Unwrap() storage.Backend {
	return b.inner
}

// Store waits for a token, then stores content at p in the inner backend.
// A context ending while waiting returns the context error.
func (b *Backend) Store(ctx context.Context, p path.Path, content string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return waitError(ctx, err)
	}
	return b.inner.Store(ctx, p, content)
}

// Remove waits for a token, then removes p from the inner backend.
func (b *Backend) Remove(ctx context.Context, p path.Path) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return waitError(ctx, err)
	}
	return b.inner.Remove(ctx, p)
}

// Retrieve waits for a token, then reads p from the inner backend.
func (b *Backend) Retrieve(ctx context.Context, p path.Path) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", waitError(ctx, err)
	}
	return b.inner.Retrieve(ctx, p)
}

// Close closes the inner backend if it holds resources.
func (b *Backend) Close() error {
	if c, ok := b.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// waitError prefers the context's own error so callers can match
// context.Canceled and context.DeadlineExceeded. rate.Limiter reports a
// deadline that would expire before the next token with a plain error.
func waitError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

var _ storage.Backend = (*Backend)(nil)
