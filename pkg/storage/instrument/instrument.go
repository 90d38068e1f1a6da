// Package instrument wraps a storage backend to record the duration and
// outcome of every operation.
package instrument

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
)

// Operation names passed to Metrics.
const (
	OpStore    = "store"
	OpRemove   = "remove"
	OpRetrieve = "retrieve"
)

// Metrics receives one observation per backend operation.
//
// Implementations must be safe for concurrent use. err is the error returned
// to the caller, or nil on success.
type Metrics interface {
	// ObserveOperation records an operation with its duration and outcome
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records the size of content stored or retrieved
	RecordBytes(operation string, bytes int)
}

// Outcome classifies err for use as a metric label: "ok", "canceled", the
// storage error code name, or "error".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	if code, ok := storage.CodeOf(err); ok {
		return code.String()
	}
	return "error"
}

// Backend is a storage.Backend that reports to Metrics.
type Backend struct {
	inner   storage.Backend
	metrics Metrics
}

// Wrap returns inner instrumented with m. A nil m returns inner unchanged.
func Wrap(inner storage.Backend, m Metrics) storage.Backend {
	if m == nil {
		return inner
	}
	return &Backend{inner: inner, metrics: m}
}

// Unwrap returns the instrumented backend.
func (b *Backend) Unwrap() storage.Backend {
	return b.inner
}

// Store stores content at p.
func (b *Backend) Store(ctx context.Context, p path.Path, content string) error {
	start := time.Now()
	err := b.inner.Store(ctx, p, content)
	b.metrics.ObserveOperation(OpStore, time.Since(start), err)
	if err == nil {
		b.metrics.RecordBytes(OpStore, len(content))
	}
	return err
}

// Remove removes p and everything below it.
func (b *Backend) Remove(ctx context.Context, p path.Path) error {
	start := time.Now()
	err := b.inner.Remove(ctx, p)
	b.metrics.ObserveOperation(OpRemove, time.Since(start), err)
	return err
}

// Retrieve returns the content stored at p.
func (b *Backend) Retrieve(ctx context.Context, p path.Path) (string, error) {
	start := time.Now()
	content, err := b.inner.Retrieve(ctx, p)
	b.metrics.ObserveOperation(OpRetrieve, time.Since(start), err)
	if err == nil {
		b.metrics.RecordBytes(OpRetrieve, len(content))
	}
	return content, err
}

// Close closes the instrumented backend if it holds resources.
func (b *Backend) Close() error {
	if c, ok := b.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ storage.Backend = (*Backend)(nil)
