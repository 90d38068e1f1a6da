package task

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/larder/internal/logger"
	"github.com/marmos91/larder/pkg/secrets/generator"
	"github.com/marmos91/larder/pkg/secrets/transformer"
	"github.com/marmos91/larder/pkg/storage"
	"github.com/sethvargo/go-retry"
)

// DefaultRetryBase is the first Fibonacci backoff interval between store
// attempts.
const DefaultRetryBase = 100 * time.Millisecond

// Generate produces a secret, transforms it and stores it at Path.
//
// Example:
//
//	t := &task.Generate{
//	    ID:        "database_password",
//	    Path:      "secrets/database/password",
//	    Generator: generator.NewAlphanumeric(generator.CaseBoth),
//	    Storage:   st,
//	}
//	err := t.Run(ctx)
type Generate struct {
	// ID names the secret in logs and in the registry
	ID string

	// Path is the raw path the secret is stored at. It is resolved by Storage.
	Path string

	// Generator produces the raw value
	Generator generator.Generator

	// Transformer maps the value to stored content (default: identity)
	Transformer transformer.Transformer

	// Storage receives the result
	Storage *storage.Storage

	// Retries is how many times a failed store is retried (default: 0).
	// Only I/O failures are retried.
	Retries uint

	// RetryBase is the first backoff interval (default: DefaultRetryBase)
	RetryBase time.Duration
}

// Name implements Task.
func (g *Generate) Name() string {
	return g.ID
}

// Description implements Task.
func (g *Generate) Description() string {
	return fmt.Sprintf("Generates and stores the '%s' secret.", g.ID)
}

// Run generates, transforms and stores the secret.
//
// Storage errors are returned unchanged so callers can match them with
// errors.Is against the storage sentinels.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - error: Generator or transformer errors (wrapped), storage errors, or
//     context errors
func (g *Generate) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.Generator == nil {
		return fmt.Errorf("task %q has no generator", g.ID)
	}
	if g.Storage == nil {
		return fmt.Errorf("task %q has no storage", g.ID)
	}

	logger.Info("Generating '%s' secret...", g.ID)

	value, err := g.Generator.Generate()
	if err != nil {
		return fmt.Errorf("task %q: failed to generate value: %w", g.ID, err)
	}

	content, err := g.transformer().Transform(value)
	if err != nil {
		return fmt.Errorf("task %q: failed to transform value: %w", g.ID, err)
	}

	return g.store(ctx, content)
}

func (g *Generate) transformer() transformer.Transformer {
	if g.Transformer == nil {
		return transformer.Identity()
	}
	return g.Transformer
}

// store writes content, retrying I/O failures with Fibonacci backoff.
// Semantic failures (PathIsDirectory, UnsupportedOperation, ...) are returned
// on the first attempt.
func (g *Generate) store(ctx context.Context, content string) error {
	if g.Retries == 0 {
		return g.Storage.Store(ctx, g.Path, content)
	}

	base := g.RetryBase
	if base <= 0 {
		base = DefaultRetryBase
	}
	b := retry.WithMaxRetries(uint64(g.Retries), retry.NewFibonacci(base))

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := g.Storage.Store(ctx, g.Path, content)
		if err != nil && storage.IsIOError(err) {
			logger.Warn("task %s: store attempt %d failed: %v", g.ID, attempt, err)
			return retry.RetryableError(err)
		}
		return err
	})
}

var _ Task = (*Generate)(nil)
