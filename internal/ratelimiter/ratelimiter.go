// Package ratelimiter throttles backend operations with a token bucket.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter limits how many operations per second pass through.
//
// It wraps golang.org/x/time/rate: tokens refill at the configured rate and
// up to burst operations may run back to back once the bucket is full.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing opsPerSecond sustained operations with
// the given burst capacity.
//
// Special cases:
//   - opsPerSecond = 0: no limit
//   - burst = 0: burst defaults to opsPerSecond (at least 1)
//
// Example:
//
//	// At most 50 S3 writes per second, 100 in a burst
//	limiter := New(50, 100)
func New(opsPerSecond, burst uint) *RateLimiter {
	if opsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}

	if burst == 0 {
		burst = opsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(opsPerSecond), int(burst)),
	}
}

// Unlimited reports whether the limiter lets everything through.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// Allow consumes a token if one is available, without waiting.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
//
// Returns:
//   - nil if a token was acquired
//   - an error if ctx was cancelled, or its deadline would pass before a
//     token is available
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
