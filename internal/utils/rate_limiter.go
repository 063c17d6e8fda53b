// internal/utils/rate_limiter.go
package utils

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter wraps the golang.org/x/time/rate limiter for page-load pacing.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter with the given rate (pages per second).
func NewRateLimiter(pagesPerSecond float64) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(pagesPerSecond), 1),
	}
}

// Wait blocks until the rate limiter allows the next page load.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// Allow reports whether a page load may happen now.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// SetLimit changes the rate limit.
func (rl *RateLimiter) SetLimit(newLimit rate.Limit) {
	rl.limiter.SetLimit(newLimit)
}
