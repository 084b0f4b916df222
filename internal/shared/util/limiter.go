package util

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket guarding bursty publish paths.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter returns a limiter refilling r tokens per second with burst b.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{inner: rate.NewLimiter(rate.Limit(r), b)}
}

// Wait blocks until n tokens are available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}
