package zoom

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent is the default number of simultaneous outbound Zoom API calls.
const DefaultMaxConcurrent = 8

// ConcurrencyLimiter caps the number of outbound calls in flight.
type ConcurrencyLimiter struct {
	sem *semaphore.Weighted
}

// NewConcurrencyLimiter creates a limiter allowing max concurrent calls.
// Values below 1 fall back to DefaultMaxConcurrent.
func NewConcurrencyLimiter(max int) *ConcurrencyLimiter {
	if max < 1 {
		max = DefaultMaxConcurrent
	}
	return &ConcurrencyLimiter{sem: semaphore.NewWeighted(int64(max))}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *ConcurrencyLimiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire upstream slot: %w", err)
	}
	return nil
}

// Release frees a slot. It must be paired with a successful Acquire (in a defer statement).
func (l *ConcurrencyLimiter) Release() {
	l.sem.Release(1)
}
