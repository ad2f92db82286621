package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces calls evenly by scheduling each caller one interval
// after the previous one. There is no burst allowance: the upstream sees at
// most one request per interval however many goroutines contend.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewRateLimiter creates a RateLimiter allowing perMinute calls per minute.
// A non-positive perMinute disables pacing entirely.
func NewRateLimiter(perMinute int) *RateLimiter {
	rl := &RateLimiter{}
	if perMinute > 0 {
		rl.interval = time.Minute / time.Duration(perMinute)
	}
	return rl
}

// Wait blocks until the caller's scheduled slot or the context is cancelled.
// The first call passes immediately. A cancelled wait does not give the slot
// back; the schedule only moves forward.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	at := rl.next
	if at.Before(now) {
		at = now
	}
	rl.next = at.Add(rl.interval)
	rl.mu.Unlock()

	d := at.Sub(now)
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
