package util

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy is an explicit retry policy value: how many attempts to make
// and how long to back off before each retry. Policies are plain values so
// callers can carry them through configuration instead of hiding counters in
// closures.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// QuadraticBackoff returns a backoff function growing as base*attempt².
func QuadraticBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt*attempt)
	}
}

// Do calls fn up to MaxAttempts times, sleeping Backoff(attempt) between
// attempts. It returns nil on the first success, the wrapped error
// immediately when fn fails with Permanent, or the last error once attempts
// are exhausted. Context cancellation is respected between retries.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		// Don't sleep after the last failed attempt.
		if attempt < p.MaxAttempts && p.Backoff != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff(attempt)):
			}
		}
	}
	return err
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do surfaces it immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
