// Package retry provides exponential backoff with jitter for calls to
// external providers. Errors exposing a Temporary() bool method, in
// the manner of net.Error, control whether a failure is retried; any
// other error stops the loop immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Policy describes one backoff schedule. MaxRetries counts the
// attempts after the first, so MaxRetries of 2 means up to 3 calls.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          bool
	MaxRetries      int
}

// DefaultPolicy returns the schedule used for mailbox mutations.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
		MaxRetries:      2,
	}
}

// Backoff returns the delay before the given retry attempt, starting
// at attempt 1.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return p.InitialInterval
	}

	interval := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attempt-1))
	if interval > float64(p.MaxInterval) {
		interval = float64(p.MaxInterval)
	}

	duration := time.Duration(interval)
	if p.Jitter && duration > 1 {
		jitter := time.Duration(rand.Int63n(int64(duration / 2)))
		duration = duration/2 + jitter
	}

	return duration
}

type temporary interface {
	Temporary() bool
}

// retryable reports whether the error advertises itself as transient.
func retryable(err error) bool {
	var t temporary
	return errors.As(err, &t) && t.Temporary()
}

// Do runs fn under the policy. Transient errors are retried with
// backoff until the budget runs out; the final wrapped error still
// unwraps to the last provider failure.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	var attempts int
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		attempts = attempt + 1
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled by context: %w", ctx.Err())
			case <-time.After(p.Backoff(attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return err
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", attempts, lastErr)
}
