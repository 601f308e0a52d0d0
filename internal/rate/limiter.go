// Package rate gates outbound mailbox API calls so a run stays inside
// the provider's per-user quota.
package rate

import (
	"context"
	"fmt"
	"time"
)

// Limiter blocks callers until the next call is allowed.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket is a fixed-rate token bucket. Tokens accumulate up to
// one second of burst.
type TokenBucket struct {
	ticker *time.Ticker
	tokens chan struct{}
	quit   chan struct{}
	done   chan struct{}
}

// NewTokenBucket returns a limiter releasing rps tokens per second.
func NewTokenBucket(rps int) *TokenBucket {
	if rps <= 0 {
		rps = 1
	}
	tb := &TokenBucket{
		ticker: time.NewTicker(time.Second / time.Duration(rps)),
		tokens: make(chan struct{}, rps),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	// the first call never waits
	tb.tokens <- struct{}{}
	go tb.refill()
	return tb
}

func (t *TokenBucket) refill() {
	defer close(t.done)
	for {
		select {
		case <-t.quit:
			return
		case <-t.ticker.C:
			select {
			case t.tokens <- struct{}{}:
			default:
			}
		}
	}
}

// Wait blocks until a token is available or the context ends.
func (t *TokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate wait cancelled: %w", ctx.Err())
	case <-t.tokens:
		return nil
	}
}

// Stop shuts down the refill goroutine.
func (t *TokenBucket) Stop() {
	t.ticker.Stop()
	close(t.quit)
	<-t.done
}

// Unlimited returns a limiter that never blocks, for mock runs and
// tests.
func Unlimited() Limiter {
	return nopLimiter{}
}

type nopLimiter struct{}

func (nopLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

var _ Limiter = (*TokenBucket)(nil)
