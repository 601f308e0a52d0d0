package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transientErr struct{ msg string }

func (e *transientErr) Error() string   { return e.msg }
func (e *transientErr) Temporary() bool { return true }

type permanentErr struct{ msg string }

func (e *permanentErr) Error() string   { return e.msg }
func (e *permanentErr) Temporary() bool { return false }

func fastPolicy(maxRetries int) Policy {
	return Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     4 * time.Millisecond,
		Multiplier:      2.0,
		Jitter:          false,
		MaxRetries:      maxRetries,
	}
}

func TestBackoffGrowth(t *testing.T) {
	p := Policy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     1 * time.Second,
		Multiplier:      2.0,
		Jitter:          false,
	}

	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(3))
	assert.Equal(t, 800*time.Millisecond, p.Backoff(4))
	assert.Equal(t, 1*time.Second, p.Backoff(5), "capped at MaxInterval")
	assert.Equal(t, 1*time.Second, p.Backoff(10))
	assert.Equal(t, 100*time.Millisecond, p.Backoff(0))
}

func TestBackoffJitterBounds(t *testing.T) {
	p := Policy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     1 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}

	for i := 0; i < 50; i++ {
		d := p.Backoff(2)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.Less(t, d, 200*time.Millisecond)
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &transientErr{"throttled"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsBudget(t *testing.T) {
	calls := 0
	inner := &transientErr{"throttled"}
	err := fastPolicy(2).Do(context.Background(), func() error {
		calls++
		return inner
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "initial attempt plus MaxRetries")
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.ErrorIs(t, err, inner, "the last provider failure stays unwrappable")
}

func TestDoFailsFastOnPermanent(t *testing.T) {
	calls := 0
	inner := &permanentErr{"forbidden"}
	err := fastPolicy(5).Do(context.Background(), func() error {
		calls++
		return inner
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, inner, err, "permanent failures return unwrapped")
}

func TestDoFailsFastOnPlainError(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), func() error {
		calls++
		return errors.New("no Temporary method")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	p := Policy{
		InitialInterval: time.Hour,
		MaxInterval:     time.Hour,
		Multiplier:      2.0,
		MaxRetries:      2,
	}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func() error {
			calls++
			return &transientErr{"throttled"}
		})
	}()

	// Let the first attempt fail, then cancel during the backoff wait
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}
