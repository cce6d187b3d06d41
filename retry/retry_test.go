package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kiln "github.com/spetersoncode/kiln"
)

func TestDelay(t *testing.T) {
	cfg := Config{
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, 1*time.Second, cfg.Delay(0))
	assert.Equal(t, 2*time.Second, cfg.Delay(1))
	assert.Equal(t, 4*time.Second, cfg.Delay(2))

	t.Run("capped at max", func(t *testing.T) {
		assert.Equal(t, 10*time.Second, cfg.Delay(10))
	})

	t.Run("negative attempt clamps to zero", func(t *testing.T) {
		assert.Equal(t, 1*time.Second, cfg.Delay(-3))
	})

	t.Run("jitter stays within bounds", func(t *testing.T) {
		jittered := cfg
		jittered.Jitter = 0.1
		for i := 0; i < 50; i++ {
			d := jittered.Delay(0)
			assert.GreaterOrEqual(t, d, 900*time.Millisecond)
			assert.LessOrEqual(t, d, 1100*time.Millisecond)
		}
	})
}

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(3), func() (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(5), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, kiln.NewTransientError("rate limited", 429, nil)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(5), func() (int, error) {
		calls++
		return 0, kiln.NewPermanentError("bad key", 401, nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, kiln.IsPermanent(err))
}

func TestDoStopsOnPlainError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(5), func() (int, error) {
		calls++
		return 0, errors.New("uncategorized")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	transient := kiln.NewTransientError("overloaded", 529, nil)
	_, err := Do(context.Background(), fastConfig(3), func() (int, error) {
		calls++
		return 0, transient
	})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestDoHonorsServerRetryHint(t *testing.T) {
	calls := 0
	start := time.Now()
	_, err := Do(context.Background(), fastConfig(2), func() (int, error) {
		calls++
		return 0, kiln.NewTransientErrorWithRetry("rate limited", 429, 50*time.Millisecond, nil)
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := Config{MaxAttempts: 5, InitialDelay: time.Hour, Multiplier: 2.0, MaxDelay: time.Hour}
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, cfg, func() (int, error) {
			return 0, kiln.NewTransientError("again", 503, nil)
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDisabled(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Disabled(), func() (int, error) {
		calls++
		return 0, kiln.NewTransientError("again", 503, nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
