// Package retry provides exponential-backoff retry for transient provider
// errors.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	kiln "github.com/spetersoncode/kiln"
)

// Config holds retry parameters.
type Config struct {
	// MaxAttempts is the maximum number of attempts; the initial call
	// counts as attempt 1.
	MaxAttempts int

	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier.
	Multiplier float64

	// Jitter randomizes each delay by a factor in [1-Jitter, 1+Jitter] to
	// spread concurrent workers' retries apart.
	Jitter float64
}

// DefaultConfig returns the default policy: 5 attempts, 1s initial delay
// doubling up to 30s, 10% jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Disabled returns a single-attempt policy.
func Disabled() Config {
	return Config{MaxAttempts: 1}
}

// Delay returns the backoff delay for a zero-indexed attempt:
// min(MaxDelay, InitialDelay * Multiplier^attempt), jittered.
func (c Config) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if c.Jitter > 0 {
		delay *= 1.0 + (rand.Float64()*2-1)*c.Jitter
	}
	return time.Duration(delay)
}

// Do calls fn until it succeeds, the error is not transient, or attempts
// run out. A server-suggested retry delay on the error overrides the
// computed backoff. Context cancellation is honored during waits.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !kiln.IsTransient(err) {
			return zero, err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.Delay(attempt)
		if hint := kiln.RetryAfterOf(err); hint > 0 {
			delay = hint
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}
