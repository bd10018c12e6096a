package runloop

import (
	"context"
	"math"
	"time"
)

// RetryConfig controls retries of transient generation failures.
type RetryConfig struct {
	// MaxAttempts includes the first try.
	MaxAttempts  int
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay   time.Duration
	Multiplier float64
	// IsRetryable decides whether an error is worth another attempt.
	IsRetryable func(error) bool
}

// DefaultRetryConfig returns three attempts starting at 5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 5 * time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay < 0 {
		c.InitialDelay = 0
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = time.Minute
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.IsRetryable == nil {
		c.IsRetryable = func(error) bool { return false }
	}
	return c
}

// delay returns the backoff before the given retry (attempt starts at 1).
func (c RetryConfig) delay(attempt int) time.Duration {
	// clamp before converting; large attempts overflow int64
	f := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	if f >= float64(c.MaxDelay) || math.IsInf(f, 0) || math.IsNaN(f) {
		return c.MaxDelay
	}
	return time.Duration(f)
}

// retry runs fn until it succeeds, returns a non-retryable error, runs out
// of attempts, or ctx ends. It returns the last error from fn, or the
// context error if cancelled while waiting.
func retry(ctx context.Context, cfg RetryConfig, onRetry func(attempt int, err error), fn func() error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !cfg.IsRetryable(lastErr) || attempt == cfg.MaxAttempts {
			return lastErr
		}

		if onRetry != nil {
			onRetry(attempt, lastErr)
		}
		timer := time.NewTimer(cfg.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}
