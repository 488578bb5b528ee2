// Package resilience provides bounded retry helpers for remote calls.
package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior. Every loop is bounded by MaxAttempts.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, first try included.
	// Default: 3.
	MaxAttempts int

	// Backoff is the linear step: the wait after attempt i (0-based) is
	// (i+1)*Backoff. Default: 1s.
	Backoff time.Duration

	// MaxBackoff caps a single wait. Default: 1m.
	MaxBackoff time.Duration

	// ShouldRetry overrides IsTransient.
	ShouldRetry func(err error) bool

	// BackoffFor computes the wait from the failed attempt's error,
	// replacing the linear curve.
	BackoffFor func(attempt int, err error) time.Duration

	// OnRetry is called before each wait with the 1-based retry number.
	OnRetry func(attempt int, err error)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempts run out. The last error is returned. Cancellation stops the
// waits immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !shouldRetry(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(backoff(attempt, lastErr, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Minute
	}
	return cfg
}

func backoff(attempt int, err error, cfg RetryConfig) time.Duration {
	delay := time.Duration(attempt+1) * cfg.Backoff
	if cfg.BackoffFor != nil {
		delay = cfg.BackoffFor(attempt, err)
	}
	return min(max(delay, 0), cfg.MaxBackoff)
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
