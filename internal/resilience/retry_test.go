package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fast(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, Backoff: time.Millisecond}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), fast(3), func(_ context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fast(3), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("429"), 429)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls int
	err := Do(context.Background(), fast(3), func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("503"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 503, StatusCode(err))
}

func TestDo_NonTransientError_NoRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fast(3), func(_ context.Context) error {
		calls++
		return errors.New("http 404")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	err := Do(ctx, RetryConfig{MaxAttempts: 5, Backoff: time.Hour}, func(_ context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("reset"), 0)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CustomShouldRetry(t *testing.T) {
	var calls int
	cfg := fast(4)
	cfg.ShouldRetry = func(error) bool { return true }
	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errors.New("anything")
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := fast(3)
	cfg.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }
	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return NewTransientError(errors.New("x"), 429)
	})
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_BackoffForOverridesCurve(t *testing.T) {
	var seen []int
	cfg := RetryConfig{
		MaxAttempts: 3,
		Backoff:     time.Hour,
		BackoffFor: func(attempt int, _ error) time.Duration {
			seen = append(seen, attempt)
			return time.Millisecond
		},
	}
	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return NewTransientError(errors.New("x"), 503)
	})
	assert.Equal(t, []int{0, 1}, seen)
}

func TestBackoff_Linear(t *testing.T) {
	cfg := applyDefaults(RetryConfig{Backoff: 2 * time.Second})
	assert.Equal(t, 2*time.Second, backoff(0, nil, cfg))
	assert.Equal(t, 4*time.Second, backoff(1, nil, cfg))
	assert.Equal(t, 6*time.Second, backoff(2, nil, cfg))
}

func TestBackoff_CapsAtMax(t *testing.T) {
	cfg := applyDefaults(RetryConfig{Backoff: time.Minute, MaxBackoff: 90 * time.Second})
	assert.Equal(t, 90*time.Second, backoff(5, nil, cfg))
}

func TestApplyDefaults(t *testing.T) {
	cfg := applyDefaults(RetryConfig{})
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Backoff)
	assert.Equal(t, time.Minute, cfg.MaxBackoff)
}

func TestRetryLogger(t *testing.T) {
	logger := RetryLogger("sirene", "fetch_page")
	logger(1, errors.New("test error"))
}
