package utils

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig controls WithRetry. Timeout bounds each attempt, not the whole
// call. Retryable decides whether an attempt's error is worth another try;
// a nil Retryable retries every error.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Timeout       time.Duration
	Retryable     func(error) bool
}

// RetryableFunc is one attempt of a retried operation.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

// DefaultRetryConfig returns three attempts with exponential backoff from
// one second, capped at five.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Timeout:       30 * time.Second,
	}
}

// Backoff returns the wait before attempt+1, without jitter.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	delay := time.Duration(float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt-1)))
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// WithRetry runs operation until it succeeds, returns a non-retryable error,
// or runs out of attempts. The caller's context is never retried past: once
// it is done, its error is returned.
func WithRetry[T any](ctx context.Context, operation RetryableFunc[T], config RetryConfig) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, config.Timeout)
		result, err := operation(attemptCtx)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt == config.MaxAttempts {
			break
		}
		if config.Retryable != nil && !config.Retryable(err) {
			break
		}

		delay := config.Backoff(attempt)
		if jitter := int64(delay) / 10; jitter > 0 {
			delay += time.Duration(rand.Int64N(jitter))
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

// IsTimeout reports whether err is an attempt timing out.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
