package errors

import (
	"context"
	"time"
)

// RetryConfig configures retry behavior for transient failures.
// Every polling and retry loop in the core uses this one policy shape so the
// "give up after N attempts" contract is enforced in a single place.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	RetryableCode func(ErrorCode) bool
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryFunc is a function that can be retried
type RetryFunc func() error

// RetryWithConfig retries a function until it succeeds, returns a
// non-retryable error, or exhausts the configured attempts.
func RetryWithConfig(ctx context.Context, fn RetryFunc, config *RetryConfig) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err, config) {
			return err
		}

		if attempt == config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * config.Multiplier)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return WrapGiftError(lastErr, ErrCodeInternal, "maximum retry attempts exceeded").
		WithContext("attempts", config.MaxAttempts)
}

// Retry retries a function with the default configuration
func Retry(ctx context.Context, fn RetryFunc) error {
	return RetryWithConfig(ctx, fn, DefaultRetryConfig())
}

func retryable(err error, config *RetryConfig) bool {
	if config.RetryableCode != nil {
		var ge *GiftError
		if As(err, &ge) {
			return config.RetryableCode(ge.Code)
		}
	}
	return IsRetryable(err)
}

// ExponentialBackoff calculates the delay before the given attempt.
// Attempt numbering starts at 1; attempt 1 waits the base delay.
func ExponentialBackoff(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 1 {
		return baseDelay
	}
	delay := baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > maxDelay {
			return maxDelay
		}
	}
	return delay
}
