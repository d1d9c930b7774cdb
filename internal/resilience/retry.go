package resilience

import (
	"context"
)

// RetryConfig bounds how a call is re-attempted. The pipeline never allows
// more than one retry per call, so MaxAttempts defaults to 2.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// ShouldRetry decides whether err warrants another attempt. If nil,
	// IsTransient is used.
	ShouldRetry func(err error) bool

	// BeforeRetry runs before each retry (e.g. to refresh a credential).
	// A non-nil error aborts the loop and is returned as-is.
	BeforeRetry func(ctx context.Context, attempt int, err error) error
}

// DoVal calls fn until it succeeds, the error is not retryable, attempts are
// exhausted, or ctx is done. fn receives the zero-based attempt number.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx, attempt)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) || attempt == cfg.MaxAttempts-1 {
			break
		}

		if cfg.BeforeRetry != nil {
			if err := cfg.BeforeRetry(ctx, attempt+1, lastErr); err != nil {
				return zero, err
			}
		}
	}

	return zero, lastErr
}
