package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and jitter.
type RetryConfig struct {
	// MaxRetries is the retry budget after the first attempt. A value of 3
	// means at most 4 invocations. Default: 3.
	MaxRetries int

	// InitialDelay is the sleep before the first retry. Default: 5s.
	InitialDelay time.Duration

	// MaxDelay caps the backoff delay. Default: 60s.
	MaxDelay time.Duration

	// ShouldRetry optionally overrides the default transient-error check.
	// If nil, IsTransient is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with the 1-based retry
	// number and the error that triggered it.
	OnRetry func(retry int, delay time.Duration, err error)
}

// DefaultRetryConfig returns the retry configuration used for upstream
// API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 5 * time.Second,
		MaxDelay:     60 * time.Second,
	}
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 5 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 60 * time.Second
	}
	return cfg
}

// Do executes fn with retry on transient errors. Retry state (count,
// current delay) is local to one invocation; concurrent calls never share
// state. Context cancellation stops retries immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal executes fn with retry on transient errors, preserving the value
// from the successful call. Non-transient errors and exhausted budgets
// propagate the last error unchanged.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 0; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
		if attempt >= cfg.MaxRetries {
			return zero, lastErr
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, delay, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}

		delay = nextDelay(delay, cfg.MaxDelay)
	}
}

// nextDelay doubles the delay with ±50% jitter, capped at max:
// min(delay * 2 * (0.5 + rand[0,1)), max).
func nextDelay(delay, max time.Duration) time.Duration {
	next := time.Duration(float64(delay) * 2 * (0.5 + rand.Float64()))
	if next > max {
		next = max
	}
	if next < 0 {
		next = 0
	}
	return next
}

// RetryLogger returns an OnRetry callback that logs each retry attempt
// with its backoff delay and budget.
func RetryLogger(service, operation string, maxRetries int) func(int, time.Duration, error) {
	return func(retry int, delay time.Duration, err error) {
		zap.L().Warn("transient error, retrying",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("retry", retry),
			zap.Int("max_retries", maxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
}
