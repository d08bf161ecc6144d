package provider

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/errs"
)

// RetryConfig defines retry behavior for provider calls.
type RetryConfig struct {
	// MaxAttempts bounds the total number of calls, first try included.
	MaxAttempts int
	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
	// Multiplier grows the delay after each attempt.
	Multiplier float64
	// JitterFactor randomizes delays (0.0-1.0) so concurrent requests
	// don't retry in lockstep.
	JitterFactor float64
}

// DefaultRetryConfig returns the standard provider retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// WithRetry runs fn until it succeeds, fails with a non-retryable error,
// or exhausts cfg.MaxAttempts. Waits grow exponentially with jitter and
// are cut short by ctx cancellation. The wrapper is stateless: there is
// no shared circuit-breaker state between calls.
//
// On exhaustion the returned error is a *errs.RetryExhaustedError
// carrying the attempt count and the last underlying error, so an
// exhausted retry is distinguishable from a first-attempt failure.
func WithRetry(ctx context.Context, cfg RetryConfig, logger *zap.Logger, fn func() (*Response, error)) (*Response, error) {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		if !errs.IsRetryable(err) {
			return nil, err
		}
		lastErr = err
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := addJitter(delay, cfg.JitterFactor)
		logger.Warn("provider call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, errs.Provider(ctx.Err())
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return nil, &errs.RetryExhaustedError{Attempts: cfg.MaxAttempts, Err: lastErr}
}

// addJitter randomizes d by ±factor. Jitter needs no cryptographic
// randomness.
func addJitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return d
	}
	jitter := (rand.Float64() - 0.5) * 2 * factor * float64(d)
	out := time.Duration(float64(d) + jitter)
	if out < 0 {
		out = 0
	}
	return out
}
