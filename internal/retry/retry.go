// Package retry runs an operation with bounded attempts, exponential backoff
// and rate-limit aware waits.
//
// Failures are classified into the kinds of common.Kind. Client and
// validation failures are returned at once. Network, server, rate-limit and
// unrecognised failures are retried. Rate-limit failures wait for the
// duration the remote asked for (capped) instead of the backoff delay.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/common"
)

const (
	DefaultMaxAttempts       = 3
	DefaultInitialDelay      = time.Second
	DefaultBackoffMultiplier = 2.0

	// MaxRateLimitWait caps any wait parsed from a rate-limit response.
	MaxRateLimitWait = 300 * time.Second
	// DefaultRateLimitWait is used when a rate-limit response names no wait.
	DefaultRateLimitWait = 10 * time.Second
)

// Options configure Do. Zero fields take the package defaults.
type Options struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	BackoffMultiplier float64

	// ShouldRetry replaces the built-in classification when set.
	ShouldRetry func(err error) bool
	// OnRetry is called after failed attempt number attempt, before waiting.
	OnRetry func(attempt int, err error)
	// OnRateLimit is called instead of OnRetry for rate-limit failures.
	OnRateLimit func(waitSeconds int)

	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.BackoffMultiplier <= 0 {
		o.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if o.Sleep == nil {
		o.Sleep = waitWithContext
	}
	return o
}

// Do calls op until it succeeds, fails with a non-retryable error, or the
// attempts run out. A non-retryable error is returned unchanged; running out
// of attempts returns *common.ExhaustedError wrapping the last error.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	opts = opts.withDefaults()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, err
		}
		if !shouldRetry(opts, err) {
			return zero, err
		}
		if attempt == opts.MaxAttempts {
			break
		}

		var delay time.Duration
		if Classify(err) == common.KindRateLimit {
			delay = RateLimitWait(err)
			if opts.OnRateLimit != nil {
				opts.OnRateLimit(int(delay / time.Second))
			}
		} else {
			delay = Backoff(opts.InitialDelay, opts.BackoffMultiplier, attempt)
			if opts.OnRetry != nil {
				opts.OnRetry(attempt, err)
			}
		}

		if err := opts.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, &common.ExhaustedError{Attempts: opts.MaxAttempts, Kind: Classify(lastErr), Err: lastErr}
}

// DoErr is Do for operations without a result.
func DoErr(ctx context.Context, op func(ctx context.Context) error, opts Options) error {
	_, err := Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts)
	return err
}

// Backoff is the wait after failed attempt number attempt (1-based):
// initial * multiplier^(attempt-1).
func Backoff(initial time.Duration, multiplier float64, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(initial) * math.Pow(multiplier, float64(attempt-1)))
}

func shouldRetry(opts Options, err error) bool {
	if opts.ShouldRetry != nil {
		return opts.ShouldRetry(err)
	}
	return IsRetryable(err)
}

func waitWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
