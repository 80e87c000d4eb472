// Package retry runs a fallible operation with backoff between attempts.
//
// Do makes at most MaxRetries+1 calls. Waiting between attempts is
// cancellation-aware: once ctx is done no further attempt starts and the
// context error is returned instead of the operation's error.
package retry

import (
	"context"
	"math"
	"time"
)

// Backoff returns the delay before the given retry. attempt starts at 1 for
// the first retry.
type Backoff func(base time.Duration, attempt int) time.Duration

// Exponential doubles the delay on each retry: base, 2*base, 4*base, ...
func Exponential(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return time.Duration(math.Pow(2, float64(attempt-1))) * base
}

// Linear grows the delay by base on each retry: base, 2*base, 3*base, ...
func Linear(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return base * time.Duration(attempt)
}

// Policy controls how Do retries.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is passed to Backoff.
	BaseDelay time.Duration
	// Backoff computes the delay before each retry. Nil means Exponential.
	Backoff Backoff
	// RetryIf reports whether an error may be retried. Nil retries every error.
	RetryIf func(error) bool
	// AttemptTimeout bounds a single attempt. Zero means no bound.
	AttemptTimeout time.Duration
	// OnRetry is called before waiting for each retry.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Validate validates the policy
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return ErrInvalidRetries(p.MaxRetries)
	}
	if p.BaseDelay < 0 {
		return ErrInvalidDelay(p.BaseDelay)
	}
	return nil
}

// Delay returns the wait before the given retry under p.
func (p Policy) Delay(attempt int) time.Duration {
	backoff := p.Backoff
	if backoff == nil {
		backoff = Exponential
	}
	return backoff(p.BaseDelay, attempt)
}

// Do calls op until it succeeds, the error is not retryable, retries run out
// or ctx is done. On exhaustion the returned error wraps both ErrExhausted and
// the last operation error.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := p.Validate(); err != nil {
		return zero, err
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt)
			if p.OnRetry != nil {
				p.OnRetry(attempt, delay, lastErr)
			}
			if err := wait(ctx, delay); err != nil {
				return zero, err
			}
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := call(ctx, p.AttemptTimeout, op)
		if err == nil {
			return v, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		lastErr = err
		if p.RetryIf != nil && !p.RetryIf(err) {
			return zero, err
		}
		if attempt >= p.MaxRetries {
			return zero, ErrAttemptsExhausted(attempt+1, err)
		}
	}
}

func call[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
