// Package retry holds the one retry-with-timeout policy used by outbound calls.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy runs an operation up to Attempts times. Each attempt gets its own
// Timeout-bounded context which is cancelled when the attempt returns, so an
// in-flight request is aborted on timeout. Backoff is waited between attempts.
type Policy struct {
	Attempts  int
	Timeout   time.Duration
	Backoff   func(attempt int) time.Duration
	Retryable func(err error) bool
	// OnRetry observes every failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// Linear returns a backoff of step × attempt (attempt is 1-based).
func Linear(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// Permanent marks an error as not worth retrying regardless of Retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}
		err := p.run(ctx, op)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
		// The caller gave up; a per-attempt deadline is not the same thing.
		if ctx.Err() != nil {
			return err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			case <-timer.C:
			}
		}
	}
	return lastErr
}

func (p Policy) run(ctx context.Context, op func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return op(attemptCtx)
}
