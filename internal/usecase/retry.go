package usecase

import (
	"context"
	"time"
)

// RetryPolicy is the bounded retry/backoff applied to every collaborator
// call (extraction, photo analysis, storage polling, catalog submission).
// Fixed delay between attempts; no exponential growth, calls here are cheap
// to repeat and the user is waiting on an SMS reply.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetry is a few quick attempts, matching the short patience budget
// of a chat turn.
var DefaultRetry = RetryPolicy{MaxAttempts: 3, Delay: 500 * time.Millisecond}

// Do runs fn up to MaxAttempts times, sleeping Delay between failures.
// Context cancellation wins over further attempts.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if i < attempts-1 && p.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Delay):
			}
		}
	}
	return lastErr
}
