package vendorfeed

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/catsync/backend/internal/domain/vendor"
)

// DefaultRetryPolicy retries transient feed failures twice after the initial
// attempt, waiting 5s then 10s between attempts.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Backoff:     []time.Duration{5 * time.Second, 10 * time.Second},
}

// RetryPolicy bounds retries of feed retrieval. Only failures wrapped in
// vendor.ErrFeedTransient are retried; authentication rejections and malformed
// payloads fail immediately.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first
	MaxAttempts int
	// Backoff holds the waits between consecutive attempts; the last entry
	// repeats if MaxAttempts exceeds len(Backoff)+1
	Backoff []time.Duration
}

// Do runs fn until it succeeds, fails permanently, exhausts the attempt
// budget, or the context is cancelled. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, logger *zap.Logger, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, vendor.ErrFeedTransient) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		wait := p.backoffFor(attempt)
		if logger != nil {
			logger.Warn("transient feed failure, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.Error(lastErr))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}

// backoffFor returns the wait after the given 1-based attempt.
func (p RetryPolicy) backoffFor(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return time.Second
	}
	if attempt > len(p.Backoff) {
		return p.Backoff[len(p.Backoff)-1]
	}
	return p.Backoff[attempt-1]
}
