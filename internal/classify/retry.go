package classify

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"genie-copilot/internal/domain"
)

// RetryPolicy bounds retries of a single classification call.
// Only transient failures are retried; parse failures are not.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      float64 // fraction of the delay randomized, 0..1
}

// DefaultRetryPolicy retries twice after the first attempt.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Jitter: 0.2}

// Do runs fn up to MaxAttempts times, sleeping with exponential backoff
// between attempts. Non-transient errors and context cancellation stop
// retrying immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, p.delay(attempt)); err != nil {
				return err
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var transient *domain.TransientError
		if !errors.As(lastErr, &transient) {
			return lastErr
		}
	}
	return lastErr
}

// delay computes the backoff before the given attempt: base, 2*base, 4*base...
func (p RetryPolicy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	d := base << uint(attempt-1)
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d += time.Duration((rand.Float64()*2 - 1) * spread) //nolint:gosec // jitter, not security
		if d < 0 {
			d = base
		}
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
