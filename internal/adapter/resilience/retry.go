package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/util"
)

// RetryPolicy tunes the retry loop around one upstream call.
type RetryPolicy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	ExpBase       float64
	JitterPercent float64
}

// DefaultRetryPolicy is 3 attempts with 1s base, 60s cap, exponential base 2
// and +/- 25% jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BaseDelay:     time.Second,
		MaxDelay:      60 * time.Second,
		ExpBase:       2,
		JitterPercent: 0.25,
	}
}

func (p RetryPolicy) normalised() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 60 * time.Second
	}
	if p.ExpBase <= 1 {
		p.ExpBase = 2
	}
	return p
}

// Retry runs fn up to policy.MaxAttempts times. Only transient categories
// (network, timeout, 5xx, rate limit) are retried; everything else returns
// immediately. Rate-limit errors wait twice the computed backoff. An
// exhausted budget re-surfaces the last error wrapped with the attempt
// count; classification unwraps through it.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	policy = policy.normalised()

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := util.CalculateExponentialBackoff(
				attempt-1, policy.BaseDelay, policy.MaxDelay, policy.ExpBase, policy.JitterPercent)
			if domain.Classify(lastErr) == domain.CategoryRateLimit {
				delay *= 2
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if !domain.Classify(lastErr).Retryable() {
			return lastErr
		}
	}
	return fmt.Errorf("after %d attempts: %w", policy.MaxAttempts, lastErr)
}
