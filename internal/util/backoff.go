package util

import (
	"math"
	"math/rand"
	"time"
)

// CalculateExponentialBackoff computes retry backoff with +/- jitter.
// Formula: baseDelay * expBase^attempt, capped at maxDelay, then scaled by
// (1 +/- jitterPercent). attempt is zero-based.
func CalculateExponentialBackoff(attempt int, baseDelay, maxDelay time.Duration, expBase, jitterPercent float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if expBase <= 1 {
		expBase = 2
	}

	backoff := float64(baseDelay) * math.Pow(expBase, float64(attempt))
	if backoff > float64(maxDelay) {
		backoff = float64(maxDelay)
	}

	if jitterPercent > 0 {
		jitter := backoff * jitterPercent * (rand.Float64()*2 - 1)
		backoff += jitter
	}

	if backoff < 0 {
		return 0
	}
	return time.Duration(backoff)
}

// CalculateRecoveryBackoff computes the delay before a recovery attempt for
// a failing service. Doubles per consecutive failure from step, capped.
func CalculateRecoveryBackoff(consecutiveFailures int, step, maxDelay time.Duration) time.Duration {
	if consecutiveFailures <= 1 {
		return step
	}
	delay := float64(step) * math.Pow(2, float64(consecutiveFailures-1))
	if delay > float64(maxDelay) {
		return maxDelay
	}
	return time.Duration(delay)
}
