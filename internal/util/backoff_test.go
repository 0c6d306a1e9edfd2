package util

import (
	"testing"
	"time"
)

func TestCalculateExponentialBackoff_Growth(t *testing.T) {
	base := 1 * time.Second
	max := 60 * time.Second

	prev := time.Duration(0)
	for attempt := 0; attempt < 4; attempt++ {
		d := CalculateExponentialBackoff(attempt, base, max, 2, 0)
		if d <= prev {
			t.Errorf("attempt %d: expected backoff to grow, got %v after %v", attempt, d, prev)
		}
		prev = d
	}
}

func TestCalculateExponentialBackoff_Cap(t *testing.T) {
	d := CalculateExponentialBackoff(20, 1*time.Second, 60*time.Second, 2, 0)
	if d != 60*time.Second {
		t.Errorf("expected cap at 60s, got %v", d)
	}
}

func TestCalculateExponentialBackoff_JitterBounds(t *testing.T) {
	base := 4 * time.Second
	for i := 0; i < 100; i++ {
		d := CalculateExponentialBackoff(0, base, time.Minute, 2, 0.25)
		if d < 3*time.Second || d > 5*time.Second {
			t.Fatalf("jittered backoff %v outside [3s, 5s]", d)
		}
	}
}

func TestCalculateExponentialBackoff_NegativeAttempt(t *testing.T) {
	d := CalculateExponentialBackoff(-3, time.Second, time.Minute, 2, 0)
	if d != time.Second {
		t.Errorf("negative attempt should clamp to attempt 0, got %v", d)
	}
}

func TestCalculateRecoveryBackoff(t *testing.T) {
	step := 10 * time.Second
	max := 2 * time.Minute

	if d := CalculateRecoveryBackoff(0, step, max); d != step {
		t.Errorf("expected %v for zero failures, got %v", step, d)
	}
	if d := CalculateRecoveryBackoff(1, step, max); d != step {
		t.Errorf("expected %v for one failure, got %v", step, d)
	}
	if d := CalculateRecoveryBackoff(2, step, max); d != 20*time.Second {
		t.Errorf("expected 20s for 2 failures, got %v", d)
	}
	if d := CalculateRecoveryBackoff(3, step, max); d != 40*time.Second {
		t.Errorf("expected 40s for 3 failures, got %v", d)
	}
	if d := CalculateRecoveryBackoff(100, step, max); d != max {
		t.Errorf("expected cap %v, got %v", max, d)
	}
}
