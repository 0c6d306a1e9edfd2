package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/vidra-project/vidra/internal/core/domain"
)

// BreakerState is the three-state circuit machine.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// BreakerConfig tunes one circuit breaker.
type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	RecoveryTimeout  time.Duration
	CallTimeout      time.Duration
}

// DefaultBreakerConfig matches the platform defaults: open after 5 failures,
// probe after 60s, close after 3 half-open successes, 30s per-call timeout.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		RecoveryTimeout:  60 * time.Second,
		CallTimeout:      30 * time.Second,
	}
}

// Breaker gates calls to one logical service. State transitions are
// linearizable under the mutex; the guarded call itself runs outside it.
type Breaker struct {
	name   string
	config BreakerConfig

	mu                 sync.Mutex
	state              BreakerState
	failureCount       int
	halfOpenSuccesses  int
	openedAt           time.Time
	lastTransition     time.Time
	totalRejections    int64
}

func newBreaker(name string, config BreakerConfig) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 3
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = 30 * time.Second
	}
	return &Breaker{
		name:           name,
		config:         config,
		state:          StateClosed,
		lastTransition: time.Now(),
	}
}

func (b *Breaker) Name() string { return b.name }

// State reports the current state, applying the open -> half_open timer.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeProbe(time.Now())
	return b.state
}

// Call runs fn under the breaker with the configured per-call timeout.
// While open it fails fast with domain.ErrCircuitOpen and performs no I/O.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if !b.allow() {
		return domain.NewPlatformError(b.name, "call rejected", domain.CategoryCircuitOpen, domain.ErrCircuitOpen)
	}

	callCtx, cancel := context.WithTimeout(ctx, b.config.CallTimeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil {
		b.recordFailure()
		return err
	}

	b.recordSuccess()
	return nil
}

// allow decides admission and moves open -> half_open when the recovery
// timer has elapsed.
func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeProbe(time.Now())

	if b.state == StateOpen {
		b.totalRejections++
		return false
	}
	return true
}

func (b *Breaker) maybeProbe(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.config.RecoveryTimeout {
		b.transition(StateHalfOpen, now)
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.config.SuccessThreshold {
			b.transition(StateClosed, time.Now())
		}
	case StateClosed:
		b.failureCount = 0
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	switch b.state {
	case StateHalfOpen:
		// Any failure during probing re-opens immediately.
		b.transition(StateOpen, now)
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.config.FailureThreshold {
			b.transition(StateOpen, now)
		}
	}
}

func (b *Breaker) transition(to BreakerState, now time.Time) {
	b.state = to
	b.lastTransition = now
	switch to {
	case StateOpen:
		b.openedAt = now
		b.halfOpenSuccesses = 0
	case StateClosed:
		b.failureCount = 0
		b.halfOpenSuccesses = 0
	case StateHalfOpen:
		b.halfOpenSuccesses = 0
	}
}

// Snapshot is the report shape for one breaker.
type BreakerSnapshot struct {
	Name            string       `json:"name"`
	State           BreakerState `json:"state"`
	FailureCount    int          `json:"failure_count"`
	TotalRejections int64        `json:"total_rejections"`
	OpenedAt        time.Time    `json:"opened_at,omitempty"`
	LastTransition  time.Time    `json:"last_transition"`
}

func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeProbe(time.Now())
	return BreakerSnapshot{
		Name:            b.name,
		State:           b.state,
		FailureCount:    b.failureCount,
		TotalRejections: b.totalRejections,
		OpenedAt:        b.openedAt,
		LastTransition:  b.lastTransition,
	}
}
