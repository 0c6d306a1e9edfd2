package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/logger"
)

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		RecoveryTimeout:  50 * time.Millisecond,
		CallTimeout:      time.Second,
	}
}

func failing(ctx context.Context) error {
	return domain.NewPlatformError("test", "boom", domain.CategoryServer5xx, errors.New("boom"))
}

func succeeding(ctx context.Context) error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := newBreaker("youtube", testBreakerConfig())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.Error(t, b.Call(ctx, failing))
		assert.Equal(t, StateClosed, b.State())
	}

	require.Error(t, b.Call(ctx, failing))
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerFailsFastWhileOpen(t *testing.T) {
	b := newBreaker("youtube", testBreakerConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = b.Call(ctx, failing)
	}
	require.Equal(t, StateOpen, b.State())

	executed := false
	start := time.Now()
	err := b.Call(ctx, func(ctx context.Context) error {
		executed = true
		return nil
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.False(t, executed, "open breaker must not invoke the call")
	assert.Less(t, elapsed, 10*time.Millisecond)
	assert.Equal(t, domain.CategoryCircuitOpen, domain.Classify(err))
}

func TestBreakerProbesAfterRecoveryTimeout(t *testing.T) {
	b := newBreaker("youtube", testBreakerConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = b.Call(ctx, failing)
	}
	require.Equal(t, StateOpen, b.State())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())

	// Two successes keep it half-open, the third closes it.
	require.NoError(t, b.Call(ctx, succeeding))
	require.NoError(t, b.Call(ctx, succeeding))
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Call(ctx, succeeding))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b := newBreaker("rumble", testBreakerConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = b.Call(ctx, failing)
	}
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Call(ctx, succeeding))
	require.Error(t, b.Call(ctx, failing))
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := newBreaker("odysee", testBreakerConfig())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = b.Call(ctx, failing)
	}
	require.NoError(t, b.Call(ctx, succeeding))

	// Four more failures must not open: the counter restarted at zero.
	for i := 0; i < 4; i++ {
		_ = b.Call(ctx, failing)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerCallTimeout(t *testing.T) {
	cfg := testBreakerConfig()
	cfg.CallTimeout = 20 * time.Millisecond
	b := newBreaker("peertube", cfg)

	err := b.Call(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	assert.Equal(t, domain.CategoryTimeout, domain.Classify(err))
}

func TestManagerReturnsSameBreaker(t *testing.T) {
	m := NewManager(testBreakerConfig(), logger.NewTestLogger())

	first := m.Breaker("youtube")
	second := m.Breaker("youtube")
	assert.Same(t, first, second)

	other := m.Breaker("rumble")
	assert.NotSame(t, first, other)
}

func TestManagerSnapshots(t *testing.T) {
	m := NewManager(testBreakerConfig(), logger.NewTestLogger())
	m.Breaker("youtube")
	m.Breaker("rumble")

	snaps := m.Snapshots()
	require.Len(t, snaps, 2)
	for _, snap := range snaps {
		assert.Equal(t, StateClosed, snap.State)
	}
}
