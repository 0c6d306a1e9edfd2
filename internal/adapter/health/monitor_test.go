package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
	"github.com/vidra-project/vidra/internal/logger"
	"github.com/vidra-project/vidra/pkg/eventbus"
)

func newTestMonitor(t *testing.T) (*Monitor, *eventbus.EventBus[ports.HealthEvent]) {
	t.Helper()
	t.Setenv("IS_VPS", "false")
	t.Setenv("DEPLOYMENT_TYPE", "")

	bus := eventbus.New[ports.HealthEvent]()
	t.Cleanup(bus.Shutdown)

	m := NewMonitor(config.HealthConfig{
		CheckInterval:          30 * time.Second,
		CheckTimeout:           time.Second,
		MaxConsecutiveFailures: 3,
	}, bus, logger.NewTestLogger())
	return m, bus
}

func failingProbe(category error) Probe {
	return func(ctx context.Context) error { return category }
}

func netErr() error {
	return domain.NewPlatformError("svc", "down", domain.CategoryNetwork, errors.New("connection refused"))
}

func serverErr() error {
	return domain.NewPlatformError("svc", "down", domain.CategoryServer5xx, errors.New("503"))
}

func TestMonitorHealthyAfterSuccess(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.Register("youtube", func(ctx context.Context) error { return nil })

	m.checkOne(context.Background(), "youtube")
	assert.Equal(t, domain.StatusHealthy, m.Status("youtube"))
}

func TestMonitorDegradedThenUnhealthy(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.Register("rumble", failingProbe(serverErr()))

	m.observe("rumble", serverErr(), time.Millisecond)
	assert.Equal(t, domain.StatusDegraded, m.Status("rumble"))
	m.observe("rumble", serverErr(), time.Millisecond)
	assert.Equal(t, domain.StatusDegraded, m.Status("rumble"))

	m.observe("rumble", serverErr(), time.Millisecond)
	assert.Equal(t, domain.StatusUnhealthy, m.Status("rumble"))
}

func TestMonitorNetworkErrorsExtendThreshold(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.Register("odysee", failingProbe(netErr()))

	// Three network failures stay degraded: the grace window lifts the
	// threshold from 3 to 5.
	for i := 0; i < 4; i++ {
		m.observe("odysee", netErr(), time.Millisecond)
		assert.Equal(t, domain.StatusDegraded, m.Status("odysee"), "failure %d", i+1)
	}
	m.observe("odysee", netErr(), time.Millisecond)
	assert.Equal(t, domain.StatusUnhealthy, m.Status("odysee"))
}

func TestMonitorRecovery(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.Register("peertube", failingProbe(serverErr()))

	for i := 0; i < 3; i++ {
		m.observe("peertube", serverErr(), time.Millisecond)
	}
	require.Equal(t, domain.StatusUnhealthy, m.Status("peertube"))

	m.observe("peertube", nil, time.Millisecond)
	assert.Equal(t, domain.StatusHealthy, m.Status("peertube"))

	report := m.Report()
	require.Len(t, report, 1)
	assert.Zero(t, report[0].ConsecutiveFailures)
}

func TestMonitorPublishesEvents(t *testing.T) {
	m, bus := newTestMonitor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe := bus.Subscribe(ctx)
	defer unsubscribe()

	m.Register("youtube", func(ctx context.Context) error { return nil })
	m.checkOne(ctx, "youtube")

	select {
	case event := <-events:
		assert.Equal(t, "youtube", event.Service)
		assert.Equal(t, domain.StatusHealthy, event.Status)
	case <-time.After(time.Second):
		t.Fatal("no health event published")
	}
}

func TestMonitorUnhealthyBackoffSkipsProbe(t *testing.T) {
	m, _ := newTestMonitor(t)

	calls := 0
	m.Register("rumble", func(ctx context.Context) error {
		calls++
		return serverErr()
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		m.checkOne(ctx, "rumble")
	}
	require.Equal(t, domain.StatusUnhealthy, m.Status("rumble"))
	require.Equal(t, 3, calls)

	// The next tick lands inside the recovery backoff and must not probe.
	m.checkOne(ctx, "rumble")
	assert.Equal(t, 3, calls)
}

func TestMonitorRecoveryBackoffDoubles(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.Register("odysee", failingProbe(serverErr()))

	probeDelay := func() time.Duration {
		m.mu.Lock()
		defer m.mu.Unlock()
		state := m.services["odysee"]
		return state.nextProbeAt.Sub(state.lastCheckedAt)
	}

	for i := 0; i < 3; i++ {
		m.observe("odysee", serverErr(), time.Millisecond)
	}
	require.Equal(t, domain.StatusUnhealthy, m.Status("odysee"))
	assert.Equal(t, 30*time.Second, probeDelay())

	m.observe("odysee", serverErr(), time.Millisecond)
	assert.Equal(t, 60*time.Second, probeDelay())

	m.observe("odysee", serverErr(), time.Millisecond)
	assert.Equal(t, 2*time.Minute, probeDelay())
}

func TestEnvironmentAdaptation(t *testing.T) {
	t.Setenv("IS_VPS", "")
	t.Setenv("DEPLOYMENT_TYPE", "vps")
	assert.Equal(t, EnvironmentConstrained, DetectEnvironment())

	t.Setenv("DEPLOYMENT_TYPE", "")
	t.Setenv("IS_VPS", "true")
	assert.Equal(t, EnvironmentConstrained, DetectEnvironment())

	constrained := EnvironmentConstrained
	assert.Equal(t, 60*time.Second, constrained.interval(0))
	assert.Equal(t, 2*time.Second, constrained.timeout(time.Second))
	assert.Equal(t, 5, constrained.failureThreshold(0))

	standard := EnvironmentStandard
	assert.Equal(t, 30*time.Second, standard.interval(0))
	assert.Equal(t, time.Second, standard.timeout(time.Second))
	assert.Equal(t, 3, standard.failureThreshold(0))
}
