// Package health runs periodic liveness probes against every registered
// service and publishes status transitions to the event bus. Thresholds
// adapt to the deployment environment and to the failure category.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
	"github.com/vidra-project/vidra/internal/logger"
	"github.com/vidra-project/vidra/internal/util"
	"github.com/vidra-project/vidra/pkg/eventbus"
)

// Probe is one liveness check. It must respect ctx and return quickly.
type Probe func(ctx context.Context) error

// networkGraceWindow is how long a network-category failure extends the
// unhealthy threshold by networkGraceExtra. Transient connectivity loss
// should not bench a whole platform.
const (
	networkGraceWindow = 5 * time.Minute
	networkGraceExtra  = 2
)

type serviceState struct {
	probe               Probe
	status              domain.HealthStatus
	consecutiveFailures int
	lastNetworkFailure  time.Time
	nextProbeAt         time.Time
	lastLatency         time.Duration
	lastCheckedAt       time.Time
	lastCategory        domain.ErrorCategory
}

// Monitor owns the probe loop. Registration happens before Run; state
// mutation afterwards is confined to the loop goroutine, snapshots are
// served under the lock.
type Monitor struct {
	mu       sync.Mutex
	services map[string]*serviceState

	environment Environment
	interval    time.Duration
	timeout     time.Duration
	threshold   int
	backoffStep time.Duration
	backoffMax  time.Duration

	bus    *eventbus.EventBus[ports.HealthEvent]
	logger logger.StyledLogger
}

func NewMonitor(cfg config.HealthConfig, bus *eventbus.EventBus[ports.HealthEvent], log logger.StyledLogger) *Monitor {
	environment := DetectEnvironment()

	backoffStep := cfg.RecoveryBackoffStep
	if backoffStep <= 0 {
		backoffStep = 30 * time.Second
	}
	backoffMax := cfg.RecoveryBackoffMax
	if backoffMax <= 0 {
		backoffMax = 5 * time.Minute
	}

	m := &Monitor{
		services:    make(map[string]*serviceState),
		environment: environment,
		interval:    environment.interval(cfg.CheckInterval),
		timeout:     environment.timeout(cfg.CheckTimeout),
		threshold:   environment.failureThreshold(cfg.MaxConsecutiveFailures),
		backoffStep: backoffStep,
		backoffMax:  backoffMax,
		bus:         bus,
		logger:      log,
	}

	log.Info("health monitor configured",
		"environment", string(environment),
		"interval", m.interval,
		"threshold", m.threshold)
	return m
}

// Register adds a service probe. Status starts unknown until the first pass.
func (m *Monitor) Register(service string, probe Probe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[service] = &serviceState{probe: probe, status: domain.StatusUnknown}
}

// Run blocks until ctx is cancelled. The first pass runs immediately so the
// system does not sit at unknown for a full interval after startup.
func (m *Monitor) Run(ctx context.Context) {
	m.checkAll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAll(ctx)
		}
	}
}

func (m *Monitor) checkAll(ctx context.Context) {
	m.mu.Lock()
	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		m.checkOne(ctx, name)
	}
}

func (m *Monitor) checkOne(ctx context.Context, service string) {
	m.mu.Lock()
	state, ok := m.services[service]
	if !ok {
		m.mu.Unlock()
		return
	}
	// Unhealthy services recover on a backoff schedule, not every tick.
	if !state.nextProbeAt.IsZero() && time.Now().Before(state.nextProbeAt) {
		m.mu.Unlock()
		return
	}
	probe := state.probe
	m.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	start := time.Now()
	err := probe(probeCtx)
	latency := time.Since(start)
	cancel()

	m.observe(service, err, latency)
}

// observe applies one probe outcome and publishes the event.
func (m *Monitor) observe(service string, err error, latency time.Duration) {
	m.mu.Lock()
	state, ok := m.services[service]
	if !ok {
		m.mu.Unlock()
		return
	}

	now := time.Now()
	state.lastLatency = latency
	state.lastCheckedAt = now

	var category domain.ErrorCategory
	if err == nil {
		state.consecutiveFailures = 0
		state.nextProbeAt = time.Time{}
		state.lastCategory = domain.CategoryNone
		m.transition(state, service, domain.StatusHealthy)
	} else {
		category = domain.Classify(err)
		state.consecutiveFailures++
		state.lastCategory = category
		if category == domain.CategoryNetwork {
			state.lastNetworkFailure = now
		}

		if state.consecutiveFailures >= m.effectiveThreshold(state, now) {
			m.transition(state, service, domain.StatusUnhealthy)
			state.nextProbeAt = now.Add(util.CalculateRecoveryBackoff(
				state.consecutiveFailures-m.threshold+1, m.backoffStep, m.backoffMax))
		} else {
			m.transition(state, service, domain.StatusDegraded)
		}
	}

	event := ports.HealthEvent{
		Service:   service,
		Status:    state.status,
		Category:  category,
		Latency:   latency,
		CheckedAt: now,
	}
	m.mu.Unlock()

	m.bus.Publish(event)
}

// effectiveThreshold extends the failure threshold while the service is
// inside the network-failure grace window.
func (m *Monitor) effectiveThreshold(state *serviceState, now time.Time) int {
	threshold := m.threshold
	if !state.lastNetworkFailure.IsZero() && now.Sub(state.lastNetworkFailure) < networkGraceWindow {
		threshold += networkGraceExtra
	}
	return threshold
}

func (m *Monitor) transition(state *serviceState, service string, to domain.HealthStatus) {
	if state.status == to {
		return
	}
	state.status = to
	m.logger.InfoHealthStatus("service health changed", service, to,
		"consecutive_failures", state.consecutiveFailures)
}

// Status reports the current status of one service.
func (m *Monitor) Status(service string) domain.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.services[service]; ok {
		return state.status
	}
	return domain.StatusUnknown
}

// ServiceReport is the operational snapshot for one monitored service.
type ServiceReport struct {
	Service             string               `json:"service"`
	Status              domain.HealthStatus  `json:"status"`
	ConsecutiveFailures int                  `json:"consecutive_failures"`
	LastLatency         time.Duration        `json:"last_latency"`
	LastCheckedAt       time.Time            `json:"last_checked_at,omitempty"`
	LastErrorCategory   domain.ErrorCategory `json:"last_error_category,omitempty"`
}

// Report snapshots all monitored services.
func (m *Monitor) Report() []ServiceReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ServiceReport, 0, len(m.services))
	for service, state := range m.services {
		out = append(out, ServiceReport{
			Service:             service,
			Status:              state.status,
			ConsecutiveFailures: state.consecutiveFailures,
			LastLatency:         state.lastLatency,
			LastCheckedAt:       state.lastCheckedAt,
			LastErrorCategory:   state.lastCategory,
		})
	}
	return out
}
