package resilience

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/vidra-project/vidra/internal/logger"
)

// Manager owns one breaker per logical service and keeps acquisition
// idempotent: every caller asking for the same name shares one machine.
type Manager struct {
	breakers *xsync.Map[string, *Breaker]
	config   BreakerConfig
	logger   logger.StyledLogger
}

func NewManager(config BreakerConfig, log logger.StyledLogger) *Manager {
	return &Manager{
		breakers: xsync.NewMap[string, *Breaker](),
		config:   config,
		logger:   log,
	}
}

// Breaker returns the shared breaker for name, creating it on first use.
func (m *Manager) Breaker(name string) *Breaker {
	if b, ok := m.breakers.Load(name); ok {
		return b
	}
	b, loaded := m.breakers.LoadOrStore(name, newBreaker(name, m.config))
	if !loaded && m.logger != nil {
		m.logger.Debug("circuit breaker created", "service", name)
	}
	return b
}

// BreakerWithConfig is Breaker with a per-service override. The override only
// applies if this call creates the breaker.
func (m *Manager) BreakerWithConfig(name string, config BreakerConfig) *Breaker {
	if b, ok := m.breakers.Load(name); ok {
		return b
	}
	b, _ := m.breakers.LoadOrStore(name, newBreaker(name, config))
	return b
}

// Snapshots reports every breaker for the operational surface.
func (m *Manager) Snapshots() []BreakerSnapshot {
	out := make([]BreakerSnapshot, 0, m.breakers.Size())
	m.breakers.Range(func(_ string, b *Breaker) bool {
		out = append(out, b.Snapshot())
		return true
	})
	return out
}
