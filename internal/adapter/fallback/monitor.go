package fallback

import (
	"context"
	"time"

	"github.com/vidra-project/vidra/internal/core/domain"
)

const defaultRetryInterval = 30 * time.Minute

// Monitor periodically re-evaluates active modes. For the API-gated platform
// it recomputes the best mode from live quota and cookie state and switches
// when the answer changes.
type Monitor struct {
	engine   *Engine
	interval time.Duration
}

func NewMonitor(engine *Engine, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	return &Monitor{engine: engine, interval: interval}
}

// Run blocks until ctx is cancelled, ticking every retry interval.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evaluate()
		}
	}
}

// evaluate is one monitoring pass, exported to the loop and to tests.
func (m *Monitor) evaluate() {
	mode, active := m.engine.ActiveMode(domain.PlatformYouTube)
	if !active {
		return
	}

	// Quota back under the conservation threshold (the ledger resets at the
	// daily boundary) means the API can take over again.
	if m.engine.quotaUsage() < m.engine.threshold {
		m.engine.Deactivate(domain.PlatformYouTube, "quota recovered")
		return
	}

	// Still over quota: prefer the authenticated extractor as soon as
	// cookies come back.
	if mode == domain.ModeYtdlpPublic && m.engine.cookiesHealthy() {
		if _, err := m.engine.Activate(domain.PlatformYouTube, "cookies recovered"); err != nil {
			m.engine.logger.Warn("fallback re-evaluation failed", "error", err)
		}
	}
}
