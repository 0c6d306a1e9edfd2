package app

import (
	"time"

	"github.com/vidra-project/vidra/internal/adapter/health"
	"github.com/vidra-project/vidra/internal/adapter/netroute"
	"github.com/vidra-project/vidra/internal/adapter/resilience"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
)

// StatusReport is the full operational snapshot consumers render.
type StatusReport struct {
	Uptime      time.Duration                           `json:"uptime"`
	Platforms   []string                                `json:"platforms"`
	Health      []health.ServiceReport                  `json:"health"`
	Fallback    map[string]domain.PlatformFallbackState `json:"fallback"`
	Prioritizer []domain.MetricsSnapshot                `json:"prioritizer"`
	Breakers    []resilience.BreakerSnapshot            `json:"breakers"`
	Routing     netroute.RoutingInfo                    `json:"routing"`
	Cache       ports.CacheMetrics                      `json:"cache"`
}

func (a *App) HealthReport() []health.ServiceReport { return a.health.Report() }

func (a *App) FallbackReport() map[string]domain.PlatformFallbackState {
	return a.fallback.Report()
}

func (a *App) PrioritizerSummary() []domain.MetricsSnapshot { return a.prioritizer.Summary() }

func (a *App) RoutingInfo() netroute.RoutingInfo { return a.router.Info() }

func (a *App) BreakerSnapshots() []resilience.BreakerSnapshot { return a.breakers.Snapshots() }

func (a *App) CacheMetrics() ports.CacheMetrics { return a.cache.Metrics() }

// Status aggregates every report surface into one snapshot.
func (a *App) Status() StatusReport {
	return StatusReport{
		Uptime:      time.Since(a.startTime),
		Platforms:   a.registry.Names(),
		Health:      a.HealthReport(),
		Fallback:    a.FallbackReport(),
		Prioritizer: a.PrioritizerSummary(),
		Breakers:    a.BreakerSnapshots(),
		Routing:     a.RoutingInfo(),
		Cache:       a.CacheMetrics(),
	}
}
