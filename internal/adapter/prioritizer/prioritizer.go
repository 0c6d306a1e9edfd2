// Package prioritizer orders platforms by observed response time,
// reliability and success rate under a configurable strategy.
package prioritizer

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/logger"
)

const (
	StrategyBalanced         = "balanced"
	StrategySpeedFirst       = "speed_first"
	StrategyReliabilityFirst = "reliability_first"
	StrategySuccessRateFirst = "success_rate_first"
	StrategyAdaptive         = "adaptive"

	defaultOrderCacheTTL = 60 * time.Second
)

// Prioritizer implements ports.Prioritizer. Observations mutate under the
// lock; score computation runs on snapshot copies outside it.
type Prioritizer struct {
	mu       sync.Mutex
	metrics  map[string]*domain.PlatformMetrics
	strategy string

	orderCacheTTL time.Duration
	cachedOrder   []string
	cachedKey     string
	cachedAt      time.Time

	logger logger.StyledLogger
}

func New(strategy string, orderCacheTTL time.Duration, log logger.StyledLogger) (*Prioritizer, error) {
	if strategy == "" {
		strategy = StrategyBalanced
	}
	if !validStrategy(strategy) {
		return nil, fmt.Errorf("unknown prioritizer strategy %q", strategy)
	}
	if orderCacheTTL <= 0 {
		orderCacheTTL = defaultOrderCacheTTL
	}
	return &Prioritizer{
		metrics:       make(map[string]*domain.PlatformMetrics),
		strategy:      strategy,
		orderCacheTTL: orderCacheTTL,
		logger:        log,
	}, nil
}

func validStrategy(s string) bool {
	switch s {
	case StrategyBalanced, StrategySpeedFirst, StrategyReliabilityFirst,
		StrategySuccessRateFirst, StrategyAdaptive:
		return true
	default:
		return false
	}
}

func (p *Prioritizer) metricsFor(platform string) *domain.PlatformMetrics {
	m, ok := p.metrics[platform]
	if !ok {
		m = &domain.PlatformMetrics{Platform: platform, Health: domain.StatusUnknown}
		p.metrics[platform] = m
	}
	return m
}

// Record folds one request outcome into the platform's metrics. Ordinary
// observations age into the ordering through the cache TTL; eager
// invalidation here would defeat the cache under steady traffic.
func (p *Prioritizer) Record(platform string, success bool, responseTime time.Duration, category domain.ErrorCategory) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metricsFor(platform).Observe(success, responseTime, category)
}

// UpdateHealth is fed by the health monitor.
func (p *Prioritizer) UpdateHealth(platform string, status domain.HealthStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := p.metricsFor(platform)
	if m.Health != status {
		p.logger.InfoHealthStatus("platform health changed", platform, status)
	}
	m.Health = status
	p.cachedOrder = nil
}

// SetStrategy switches the scoring weights and invalidates the cache.
func (p *Prioritizer) SetStrategy(strategy string) error {
	if !validStrategy(strategy) {
		return fmt.Errorf("unknown prioritizer strategy %q", strategy)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.strategy = strategy
	p.cachedOrder = nil
	return nil
}

// Strategy returns the configured strategy name.
func (p *Prioritizer) Strategy() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.strategy
}

// Order returns the platforms sorted by overall score descending. The result
// is cached for the update interval; health transitions and strategy
// switches invalidate it early, plain observations do not. Ties break on the
// platform name so the ordering is deterministic.
func (p *Prioritizer) Order(available []string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := strings.Join(available, ",")
	now := time.Now()
	if p.cachedOrder != nil && p.cachedKey == key && now.Sub(p.cachedAt) < p.orderCacheTTL {
		return append([]string(nil), p.cachedOrder...)
	}

	w := p.resolveWeights(available)
	scored := make([]domain.MetricsSnapshot, 0, len(available))
	for _, platform := range available {
		scored = append(scored, snapshotWithScores(p.metricsFor(platform), w, now))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].OverallScore != scored[j].OverallScore {
			return scored[i].OverallScore > scored[j].OverallScore
		}
		return scored[i].Platform < scored[j].Platform
	})

	ordered := make([]string, len(scored))
	for i, s := range scored {
		ordered[i] = s.Platform
	}

	p.cachedOrder = ordered
	p.cachedKey = key
	p.cachedAt = now
	return append([]string(nil), ordered...)
}

// resolveWeights maps the adaptive strategy onto a concrete triple from the
// current health mix: mostly-unhealthy fleets favour reliability, mostly
// healthy ones favour speed.
func (p *Prioritizer) resolveWeights(available []string) weights {
	strategy := p.strategy
	if strategy == StrategyAdaptive {
		strategy = p.adaptiveStrategy(available)
	}
	return strategyWeights[strategy]
}

func (p *Prioritizer) adaptiveStrategy(available []string) string {
	if len(available) == 0 {
		return StrategyBalanced
	}

	var healthy, unhealthy int
	for _, platform := range available {
		switch p.metricsFor(platform).Health {
		case domain.StatusHealthy:
			healthy++
		case domain.StatusUnhealthy:
			unhealthy++
		}
	}

	total := float64(len(available))
	switch {
	case float64(unhealthy)/total > 0.5:
		return StrategyReliabilityFirst
	case float64(healthy)/total > 0.8:
		return StrategySpeedFirst
	default:
		return StrategyBalanced
	}
}

// Summary snapshots every tracked platform with scores under the current
// strategy, sorted by overall score descending.
func (p *Prioritizer) Summary() []domain.MetricsSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	platforms := make([]string, 0, len(p.metrics))
	for platform := range p.metrics {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)

	w := p.resolveWeights(platforms)
	now := time.Now()
	out := make([]domain.MetricsSnapshot, 0, len(platforms))
	for _, platform := range platforms {
		out = append(out, snapshotWithScores(p.metrics[platform], w, now))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OverallScore > out[j].OverallScore })
	return out
}
