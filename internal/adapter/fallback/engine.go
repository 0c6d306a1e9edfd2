// Package fallback maintains per-platform degraded operating modes: an
// ordered cascade of strategies, an active-mode pointer, and the restriction
// table callers consult before issuing operations.
package fallback

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/logger"
)

// Engine implements ports.FallbackEngine. All state mutation serializes per
// engine; the lock is never held across I/O.
type Engine struct {
	mu         sync.Mutex
	strategies map[string][]domain.FallbackStrategy
	states     map[string]*domain.PlatformFallbackState

	// cookiesHealthy and quotaUsage are live probes into the API-gated
	// platform's credentials; they decide between the authenticated and
	// public extractor modes.
	cookiesHealthy func() bool
	quotaUsage     func() float64
	threshold      float64

	logger logger.StyledLogger
}

type Options struct {
	CookiesHealthy        func() bool
	QuotaUsage            func() float64
	ConservationThreshold float64
	Logger                logger.StyledLogger
}

func NewEngine(opts Options) *Engine {
	if opts.CookiesHealthy == nil {
		opts.CookiesHealthy = func() bool { return false }
	}
	if opts.QuotaUsage == nil {
		opts.QuotaUsage = func() float64 { return 0 }
	}
	threshold := opts.ConservationThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.8
	}

	e := &Engine{
		strategies:     make(map[string][]domain.FallbackStrategy),
		states:         make(map[string]*domain.PlatformFallbackState),
		cookiesHealthy: opts.CookiesHealthy,
		quotaUsage:     opts.QuotaUsage,
		threshold:      threshold,
		logger:         opts.Logger,
	}
	e.registerDefaults()
	return e
}

// registerDefaults installs the per-platform cascades. Lower priority is
// preferred on activation.
func (e *Engine) registerDefaults() {
	e.Register(domain.PlatformYouTube, []domain.FallbackStrategy{
		{Mode: domain.ModeYtdlpAuthenticated, Priority: 1, Enabled: true,
			Description: "extractor with account cookies",
			Limitations: []string{"no API search ranking", "slower lookups"}},
		{Mode: domain.ModeYtdlpPublic, Priority: 2, Enabled: true,
			Description: "extractor without credentials",
			Limitations: []string{"age-restricted content unavailable", "slower lookups"}},
		{Mode: domain.ModeCacheOnly, Priority: 3, Enabled: true,
			Description: "serving cached results only",
			Limitations: []string{"no new searches", "results may be stale"}},
		{Mode: domain.ModeCrossPlatform, Priority: 4, Enabled: true,
			Description: "redirecting to other platforms",
			Limitations: []string{"different catalogue"}},
	})

	generic := []domain.FallbackStrategy{
		{Mode: domain.ModePublicOnly, Priority: 1, Enabled: true,
			Description: "public content only",
			Limitations: []string{"authenticated content unavailable"}},
		{Mode: domain.ModeLimitedSearch, Priority: 2, Enabled: true,
			Description: "reduced search capacity",
			Limitations: []string{"fewer results per query"}},
		{Mode: domain.ModeReadOnly, Priority: 3, Enabled: true,
			Description: "metadata only, no stream extraction",
			Limitations: []string{"playback unavailable"}},
		{Mode: domain.ModeDisabled, Priority: 4, Enabled: true,
			Description: "platform disabled",
			Limitations: []string{"all operations unavailable"}},
	}
	for _, platform := range []string{domain.PlatformRumble, domain.PlatformOdysee, domain.PlatformPeerTube} {
		e.Register(platform, generic)
	}
}

// Register installs (or replaces) the strategy cascade for a platform.
func (e *Engine) Register(platform string, strategies []domain.FallbackStrategy) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sorted := make([]domain.FallbackStrategy, len(strategies))
	copy(sorted, strategies)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	e.strategies[platform] = sorted
	if _, ok := e.states[platform]; !ok {
		e.states[platform] = &domain.PlatformFallbackState{}
	}
}

// Activate selects the enabled strategy with the smallest priority, replaces
// any active one, and appends to history. For the API-gated platform the
// authenticated extractor mode is skipped while cookies are unhealthy.
func (e *Engine) Activate(platform, reason string) (*domain.FallbackStrategy, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	strategy := e.selectStrategy(platform)
	if strategy == nil {
		return nil, fmt.Errorf("no fallback strategy enabled for platform %q", platform)
	}

	state := e.state(platform)
	state.Active = strategy
	state.History = append(state.History, domain.FallbackEvent{
		Timestamp: time.Now(),
		Action:    domain.FallbackActivated,
		Reason:    reason,
		Strategy:  strategy.Mode,
	})

	e.logger.WarnWithPlatform("fallback mode activated", platform,
		"mode", string(strategy.Mode), "reason", reason)
	return strategy, nil
}

func (e *Engine) selectStrategy(platform string) *domain.FallbackStrategy {
	for i := range e.strategies[platform] {
		s := &e.strategies[platform][i]
		if !s.Enabled {
			continue
		}
		if s.Mode == domain.ModeYtdlpAuthenticated && !e.cookiesHealthy() {
			continue
		}
		clone := *s
		return &clone
	}
	return nil
}

// Deactivate clears the active strategy and appends to history.
func (e *Engine) Deactivate(platform, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.state(platform)
	if state.Active == nil {
		return
	}
	mode := state.Active.Mode
	state.Active = nil
	state.History = append(state.History, domain.FallbackEvent{
		Timestamp: time.Now(),
		Action:    domain.FallbackDeactivated,
		Reason:    reason,
		Strategy:  mode,
	})

	e.logger.InfoWithPlatform("fallback mode deactivated", platform,
		"mode", string(mode), "restored", string(baselineMode(platform)), "reason", reason)
}

// ActiveMode returns the active degraded mode. When no fallback is active it
// returns the platform's baseline mode with active=false.
func (e *Engine) ActiveMode(platform string) (domain.FallbackMode, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.state(platform)
	if state.Active == nil {
		return baselineMode(platform), false
	}
	return state.Active.Mode, true
}

// baselineMode is the normal operating mode a deactivation restores: full
// API access for the API-gated platform, unrestricted API for the rest.
func baselineMode(platform string) domain.FallbackMode {
	if platform == domain.PlatformYouTube {
		return domain.ModeAPIPrimary
	}
	return domain.ModeAPIOnly
}

// restrictionTable declares which operations each mode forbids.
var restrictionTable = map[domain.FallbackMode]map[string]string{
	domain.ModeCacheOnly: {
		domain.OpSearch:        "serving cached results only",
		domain.OpExtractStream: "stream extraction suspended, cached URLs only",
	},
	domain.ModeCrossPlatform: {
		domain.OpSearch:        "platform temporarily substituted",
		domain.OpGetDetails:    "platform temporarily substituted",
		domain.OpExtractStream: "platform temporarily substituted",
	},
	domain.ModeYtdlpPublic: {
		domain.OpAuthenticatedContent: "no credentials attached",
	},
	domain.ModePublicOnly: {
		domain.OpAuthenticatedContent: "public content only",
	},
	domain.ModeLimitedSearch: {},
	domain.ModeReadOnly: {
		domain.OpExtractStream: "read-only mode, playback suspended",
	},
	domain.ModeDisabled: {
		domain.OpSearch:               "platform disabled",
		domain.OpGetDetails:           "platform disabled",
		domain.OpExtractStream:        "platform disabled",
		domain.OpAuthenticatedContent: "platform disabled",
	},
}

// Restricted reports whether the active mode forbids the operation.
func (e *Engine) Restricted(platform, operation string) (bool, string) {
	mode, ok := e.ActiveMode(platform)
	if !ok {
		return false, ""
	}
	if reason, forbidden := restrictionTable[mode][operation]; forbidden {
		return true, reason
	}
	return false, ""
}

// Recommendations returns user-facing status lines for the platform.
func (e *Engine) Recommendations(platform string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.state(platform)
	if state.Active == nil {
		return nil
	}

	recs := []string{fmt.Sprintf("%s is running in %s mode: %s",
		platform, state.Active.Mode, state.Active.Description)}
	for _, limitation := range state.Active.Limitations {
		recs = append(recs, "limitation: "+limitation)
	}
	return recs
}

// Report snapshots all platform states.
func (e *Engine) Report() map[string]domain.PlatformFallbackState {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]domain.PlatformFallbackState, len(e.states))
	for platform, state := range e.states {
		snapshot := domain.PlatformFallbackState{
			History: append([]domain.FallbackEvent(nil), state.History...),
		}
		if state.Active != nil {
			active := *state.Active
			snapshot.Active = &active
		}
		out[platform] = snapshot
	}
	return out
}

// ClearHistory drops the history for one platform, or for all when platform
// is empty.
func (e *Engine) ClearHistory(platform string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if platform == "" {
		for _, state := range e.states {
			state.History = nil
		}
		return
	}
	e.state(platform).History = nil
}

func (e *Engine) state(platform string) *domain.PlatformFallbackState {
	s, ok := e.states[platform]
	if !ok {
		s = &domain.PlatformFallbackState{}
		e.states[platform] = s
	}
	return s
}
