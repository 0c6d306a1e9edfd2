// Package registry owns the source adapters: it keys them by name, routes
// queries by URL ownership or prioritizer order, and drives lifecycle.
package registry

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
	"github.com/vidra-project/vidra/internal/logger"
)

// Registry is read-only after Register calls complete; routing methods are
// safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	adapters    map[string]ports.Platform
	order       []string
	prioritizer ports.Prioritizer
	logger      logger.StyledLogger
	started     bool
}

func New(prioritizer ports.Prioritizer, log logger.StyledLogger) *Registry {
	return &Registry{
		adapters:    make(map[string]ports.Platform),
		prioritizer: prioritizer,
		logger:      log,
	}
}

// Register adds an adapter. Registration order is the dependency order used
// by StartAll and, reversed, by StopAll.
func (r *Registry) Register(platform ports.Platform) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := platform.Name()
	if _, exists := r.adapters[name]; !exists {
		r.order = append(r.order, name)
	}
	r.adapters[name] = platform
}

// Get returns the adapter by platform tag.
func (r *Registry) Get(name string) (ports.Platform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.adapters[name]
	return p, ok
}

// Names returns the registered platform tags in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// AdapterForURL finds the adapter that owns the URL.
func (r *Registry) AdapterForURL(rawURL string) (ports.Platform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if r.adapters[name].OwnsURL(rawURL) {
			return r.adapters[name], true
		}
	}
	return nil, false
}

// PlatformsByPriority returns the registered adapters ordered by the
// prioritizer's current scoring.
func (r *Registry) PlatformsByPriority() []ports.Platform {
	names := r.prioritizer.Order(r.Names())

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.Platform, 0, len(names))
	for _, name := range names {
		if p, ok := r.adapters[name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// StartAll initializes every adapter in registration order. Initialization
// failures abort startup; a broker with silently-missing platforms is worse
// than one that fails loudly.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}
	for _, name := range r.order {
		start := time.Now()
		if err := r.adapters[name].Initialize(ctx); err != nil {
			return domain.NewPlatformError(name, "initialization failed", domain.Classify(err), err)
		}
		r.logger.InfoWithPlatform("adapter initialized", name, "duration", time.Since(start))
	}
	r.started = true
	return nil
}

// StopAll shuts down all adapters concurrently and returns the first error.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := len(r.order) - 1; i >= 0; i-- {
		adapter := r.adapters[r.order[i]]
		g.Go(func() error {
			return adapter.Shutdown(gctx)
		})
	}
	r.started = false
	return g.Wait()
}
