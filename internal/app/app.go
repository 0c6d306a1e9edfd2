// Package app assembles the broker: network router, cache, extractor,
// resilience kernel, platform adapters, registry, prioritizer, fallback
// engine and health monitor, wired over the event bus.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vidra-project/vidra/internal/adapter/cache"
	"github.com/vidra-project/vidra/internal/adapter/extractor"
	"github.com/vidra-project/vidra/internal/adapter/fallback"
	"github.com/vidra-project/vidra/internal/adapter/health"
	"github.com/vidra-project/vidra/internal/adapter/netroute"
	"github.com/vidra-project/vidra/internal/adapter/platform/odysee"
	"github.com/vidra-project/vidra/internal/adapter/platform/peertube"
	"github.com/vidra-project/vidra/internal/adapter/platform/rumble"
	"github.com/vidra-project/vidra/internal/adapter/platform/shared"
	"github.com/vidra-project/vidra/internal/adapter/platform/youtube"
	"github.com/vidra-project/vidra/internal/adapter/prioritizer"
	"github.com/vidra-project/vidra/internal/adapter/resilience"
	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/ports"
	"github.com/vidra-project/vidra/internal/logger"
	"github.com/vidra-project/vidra/internal/registry"
	"github.com/vidra-project/vidra/pkg/eventbus"
)

// App owns every long-lived component and their lifecycles. Construct with
// New, then Start; all consumer operations are methods on App.
type App struct {
	cfg    *config.Config
	logger logger.StyledLogger

	router      *netroute.Router
	cache       ports.Cache
	extractor   *extractor.YtDlp
	breakers    *resilience.Manager
	fallback    *fallback.Engine
	fbMonitor   *fallback.Monitor
	prioritizer *prioritizer.Prioritizer
	registry    *registry.Registry
	healthBus   *eventbus.EventBus[ports.HealthEvent]
	health      *health.Monitor

	// youtube is kept aside from the registry so the fallback engine can
	// read live quota usage.
	youtube *youtube.Adapter

	startTime time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func New(ctx context.Context, startTime time.Time, cfg *config.Config, log logger.StyledLogger) (*App, error) {
	router, err := netroute.New(&cfg.Network, log)
	if err != nil {
		return nil, fmt.Errorf("network router: %w", err)
	}

	store, err := cache.New(ctx, cfg.Cache, log)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	ytdlp, err := extractor.NewYtDlp(cfg.Extractor, log)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}

	prio, err := prioritizer.New(cfg.Prioritizer.Strategy, cfg.Prioritizer.UpdateInterval, log)
	if err != nil {
		return nil, fmt.Errorf("prioritizer: %w", err)
	}

	a := &App{
		cfg:         cfg,
		logger:      log,
		router:      router,
		cache:       store,
		extractor:   ytdlp,
		breakers:    resilience.NewManager(resilience.DefaultBreakerConfig(), log),
		prioritizer: prio,
		healthBus:   eventbus.New[ports.HealthEvent](),
		startTime:   startTime,
	}

	a.fallback = fallback.NewEngine(fallback.Options{
		CookiesHealthy: func() bool {
			return extractor.CookiesHealthy(cfg.Extractor.CookiesFile)
		},
		QuotaUsage: func() float64 {
			if a.youtube == nil {
				return 0
			}
			return a.youtube.QuotaUsage()
		},
		ConservationThreshold: cfg.Platforms.YouTube.ConservationThreshold,
		Logger:                log,
	})
	a.fbMonitor = fallback.NewMonitor(a.fallback, cfg.Fallback.RetryInterval)

	a.registry = registry.New(prio, log)
	a.registerAdapters()

	a.health = health.NewMonitor(cfg.Health, a.healthBus, log)
	a.registerProbes()

	return a, nil
}

// registerAdapters builds every enabled platform adapter, wraps it with the
// read-through cache and registers it. Registration order is the URL-routing
// scan order.
func (a *App) registerAdapters() {
	platforms := a.cfg.Platforms

	if platforms.YouTube.Enabled {
		a.youtube = youtube.New(platforms.YouTube, youtube.Options{
			Client:    a.router.Acquire(netroute.ServiceYouTube),
			Extractor: a.extractor,
			Fallback:  a.fallback,
			Breakers:  a.breakers,
			Logger:    a.logger,
		})
		a.registry.Register(shared.WithCache(a.youtube, a.cache))
	}

	if platforms.Rumble.Enabled {
		adapter := rumble.New(platforms.Rumble, rumble.Options{
			Client:   a.router.Acquire(netroute.ServiceRumble),
			Breakers: a.breakers,
			Logger:   a.logger,
		})
		a.registry.Register(shared.WithCache(adapter, a.cache))
	}

	if platforms.Odysee.Enabled {
		adapter := odysee.New(platforms.Odysee, odysee.Options{
			Client:   a.router.Acquire(netroute.ServiceOdysee),
			Breakers: a.breakers,
			Logger:   a.logger,
		})
		a.registry.Register(shared.WithCache(adapter, a.cache))
	}

	if platforms.PeerTube.Enabled {
		// Federated instances get their own breaker manager so a flapping
		// instance never trips a platform-level breaker.
		adapter := peertube.New(platforms.PeerTube, peertube.Options{
			Client:   a.router.Acquire(netroute.ServicePeerTube),
			Breakers: resilience.NewManager(resilience.DefaultBreakerConfig(), a.logger),
			Logger:   a.logger,
		})
		a.registry.Register(shared.WithCache(adapter, a.cache))
	}

	a.logger.InfoWithCount("platform adapters registered", len(a.registry.Names()))
}

// Start initializes the adapters and launches the background loops. It does
// not block; cancellation happens through Stop.
func (a *App) Start(ctx context.Context) error {
	if err := a.registry.StartAll(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.wg.Add(3)
	go func() {
		defer a.wg.Done()
		a.health.Run(runCtx)
	}()
	go func() {
		defer a.wg.Done()
		a.fbMonitor.Run(runCtx)
	}()
	go func() {
		defer a.wg.Done()
		a.pumpHealthEvents(runCtx)
	}()

	a.logger.Info("broker started",
		"platforms", len(a.registry.Names()),
		"cache", a.cfg.Cache.Backend,
		"strategy", a.prioritizer.Strategy())
	return nil
}

// pumpHealthEvents feeds monitor transitions into the prioritizer so health
// multipliers track live status.
func (a *App) pumpHealthEvents(ctx context.Context) {
	events, unsubscribe := a.healthBus.Subscribe(ctx)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			// Non-platform services (cache, extractor) are monitored but
			// carry no priority score.
			if _, registered := a.registry.Get(event.Service); registered {
				a.prioritizer.UpdateHealth(event.Service, event.Status)
			}
		}
	}
}

// Stop shuts down the background loops, the adapters and the shared
// infrastructure. Safe to call once after Start.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	err := a.registry.StopAll(ctx)

	a.healthBus.Shutdown()
	a.wg.Wait()

	a.router.Shutdown()
	if cerr := a.cache.Close(); cerr != nil && err == nil {
		err = cerr
	}

	a.logger.Info("broker stopped", "uptime", time.Since(a.startTime))
	return err
}

// Registry exposes the adapter registry for callers that need direct
// platform access.
func (a *App) Registry() *registry.Registry { return a.registry }

// Fallback exposes the fallback engine's operational controls.
func (a *App) Fallback() *fallback.Engine { return a.fallback }
