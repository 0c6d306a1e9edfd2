// Package youtube implements the API-gated source adapter. Text search goes
// through the Data API when a key is configured; URL queries and stream
// extraction always go through the local media-info extractor.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/vidra-project/vidra/internal/adapter/platform/shared"
	"github.com/vidra-project/vidra/internal/adapter/resilience"
	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
	"github.com/vidra-project/vidra/internal/logger"
)

const (
	defaultAPIBaseURL = "https://www.googleapis.com/youtube/v3"

	// Data API unit costs. Search is by far the most expensive call, which
	// is why quota conservation targets it first.
	searchQuotaCost = 100
	videosQuotaCost = 1

	streamHandleTTL = 30 * time.Minute
)

type Adapter struct {
	cfg       config.YouTubeConfig
	baseURL   string
	client    *http.Client
	extractor ports.Extractor
	fallback  ports.FallbackEngine
	breaker   *resilience.Breaker
	retry     resilience.RetryPolicy
	limiter   *rate.Limiter
	quota     *quotaLedger
	logger    logger.StyledLogger
}

// Options carries the collaborators the adapter does not own.
type Options struct {
	Client    *http.Client
	Extractor ports.Extractor
	Fallback  ports.FallbackEngine
	Breakers  *resilience.Manager
	Logger    logger.StyledLogger
}

func New(cfg config.YouTubeConfig, opts Options) *Adapter {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	dailyLimit := cfg.QuotaDailyLimit
	if dailyLimit <= 0 {
		dailyLimit = 10_000
	}
	threshold := cfg.ConservationThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.8
	}

	return &Adapter{
		cfg:       cfg,
		baseURL:   defaultAPIBaseURL,
		client:    client,
		extractor: opts.Extractor,
		fallback:  opts.Fallback,
		breaker:   opts.Breakers.Breaker(domain.PlatformYouTube),
		retry:     resilience.DefaultRetryPolicy(),
		// Pace API calls so bursts cannot torch the daily budget in minutes.
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		quota:   newQuotaLedger(dailyLimit, threshold),
		logger:  opts.Logger,
	}
}

func (a *Adapter) Name() string { return domain.PlatformYouTube }

func (a *Adapter) Initialize(ctx context.Context) error {
	if a.cfg.APIKey == "" {
		a.logger.Warn("no API key configured, text search disabled",
			"platform", domain.PlatformYouTube)
	}
	return nil
}

func (a *Adapter) Shutdown(ctx context.Context) error { return nil }

func (a *Adapter) ClassifyURL(rawURL string) string { return shared.YouTubeVideoID(rawURL) }

func (a *Adapter) OwnsURL(rawURL string) bool { return shared.YouTubeVideoID(rawURL) != "" }

// Search returns API hits for a text query, or exactly one hit for an owned
// URL. URL queries never touch the API.
func (a *Adapter) Search(ctx context.Context, query string, max int) ([]domain.VideoSummary, error) {
	if max <= 0 {
		max = 10
	}

	if shared.IsURL(query) {
		id := shared.YouTubeVideoID(query)
		if id == "" {
			return nil, domain.NewPlatformError(domain.PlatformYouTube, "unrecognised video URL",
				domain.CategoryNotFound, nil)
		}
		return a.searchByURL(ctx, query, id)
	}

	if a.cfg.APIKey == "" {
		return nil, domain.NewPlatformError(domain.PlatformYouTube,
			"text search requires an API key", domain.CategoryAuth, nil)
	}
	if a.apiBypassed() {
		return a.searchViaExtractor(ctx, query)
	}

	return a.apiSearch(ctx, query, max)
}

// searchByURL probes the single video and wraps it as a one-element result.
func (a *Adapter) searchByURL(ctx context.Context, pageURL, id string) ([]domain.VideoSummary, error) {
	info, err := a.extractor.Probe(ctx, pageURL)
	if err != nil {
		return nil, a.wrap("probe failed", err)
	}
	summary := summaryFromMediaInfo(info)
	summary.ID = id
	return []domain.VideoSummary{summary}, nil
}

// searchViaExtractor serves text search during API fallback using the
// extractor's search pseudo-URL scheme.
func (a *Adapter) searchViaExtractor(ctx context.Context, query string) ([]domain.VideoSummary, error) {
	info, err := a.extractor.Probe(ctx, "ytsearch1:"+query)
	if err != nil {
		return nil, a.wrap("fallback search failed", err)
	}
	return []domain.VideoSummary{summaryFromMediaInfo(info)}, nil
}

// apiBypassed reports whether an active fallback mode routes search away
// from the API.
func (a *Adapter) apiBypassed() bool {
	if a.fallback == nil {
		return false
	}
	mode, ok := a.fallback.ActiveMode(domain.PlatformYouTube)
	if !ok {
		return false
	}
	return mode == domain.ModeYtdlpAuthenticated || mode == domain.ModeYtdlpPublic
}

// GetDetails resolves per-video metadata through the API when possible, the
// extractor otherwise.
func (a *Adapter) GetDetails(ctx context.Context, id string) (*domain.VideoDetails, error) {
	if a.cfg.APIKey != "" && !a.apiBypassed() {
		return a.apiVideoDetails(ctx, id)
	}

	info, err := a.extractor.Probe(ctx, "https://www.youtube.com/watch?v="+id)
	if err != nil {
		return nil, a.wrap("probe failed", err)
	}
	summary := summaryFromMediaInfo(info)
	summary.ID = id
	return &domain.VideoDetails{
		VideoSummary:       summary,
		AvailableQualities: []string{domain.QualityBest, domain.QualityMedium, domain.QualityLow},
	}, nil
}

// ExtractStreamURL always uses the local extractor, API key or not.
func (a *Adapter) ExtractStreamURL(ctx context.Context, id, quality string) (*domain.StreamHandle, error) {
	info, err := a.extractor.Probe(ctx, "https://www.youtube.com/watch?v="+id)
	if err != nil {
		return nil, a.wrap("stream probe failed", err)
	}

	url, formatID, err := a.extractor.BestAudioURL(info)
	if err != nil {
		return nil, a.wrap("no playable format", err)
	}

	expires := time.Now().Add(streamHandleTTL)
	a.logger.Debug("stream extracted", "id", id, "format", formatID)
	return &domain.StreamHandle{
		DirectURL:  url,
		QualityTag: quality,
		ExpiresAt:  &expires,
	}, nil
}

// QuotaUsage reports the consumed fraction of the daily unit budget.
func (a *Adapter) QuotaUsage() float64 { return a.quota.usage() }

// noteQuota books units and escalates to a degraded mode once usage crosses
// the conservation threshold.
func (a *Adapter) noteQuota(units int) {
	if !a.quota.consume(units) || a.fallback == nil {
		return
	}
	if _, active := a.fallback.ActiveMode(domain.PlatformYouTube); active {
		return
	}
	usage := a.quota.usage()
	a.logger.WarnWithPlatform("quota conservation threshold crossed", domain.PlatformYouTube,
		"usage", fmt.Sprintf("%.0f%%", usage*100))
	if _, err := a.fallback.Activate(domain.PlatformYouTube, "quota conservation"); err != nil {
		a.logger.Warn("fallback activation failed", "error", err)
	}
}

func (a *Adapter) wrap(message string, err error) error {
	return domain.NewPlatformError(domain.PlatformYouTube, message, domain.Classify(err), err)
}
