// Package rumble implements the paid-actor source adapter. Every operation
// is delegated to a named actor on a third-party runner; the adapter owns
// payload construction, quality selection and error classification.
package rumble

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vidra-project/vidra/internal/adapter/platform/shared"
	"github.com/vidra-project/vidra/internal/adapter/resilience"
	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/logger"
)

const (
	defaultSearchActor   = "rumble-search-scraper"
	defaultMetadataActor = "rumble-metadata-scraper"
	defaultStreamActor   = "rumble-stream-resolver"

	streamHandleTTL = 30 * time.Minute
)

type Adapter struct {
	cfg     config.ActorConfig
	client  *actorClient
	breaker *resilience.Breaker
	retry   resilience.RetryPolicy
	logger  logger.StyledLogger
}

type Options struct {
	Client   *http.Client
	Breakers *resilience.Manager
	Logger   logger.StyledLogger
}

func New(cfg config.ActorConfig, opts Options) *Adapter {
	if cfg.SearchActor == "" {
		cfg.SearchActor = defaultSearchActor
	}
	if cfg.MetadataActor == "" {
		cfg.MetadataActor = defaultMetadataActor
	}
	if cfg.StreamActor == "" {
		cfg.StreamActor = defaultStreamActor
	}

	return &Adapter{
		cfg:     cfg,
		client:  newActorClient(cfg.BaseURL, cfg.APIToken, cfg.RunTimeout, opts.Client),
		breaker: opts.Breakers.Breaker(domain.PlatformRumble),
		retry:   resilience.DefaultRetryPolicy(),
		logger:  opts.Logger,
	}
}

func (a *Adapter) Name() string { return domain.PlatformRumble }

func (a *Adapter) Initialize(ctx context.Context) error {
	if a.cfg.APIToken == "" {
		a.logger.Warn("no actor runner token configured, all operations will fail",
			"platform", domain.PlatformRumble)
	}
	return nil
}

func (a *Adapter) Shutdown(ctx context.Context) error { return nil }

func (a *Adapter) ClassifyURL(rawURL string) string { return shared.RumbleVideoID(rawURL) }

func (a *Adapter) OwnsURL(rawURL string) bool { return shared.RumbleVideoID(rawURL) != "" }

func (a *Adapter) canonicalURL(id string) string { return "https://rumble.com/" + id }

// run executes one actor under the breaker and retry policy.
func (a *Adapter) run(ctx context.Context, actor string, input any) (gjson.Result, error) {
	var items gjson.Result
	err := resilience.Retry(ctx, a.retry, func(ctx context.Context) error {
		return a.breaker.Call(ctx, func(ctx context.Context) error {
			var callErr error
			items, callErr = a.client.runSync(ctx, actor, input)
			return callErr
		})
	})
	return items, err
}

func (a *Adapter) Search(ctx context.Context, query string, max int) ([]domain.VideoSummary, error) {
	if max <= 0 {
		max = 10
	}

	if shared.IsURL(query) {
		id := shared.RumbleVideoID(query)
		if id == "" {
			return nil, domain.NewPlatformError(domain.PlatformRumble, "unrecognised video URL",
				domain.CategoryNotFound, nil)
		}
		details, err := a.GetDetails(ctx, id)
		if err != nil {
			return nil, err
		}
		if details == nil {
			return nil, domain.NewPlatformError(domain.PlatformRumble, "video not found",
				domain.CategoryNotFound, nil)
		}
		return []domain.VideoSummary{details.VideoSummary}, nil
	}

	items, err := a.run(ctx, a.cfg.SearchActor, map[string]any{
		"query":      query,
		"maxResults": max,
	})
	if err != nil {
		return nil, err
	}

	var results []domain.VideoSummary
	items.ForEach(func(_, item gjson.Result) bool {
		summary := summaryFromItem(item)
		if summary.ID == "" {
			return true
		}
		results = append(results, summary)
		return len(results) < max
	})
	return results, nil
}

func (a *Adapter) GetDetails(ctx context.Context, id string) (*domain.VideoDetails, error) {
	items, err := a.run(ctx, a.cfg.MetadataActor, map[string]any{
		"url": a.canonicalURL(id),
	})
	if err != nil {
		return nil, err
	}

	item := items.Get("0")
	if !item.Exists() {
		return nil, nil
	}

	summary := summaryFromItem(item)
	if summary.ID == "" {
		summary.ID = id
	}
	details := &domain.VideoDetails{
		VideoSummary:       summary,
		Likes:              item.Get("likes").Int(),
		Dislikes:           item.Get("dislikes").Int(),
		AvailableQualities: []string{domain.QualityBest, domain.QualityMedium, domain.QualityLow},
	}
	if published := item.Get("publishedAt").String(); published != "" {
		if ts, parseErr := time.Parse(time.RFC3339, published); parseErr == nil {
			details.PublishedAt = &ts
		}
	}
	return details, nil
}

// ExtractStreamURL resolves the stream list and picks by quality: with the
// streams sorted by resolution descending, best is the first, medium the
// middle, low the last.
func (a *Adapter) ExtractStreamURL(ctx context.Context, id, quality string) (*domain.StreamHandle, error) {
	items, err := a.run(ctx, a.cfg.StreamActor, map[string]any{
		"url":     a.canonicalURL(id),
		"quality": quality,
	})
	if err != nil {
		return nil, err
	}

	streams := collectStreams(items)
	if len(streams) == 0 {
		return nil, nil
	}

	chosen := pickByQuality(streams, quality)
	expires := time.Now().Add(streamHandleTTL)
	return &domain.StreamHandle{
		DirectURL:  chosen.url,
		QualityTag: quality,
		ExpiresAt:  &expires,
	}, nil
}

type stream struct {
	url    string
	height int
}

func collectStreams(items gjson.Result) []stream {
	var streams []stream
	items.Get("0.streams").ForEach(func(_, s gjson.Result) bool {
		url := s.Get("url").String()
		if url == "" {
			return true
		}
		streams = append(streams, stream{url: url, height: int(s.Get("height").Int())})
		return true
	})
	sort.SliceStable(streams, func(i, j int) bool { return streams[i].height > streams[j].height })
	return streams
}

func pickByQuality(streams []stream, quality string) stream {
	switch quality {
	case domain.QualityMedium:
		return streams[len(streams)/2]
	case domain.QualityLow:
		return streams[len(streams)-1]
	default:
		return streams[0]
	}
}

func summaryFromItem(item gjson.Result) domain.VideoSummary {
	id := item.Get("id").String()
	if id == "" {
		id = shared.RumbleVideoID(item.Get("url").String())
	}
	canonical := item.Get("url").String()
	if canonical == "" && id != "" {
		canonical = "https://rumble.com/" + id
	}
	return domain.VideoSummary{
		ID:              id,
		Title:           item.Get("title").String(),
		Channel:         item.Get("channel").String(),
		ThumbnailURL:    item.Get("thumbnail").String(),
		CanonicalURL:    canonical,
		PlatformTag:     domain.PlatformRumble,
		Description:     item.Get("description").String(),
		DurationSeconds: item.Get("duration").Int(),
		Views:           item.Get("views").Int(),
	}
}
