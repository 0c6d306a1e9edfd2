package app

import (
	"context"
	"time"

	"github.com/vidra-project/vidra/internal/adapter/platform/shared"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
)

const defaultMaxResults = 25

// Search resolves a query into video summaries. URL queries route to the
// platform that owns the URL and return at most one hit; text queries walk
// the platforms in priority order until one produces results, skipping
// platforms whose active fallback mode forbids searching.
func (a *App) Search(ctx context.Context, query string, max int) ([]domain.VideoSummary, error) {
	if max <= 0 {
		max = defaultMaxResults
	}

	if shared.IsURL(query) {
		adapter, ok := a.registry.AdapterForURL(query)
		if !ok {
			return nil, domain.NewPlatformError("", "no platform recognises this URL",
				domain.CategoryBadRequest, nil)
		}
		if restricted, reason := a.fallback.Restricted(adapter.Name(), domain.OpSearch); restricted {
			return nil, domain.NewPlatformError(adapter.Name(), reason, domain.CategoryUnknown, nil)
		}
		return a.searchOn(ctx, adapter, query, max)
	}

	var lastErr error
	for _, adapter := range a.registry.PlatformsByPriority() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		name := adapter.Name()
		if restricted, reason := a.fallback.Restricted(name, domain.OpSearch); restricted {
			a.logger.WarnWithPlatform("search skipped", name, "reason", reason)
			continue
		}

		results, err := a.searchOn(ctx, adapter, query, max)
		if err != nil {
			lastErr = err
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

func (a *App) searchOn(ctx context.Context, adapter ports.Platform, query string, max int) ([]domain.VideoSummary, error) {
	start := time.Now()
	results, err := adapter.Search(ctx, query, max)
	a.record(adapter.Name(), err, time.Since(start))
	return results, err
}

// Details fetches per-video metadata. A nil result with a nil error means
// the platform reports no such video.
func (a *App) Details(ctx context.Context, platform, id string) (*domain.VideoDetails, error) {
	adapter, err := a.adapterFor(platform, domain.OpGetDetails)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	details, err := adapter.GetDetails(ctx, id)
	a.record(platform, err, time.Since(start))
	return details, err
}

// Stream resolves a playable URL for the video at the requested quality.
func (a *App) Stream(ctx context.Context, platform, id, quality string) (*domain.StreamHandle, error) {
	if quality == "" {
		quality = domain.QualityBest
	}
	switch quality {
	case domain.QualityBest, domain.QualityMedium, domain.QualityLow:
	default:
		return nil, domain.NewPlatformError(platform, "unknown quality "+quality,
			domain.CategoryBadRequest, nil)
	}

	adapter, err := a.adapterFor(platform, domain.OpExtractStream)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	handle, err := adapter.ExtractStreamURL(ctx, id, quality)
	a.record(platform, err, time.Since(start))
	return handle, err
}

// adapterFor resolves a platform tag and enforces its fallback restrictions.
func (a *App) adapterFor(platform, operation string) (ports.Platform, error) {
	adapter, ok := a.registry.Get(platform)
	if !ok {
		return nil, domain.NewPlatformError(platform, "unknown platform",
			domain.CategoryBadRequest, nil)
	}
	if restricted, reason := a.fallback.Restricted(platform, operation); restricted {
		return nil, domain.NewPlatformError(platform, reason, domain.CategoryUnknown, nil)
	}
	return adapter, nil
}

// record feeds one operation outcome into the prioritizer.
func (a *App) record(platform string, err error, elapsed time.Duration) {
	a.prioritizer.Record(platform, err == nil, elapsed, domain.Classify(err))
}
