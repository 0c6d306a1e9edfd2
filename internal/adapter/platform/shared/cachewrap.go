package shared

import (
	"context"
	"time"

	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
)

// CachedPlatform decorates a Platform with read-through caching for the
// three cacheable operations. Misses race freely; last writer wins.
type CachedPlatform struct {
	ports.Platform
	cache ports.Cache
}

func WithCache(p ports.Platform, cache ports.Cache) *CachedPlatform {
	return &CachedPlatform{Platform: p, cache: cache}
}

func (c *CachedPlatform) Search(ctx context.Context, query string, max int) ([]domain.VideoSummary, error) {
	if results, ok := c.cache.GetSearchResults(ctx, c.Name(), query); ok {
		if len(results) > max {
			return results[:max], nil
		}
		return results, nil
	}

	results, err := c.Platform.Search(ctx, query, max)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		c.cache.SetSearchResults(ctx, c.Name(), query, results, ports.DefaultSearchTTL)
	}
	return results, nil
}

func (c *CachedPlatform) GetDetails(ctx context.Context, id string) (*domain.VideoDetails, error) {
	if details, ok := c.cache.GetVideoMetadata(ctx, c.Name(), id); ok {
		return details, nil
	}

	details, err := c.Platform.GetDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if details != nil {
		c.cache.SetVideoMetadata(ctx, c.Name(), id, details, ports.DefaultMetadataTTL)
	}
	return details, nil
}

func (c *CachedPlatform) ExtractStreamURL(ctx context.Context, id, quality string) (*domain.StreamHandle, error) {
	if handle, ok := c.cache.GetStreamURL(ctx, c.Name(), id, quality); ok {
		if !handle.Expired(time.Now()) {
			return handle, nil
		}
	}

	handle, err := c.Platform.ExtractStreamURL(ctx, id, quality)
	if err != nil {
		return nil, err
	}
	if handle != nil {
		c.cache.SetStreamURL(ctx, c.Name(), id, quality, handle, ports.DefaultStreamTTL)
	}
	return handle, nil
}

// Unwrap exposes the inner adapter for callers that need the concrete type.
func (c *CachedPlatform) Unwrap() ports.Platform { return c.Platform }
