package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
	"github.com/vidra-project/vidra/internal/logger"
)

func sampleResults() []domain.VideoSummary {
	return []domain.VideoSummary{
		{ID: "dQw4w9WgXcQ", Title: "First", PlatformTag: domain.PlatformYouTube},
		{ID: "abc12345678", Title: "Second", PlatformTag: domain.PlatformYouTube},
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c, err := NewMemory(100)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	_, ok := c.GetSearchResults(ctx, domain.PlatformYouTube, "test query")
	assert.False(t, ok)

	c.SetSearchResults(ctx, domain.PlatformYouTube, "test query", sampleResults(), 0)
	got, ok := c.GetSearchResults(ctx, domain.PlatformYouTube, "test query")
	require.True(t, ok)
	assert.Equal(t, sampleResults(), got)

	metrics := c.Metrics()
	assert.Equal(t, int64(1), metrics.Hits)
	assert.Equal(t, int64(1), metrics.Misses)
	assert.Equal(t, int64(1), metrics.Sets)
}

func TestMemoryCacheNormalisesQueries(t *testing.T) {
	c, err := NewMemory(100)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	c.SetSearchResults(ctx, domain.PlatformYouTube, "  Lofi   BEATS ", sampleResults(), 0)
	got, ok := c.GetSearchResults(ctx, domain.PlatformYouTube, "lofi beats")
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestMemoryCacheIsolatesPlatforms(t *testing.T) {
	c, err := NewMemory(100)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	c.SetSearchResults(ctx, domain.PlatformYouTube, "query", sampleResults(), 0)
	_, ok := c.GetSearchResults(ctx, domain.PlatformRumble, "query")
	assert.False(t, ok)
}

func TestMemoryCacheExpiredStreamHandleMisses(t *testing.T) {
	c, err := NewMemory(100)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	c.SetStreamURL(ctx, domain.PlatformYouTube, "id", domain.QualityBest,
		&domain.StreamHandle{DirectURL: "https://example.test/a", ExpiresAt: &past}, time.Hour)

	_, ok := c.GetStreamURL(ctx, domain.PlatformYouTube, "id", domain.QualityBest)
	assert.False(t, ok)
}

func TestMemoryCacheMetadata(t *testing.T) {
	c, err := NewMemory(100)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	details := &domain.VideoDetails{
		VideoSummary:       domain.VideoSummary{ID: "v123", Title: "Video", PlatformTag: domain.PlatformRumble},
		AvailableQualities: []string{domain.QualityBest, domain.QualityLow},
	}
	c.SetVideoMetadata(ctx, domain.PlatformRumble, "v123", details, 0)

	got, ok := c.GetVideoMetadata(ctx, domain.PlatformRumble, "v123")
	require.True(t, ok)
	assert.Equal(t, details, got)
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	c := NewNoop()
	ctx := context.Background()

	c.SetSearchResults(ctx, domain.PlatformYouTube, "query", sampleResults(), 0)
	_, ok := c.GetSearchResults(ctx, domain.PlatformYouTube, "query")
	assert.False(t, ok)
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger()

	c, err := New(ctx, config.CacheConfig{Backend: "noop"}, log)
	require.NoError(t, err)
	_, isNoop := c.(*NoopCache)
	assert.True(t, isNoop)

	c, err = New(ctx, config.CacheConfig{Backend: "memory", Capacity: 10}, log)
	require.NoError(t, err)
	_, isMemory := c.(*MemoryCache)
	assert.True(t, isMemory)

	_, err = New(ctx, config.CacheConfig{Backend: "bogus"}, log)
	assert.Error(t, err)
}

var _ ports.Cache = (*NoopCache)(nil)
var _ ports.Cache = (*MemoryCache)(nil)
var _ ports.Cache = (*RedisCache)(nil)
