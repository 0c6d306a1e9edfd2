package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter"

	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
)

const defaultMemoryCapacity = 10_000

// MemoryCache is the in-process backend, built on a W-TinyLFU cache with
// per-entry TTLs. Stored values are treated as immutable by convention.
type MemoryCache struct {
	entries otter.CacheWithVariableTTL[string, any]

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

func NewMemory(capacity int) (*MemoryCache, error) {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	entries, err := otter.MustBuilder[string, any](capacity).
		Cost(func(_ string, _ any) uint32 { return 1 }).
		WithVariableTTL().
		Build()
	if err != nil {
		return nil, err
	}
	return &MemoryCache{entries: entries}, nil
}

func (m *MemoryCache) get(key string) (any, bool) {
	value, ok := m.entries.Get(key)
	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return value, ok
}

func (m *MemoryCache) set(key string, value any, ttl time.Duration) {
	m.entries.Set(key, value, ttl)
	m.sets.Add(1)
}

func (m *MemoryCache) GetSearchResults(_ context.Context, platform, query string) ([]domain.VideoSummary, bool) {
	value, ok := m.get(searchKey(platform, query))
	if !ok {
		return nil, false
	}
	results, ok := value.([]domain.VideoSummary)
	return results, ok
}

func (m *MemoryCache) SetSearchResults(_ context.Context, platform, query string, results []domain.VideoSummary, ttl time.Duration) {
	m.set(searchKey(platform, query), results, orDefault(ttl, ports.DefaultSearchTTL))
}

func (m *MemoryCache) GetVideoMetadata(_ context.Context, platform, id string) (*domain.VideoDetails, bool) {
	value, ok := m.get(metadataKey(platform, id))
	if !ok {
		return nil, false
	}
	details, ok := value.(*domain.VideoDetails)
	return details, ok
}

func (m *MemoryCache) SetVideoMetadata(_ context.Context, platform, id string, details *domain.VideoDetails, ttl time.Duration) {
	m.set(metadataKey(platform, id), details, orDefault(ttl, ports.DefaultMetadataTTL))
}

func (m *MemoryCache) GetStreamURL(_ context.Context, platform, id, quality string) (*domain.StreamHandle, bool) {
	value, ok := m.get(streamKey(platform, id, quality))
	if !ok {
		return nil, false
	}
	handle, ok := value.(*domain.StreamHandle)
	if !ok {
		return nil, false
	}
	if handle.Expired(time.Now()) {
		return nil, false
	}
	return handle, true
}

func (m *MemoryCache) SetStreamURL(_ context.Context, platform, id, quality string, handle *domain.StreamHandle, ttl time.Duration) {
	m.set(streamKey(platform, id, quality), handle, clampStreamTTL(ttl))
}

func (m *MemoryCache) Ping(context.Context) error { return nil }

func (m *MemoryCache) Metrics() ports.CacheMetrics {
	return ports.CacheMetrics{
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
		Sets:   m.sets.Load(),
	}
}

func (m *MemoryCache) Close() error {
	m.entries.Close()
	return nil
}
