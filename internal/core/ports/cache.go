package ports

import (
	"context"
	"time"

	"github.com/vidra-project/vidra/internal/core/domain"
)

// Default TTLs for the typed cache accessors. Stream URLs expire quickly on
// most platforms, so their TTL is capped well below metadata.
const (
	DefaultSearchTTL   = 15 * time.Minute
	DefaultMetadataTTL = 2 * time.Hour
	DefaultStreamTTL   = 30 * time.Minute
	MaxStreamTTL       = 30 * time.Minute
)

// CacheMetrics reports hit/miss/set counters for the cache port.
type CacheMetrics struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// Cache is the typed KV port the core depends on. A miss returns the zero
// value with ok=false and is never an error; every implementation, including
// the no-op one, is a valid cache.
type Cache interface {
	GetSearchResults(ctx context.Context, platform, query string) ([]domain.VideoSummary, bool)
	SetSearchResults(ctx context.Context, platform, query string, results []domain.VideoSummary, ttl time.Duration)

	GetVideoMetadata(ctx context.Context, platform, id string) (*domain.VideoDetails, bool)
	SetVideoMetadata(ctx context.Context, platform, id string, details *domain.VideoDetails, ttl time.Duration)

	GetStreamURL(ctx context.Context, platform, id, quality string) (*domain.StreamHandle, bool)
	SetStreamURL(ctx context.Context, platform, id, quality string, handle *domain.StreamHandle, ttl time.Duration)

	// Ping reports backend liveness; in-process implementations always
	// succeed.
	Ping(ctx context.Context) error

	Metrics() CacheMetrics
	Close() error
}
