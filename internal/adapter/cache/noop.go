package cache

import (
	"context"
	"time"

	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
)

// NoopCache misses on every read and discards every write. It is the backend
// of last resort when neither memory nor redis is configured, and it keeps
// the rest of the system free of nil checks.
type NoopCache struct{}

func NewNoop() *NoopCache { return &NoopCache{} }

func (n *NoopCache) GetSearchResults(context.Context, string, string) ([]domain.VideoSummary, bool) {
	return nil, false
}

func (n *NoopCache) SetSearchResults(context.Context, string, string, []domain.VideoSummary, time.Duration) {
}

func (n *NoopCache) GetVideoMetadata(context.Context, string, string) (*domain.VideoDetails, bool) {
	return nil, false
}

func (n *NoopCache) SetVideoMetadata(context.Context, string, string, *domain.VideoDetails, time.Duration) {
}

func (n *NoopCache) GetStreamURL(context.Context, string, string, string) (*domain.StreamHandle, bool) {
	return nil, false
}

func (n *NoopCache) SetStreamURL(context.Context, string, string, string, *domain.StreamHandle, time.Duration) {
}

func (n *NoopCache) Ping(context.Context) error { return nil }

func (n *NoopCache) Metrics() ports.CacheMetrics { return ports.CacheMetrics{} }

func (n *NoopCache) Close() error { return nil }
