package cache

import (
	"context"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/domain"
	"github.com/vidra-project/vidra/internal/core/ports"
	"github.com/vidra-project/vidra/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisCache is the shared backend for multi-process deployments. Values are
// stored as JSON under namespaced keys with native TTLs; any backend error is
// reported as a miss so the platform path keeps working without redis.
type RedisCache struct {
	client *redis.Client
	logger logger.StyledLogger

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
	errors atomic.Int64
}

func NewRedis(ctx context.Context, cfg config.RedisConfig, log logger.StyledLogger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{client: client, logger: log}, nil
}

func (r *RedisCache) get(ctx context.Context, key string, out any) bool {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.errors.Add(1)
			r.logger.Debug("cache read failed", "key", key, "error", err)
		}
		r.misses.Add(1)
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		r.errors.Add(1)
		r.misses.Add(1)
		return false
	}
	r.hits.Add(1)
	return true
}

func (r *RedisCache) set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		r.errors.Add(1)
		return
	}
	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		r.errors.Add(1)
		r.logger.Debug("cache write failed", "key", key, "error", err)
		return
	}
	r.sets.Add(1)
}

func (r *RedisCache) GetSearchResults(ctx context.Context, platform, query string) ([]domain.VideoSummary, bool) {
	var results []domain.VideoSummary
	if !r.get(ctx, searchKey(platform, query), &results) {
		return nil, false
	}
	return results, true
}

func (r *RedisCache) SetSearchResults(ctx context.Context, platform, query string, results []domain.VideoSummary, ttl time.Duration) {
	r.set(ctx, searchKey(platform, query), results, orDefault(ttl, ports.DefaultSearchTTL))
}

func (r *RedisCache) GetVideoMetadata(ctx context.Context, platform, id string) (*domain.VideoDetails, bool) {
	var details domain.VideoDetails
	if !r.get(ctx, metadataKey(platform, id), &details) {
		return nil, false
	}
	return &details, true
}

func (r *RedisCache) SetVideoMetadata(ctx context.Context, platform, id string, details *domain.VideoDetails, ttl time.Duration) {
	r.set(ctx, metadataKey(platform, id), details, orDefault(ttl, ports.DefaultMetadataTTL))
}

func (r *RedisCache) GetStreamURL(ctx context.Context, platform, id, quality string) (*domain.StreamHandle, bool) {
	var handle domain.StreamHandle
	if !r.get(ctx, streamKey(platform, id, quality), &handle) {
		return nil, false
	}
	if handle.Expired(time.Now()) {
		return nil, false
	}
	return &handle, true
}

func (r *RedisCache) SetStreamURL(ctx context.Context, platform, id, quality string, handle *domain.StreamHandle, ttl time.Duration) {
	r.set(ctx, streamKey(platform, id, quality), handle, clampStreamTTL(ttl))
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Metrics() ports.CacheMetrics {
	return ports.CacheMetrics{
		Hits:   r.hits.Load(),
		Misses: r.misses.Load(),
		Sets:   r.sets.Load(),
		Errors: r.errors.Load(),
	}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
