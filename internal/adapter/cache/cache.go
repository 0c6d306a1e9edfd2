package cache

import (
	"context"
	"fmt"

	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/ports"
	"github.com/vidra-project/vidra/internal/logger"
)

// New builds the cache backend named by config. An unreachable redis is a
// startup error rather than a silent downgrade; operators asked for a shared
// cache and should know when they are not getting one.
func New(ctx context.Context, cfg config.CacheConfig, log logger.StyledLogger) (ports.Cache, error) {
	switch cfg.Backend {
	case "", "noop":
		return NewNoop(), nil
	case "memory":
		return NewMemory(cfg.Capacity)
	case "redis":
		return NewRedis(ctx, cfg.Redis, log)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
