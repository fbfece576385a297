package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/km-arc/h3ravel/framework/config"
)

// Open builds the repository for CACHE_DRIVER. The prefix is applied by the
// store so redis Flush stays scoped to this application's keys.
func Open(ctx context.Context, cfg config.CacheConfig, redisCfg config.RedisConfig) (*Repository, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory", "array":
		return New(NewMemoryStore(time.Minute), "", cfg.TTL), nil
	case "redis":
		store, err := OpenRedisStore(ctx, redisCfg.URL, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		return New(store, "", cfg.TTL), nil
	default:
		return nil, fmt.Errorf("cache: unsupported driver %q", cfg.Driver)
	}
}
