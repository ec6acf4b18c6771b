package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/resolver"
)

const resultKeyPrefix = "resolver:result:"

// ResultCache keeps finished resolutions in process (ristretto) and, when
// Redis is configured, shares them across instances.
type ResultCache struct {
	local  *ristretto.Cache[string, resolver.Result]
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

type NewResultCacheParams struct {
	fx.In

	Lc     fx.Lifecycle
	Cfg    *config.Config
	Redis  *redis.Client `optional:"true"`
	Logger *zap.SugaredLogger
}

// NewResultCache returns nil when RESOLVER_CACHE_TTL is not positive.
func NewResultCache(p NewResultCacheParams) (*ResultCache, error) {
	ttl := p.Cfg.Resolver.CacheTTL
	if ttl <= 0 {
		p.Logger.Infow("result_cache_disabled", "reason", "RESOLVER_CACHE_TTL <= 0")
		return nil, nil
	}

	c, err := newResultCache(p.Redis, ttl, p.Logger)
	if err != nil {
		return nil, err
	}
	p.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			c.Close()
			return nil
		},
	})
	return c, nil
}

func newResultCache(rdb *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) (*ResultCache, error) {
	local, err := ristretto.NewCache(&ristretto.Config[string, resolver.Result]{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
		// cost is one per entry
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &ResultCache{local: local, redis: rdb, ttl: ttl, logger: logger}, nil
}

func (c *ResultCache) Get(ctx context.Context, key string) (resolver.Result, bool) {
	if r, ok := c.local.Get(key); ok {
		return r, true
	}
	if c.redis == nil {
		return resolver.Result{}, false
	}

	raw, err := c.redis.Get(ctx, resultKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnw("result_cache_get_failed", "err", err)
		}
		return resolver.Result{}, false
	}

	var r resolver.Result
	if err := json.Unmarshal(raw, &r); err != nil {
		c.logger.Warnw("result_cache_decode_failed", "err", err)
		return resolver.Result{}, false
	}
	c.local.SetWithTTL(key, r, 1, c.ttl)
	return r, true
}

func (c *ResultCache) Set(ctx context.Context, key string, r resolver.Result) {
	c.local.SetWithTTL(key, r, 1, c.ttl)
	if c.redis == nil {
		return
	}

	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, resultKeyPrefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warnw("result_cache_set_failed", "err", err)
	}
}

func (c *ResultCache) Close() {
	c.local.Close()
}

// Mode reports which tiers are live: "redis", "local" or "disabled".
func (c *ResultCache) Mode() string {
	switch {
	case c == nil:
		return "disabled"
	case c.redis != nil:
		return "redis"
	default:
		return "local"
	}
}
