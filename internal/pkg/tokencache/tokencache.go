// Package tokencache holds short-lived credentials with per-entry expiry.
// Each owner constructs its own Cache; there is no package-level state.
package tokencache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

// FetchFunc returns a fresh token and how long it may be reused. A ttl <= 0
// means the token is returned but not cached.
type FetchFunc func(ctx context.Context) (token string, ttl time.Duration, err error)

type Cache struct {
	store *ristretto.Cache[string, string]
	group singleflight.Group
}

func New() (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters:        1000,
		MaxCost:            100,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("token cache: %w", err)
	}
	return &Cache{store: store}, nil
}

// GetOrFetch returns the cached token for key, or runs fetch once for all
// concurrent callers of the same key.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (string, error) {
	if tok, ok := c.store.Get(key); ok {
		return tok, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if tok, ok := c.store.Get(key); ok {
			return tok, nil
		}
		tok, ttl, err := fetch(ctx)
		if err != nil {
			return "", err
		}
		if ttl > 0 {
			c.store.SetWithTTL(key, tok, 1, ttl)
			c.store.Wait()
		}
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) Invalidate(key string) {
	c.store.Del(key)
}

func (c *Cache) Close() {
	c.store.Close()
}
