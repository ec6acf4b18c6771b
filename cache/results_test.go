package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/platform"
	"affiliate-link-resolver/internal/resolver"
)

func TestResultCache_LocalRoundTrip(t *testing.T) {
	c, err := newResultCache(nil, time.Minute, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, ok := c.Get(ctx, "https://amzn.to/x")
	require.False(t, ok)

	want := resolver.Result{
		OriginalURL: "https://amzn.to/x",
		FinalURL:    "https://www.amazon.com.br/dp/B08N5WRWNW",
		Platform:    platform.Amazon,
		Identifier:  &platform.Identifier{Kind: platform.KindASIN, ASIN: "B08N5WRWNW"},
		OK:          true,
	}
	c.Set(ctx, "https://amzn.to/x", want)
	c.local.Wait()

	got, ok := c.Get(ctx, "https://amzn.to/x")
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestNewResultCache_DisabledByTTL(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	c, err := NewResultCache(NewResultCacheParams{
		Lc:     lc,
		Cfg:    &config.Config{Resolver: config.ResolverConfig{CacheTTL: 0}},
		Logger: zap.NewNop().Sugar(),
	})
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestNewRedis_DisabledWithoutHost(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	client, err := NewRedis(lc, &config.Config{}, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Nil(t, client)
}

func TestResultCache_Mode(t *testing.T) {
	var disabled *ResultCache
	require.Equal(t, "disabled", disabled.Mode())

	c, err := newResultCache(nil, time.Minute, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	require.Equal(t, "local", c.Mode())
}
