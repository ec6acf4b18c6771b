package fx

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"affiliate-link-resolver/cache"
	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/httpfetch"
	"affiliate-link-resolver/internal/metrics"
	"affiliate-link-resolver/internal/ratelimit"
	"affiliate-link-resolver/internal/resolver"
)

var Module = fx.Module(
	"resolver",
	fx.Provide(
		NewLimiter,
		NewFetcher,
		NewEngine,
		NewService,
		metrics.NewRecorder,
	),
)

// NewLimiter returns nil when RESOLVER_RATE_PER_SECOND is not positive.
func NewLimiter(lc fx.Lifecycle, cfg *config.Config) (*ratelimit.Limiter, error) {
	l, err := ratelimit.New(cfg.Resolver.RatePerSecond, cfg.Resolver.RateBurst)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			l.Close()
			return nil
		},
	})
	return l, nil
}

func NewFetcher(cfg *config.Config, limiter *ratelimit.Limiter) resolver.Fetcher {
	rc := cfg.Resolver
	fc := httpfetch.Config{
		Timeout:        rc.Timeout,
		MaxRedirects:   rc.MaxRedirects,
		UserAgent:      rc.UserAgent,
		AcceptLanguage: rc.AcceptLanguage,
		MaxBodySize:    rc.MaxBodyBytes,
	}
	if limiter != nil {
		fc.Limiter = limiter
	}
	return httpfetch.New(fc)
}

func NewEngine(cfg *config.Config, fetcher resolver.Fetcher, logger *zap.SugaredLogger) *resolver.Engine {
	return resolver.NewEngine(fetcher, cfg.Resolver.MaxHops, logger)
}

type NewServiceParams struct {
	fx.In

	Cfg      *config.Config
	Engine   *resolver.Engine
	Logger   *zap.SugaredLogger
	Cache    *cache.ResultCache `optional:"true"`
	Recorder *metrics.Recorder  `optional:"true"`
}

// NewService bounds each call by MaxHops x Timeout.
func NewService(p NewServiceParams) *resolver.Service {
	var opts []resolver.ServiceOption
	if p.Cache != nil {
		opts = append(opts, resolver.WithCache(p.Cache))
	}
	if p.Recorder != nil {
		opts = append(opts, resolver.WithObserver(p.Recorder))
	}

	deadline := time.Duration(p.Cfg.Resolver.MaxHops) * p.Cfg.Resolver.Timeout
	return resolver.NewService(p.Engine, deadline, p.Logger, opts...)
}
