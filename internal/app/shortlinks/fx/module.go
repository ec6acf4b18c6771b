package fx

import (
	"context"
	"time"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/app/shortlinks"
	"affiliate-link-resolver/internal/app/shortlinks/dao"
	"affiliate-link-resolver/internal/pkg/auth"
	"affiliate-link-resolver/internal/router"

	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	bloomExpectedCodes = 1_000_000
	bloomFalsePositive = 0.01
)

var Module = fx.Options(
	fx.Provide(
		NewVerifier,
		NewService,
		router.AsRoute(shortlinks.NewHandler),
	),
	fx.Invoke(registerWarmup),
)

type VerifierOut struct {
	fx.Out

	Verifier *auth.HS256
}

// NewVerifier returns a nil verifier when JWT_SECRET is unset, leaving /shorten open.
func NewVerifier(cfg *config.Config, logger *zap.SugaredLogger) (VerifierOut, error) {
	if cfg.Auth.JWTSecret == "" {
		logger.Infow("shortlinks_auth_disabled", "reason", "JWT_SECRET is empty")
		return VerifierOut{}, nil
	}
	v, err := auth.NewHS256(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		return VerifierOut{}, err
	}
	return VerifierOut{Verifier: v}, nil
}

type NewServiceParams struct {
	fx.In

	Cfg      *config.Config
	Postgres *sqlx.DB `optional:"true"`
	Logger   *zap.SugaredLogger
}

func NewService(p NewServiceParams) (*shortlinks.Service, error) {
	codec, err := shortlinks.NewCodec(p.Cfg.Shortener.SqidsAlphabet)
	if err != nil {
		return nil, err
	}
	bloom := shortlinks.NewBloom(bloomExpectedCodes, bloomFalsePositive)

	if p.Postgres == nil {
		p.Logger.Infow("shortlinks_disabled", "reason", "postgres is not configured")
		return shortlinks.NewService(nil, codec, bloom, p.Cfg.Shortener.DefaultExpiryDays, p.Logger), nil
	}
	store := dao.NewShortLinkStore(p.Postgres)
	return shortlinks.NewService(store, codec, bloom, p.Cfg.Shortener.DefaultExpiryDays, p.Logger), nil
}

func registerWarmup(lc fx.Lifecycle, svc *shortlinks.Service, logger *zap.SugaredLogger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if !svc.Enabled() {
				return nil
			}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()
				if err := svc.Warm(ctx); err != nil {
					logger.Errorw("shortlinks_bloom_warm_failed", "err", err)
				}
			}()
			return nil
		},
	})
}
