package fx

import (
	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/app/amazon"
	"affiliate-link-resolver/internal/router"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"amazon",
	fx.Provide(
		amazon.NewSigner,
		func(cfg *config.Config, signer *amazon.Signer) *amazon.Client {
			return amazon.NewClient(cfg.Resolver.Timeout, signer)
		},
		router.AsRoute(amazon.NewHandler),
	),
)
