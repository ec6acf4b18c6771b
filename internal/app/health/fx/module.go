package fx

import (
	"go.uber.org/fx"

	"affiliate-link-resolver/internal/app/health"
	"affiliate-link-resolver/internal/router"
)

var Module = fx.Options(
	fx.Provide(router.AsRoute(health.NewHandler)),
)
