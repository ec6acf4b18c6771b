package fx

import (
	"affiliate-link-resolver/internal/app/resolve"
	"affiliate-link-resolver/internal/router"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(router.AsRoute(resolve.NewHandler)),
)
