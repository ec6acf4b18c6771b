package fx

import (
	"affiliate-link-resolver/cache"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"redis",
	fx.Provide(
		cache.NewRedis,
		cache.NewResultCache,
	),
)
