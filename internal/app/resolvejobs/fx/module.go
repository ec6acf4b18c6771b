package fx

import (
	"affiliate-link-resolver/internal/app/resolvejobs"
	"affiliate-link-resolver/internal/app/resolvejobs/dao"
	"affiliate-link-resolver/internal/router"

	"go.uber.org/fx"
)

// StoreModule provides the sqlite job store shared by the enqueue handler,
// the RabbitMQ worker and the Inngest function.
var StoreModule = fx.Module(
	"resolvejobs-store",
	fx.Provide(dao.NewJobStore),
)

var Module = fx.Module(
	"resolvejobs",
	fx.Provide(router.AsRoute(resolvejobs.NewGetByIDHandler)),
)
