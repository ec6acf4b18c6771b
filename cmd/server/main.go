package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	amazonfx "affiliate-link-resolver/internal/app/amazon/fx"
	enqueuefx "affiliate-link-resolver/internal/app/amqp/enqueue/fx"
	appfx "affiliate-link-resolver/internal/app/fx"
	healthfx "affiliate-link-resolver/internal/app/health/fx"
	inngestfx "affiliate-link-resolver/internal/app/inngest/fx"
	mercadolivrefx "affiliate-link-resolver/internal/app/mercadolivre/fx"
	resolvefx "affiliate-link-resolver/internal/app/resolve/fx"
	resolvejobsfx "affiliate-link-resolver/internal/app/resolvejobs/fx"
	shortlinksfx "affiliate-link-resolver/internal/app/shortlinks/fx"
	routerfx "affiliate-link-resolver/internal/router/fx"
	serverfx "affiliate-link-resolver/internal/server/fx"
)

func options() fx.Option {
	return fx.Options(
		appfx.CoreAppOptions,
		appfx.InfraOptions,
		routerfx.CoreRouterOptions,
		serverfx.Module,
		healthfx.Module,
		resolvefx.Module,
		shortlinksfx.Module,
		resolvejobsfx.StoreModule,
		resolvejobsfx.Module,
		enqueuefx.Module,
		inngestfx.Module,
		amazonfx.Module,
		mercadolivrefx.Module,
	)
}

func main() {
	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		options(),
	)

	app.Run()
}
