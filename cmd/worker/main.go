package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	resolveworkerfx "affiliate-link-resolver/internal/app/amqp/resolveworker/fx"
	appfx "affiliate-link-resolver/internal/app/fx"
	resolvejobsfx "affiliate-link-resolver/internal/app/resolvejobs/fx"
)

func options() fx.Option {
	return fx.Options(
		appfx.CoreAppOptions,
		appfx.InfraOptions,
		resolvejobsfx.StoreModule,
		resolveworkerfx.Module,
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
