package fx

import (
	"context"

	"affiliate-link-resolver/internal/app/amqp/resolveworker"
	"affiliate-link-resolver/internal/pkg/amqpclient"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module(
	"amqp-resolveworker",
	fx.Provide(
		amqpclient.NewAMQP,
		fx.Annotate(
			resolveworker.NewResolveHandler,
			fx.As(new(resolveworker.Handler)),
		),
		resolveworker.NewConsumer,
	),
	fx.Invoke(registerLifecycleHooks),
)

type hooksParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Consumer  *resolveworker.Consumer
	Logger    *zap.SugaredLogger
}

func registerLifecycleHooks(p hooksParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Infow("resolveworker_starting")
			return p.Consumer.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			p.Logger.Infow("resolveworker_stopping")
			return p.Consumer.Stop(ctx)
		},
	})
}
