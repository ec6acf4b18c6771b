package fx

import (
	"affiliate-link-resolver/internal/app/amqp/enqueue"
	"affiliate-link-resolver/internal/pkg/amqpclient"
	"affiliate-link-resolver/internal/router"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		amqpclient.NewAMQP,
		router.AsRoute(enqueue.NewHandler),
	),
)
