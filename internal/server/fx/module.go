package fx

import (
	"go.uber.org/fx"

	"affiliate-link-resolver/internal/server"
	"affiliate-link-resolver/internal/tracing"
)

var Module = fx.Options(
	fx.Provide(server.NewHTTPServer),
	fx.Invoke(tracing.RegisterLifecycle),
	fx.Invoke(RegisterHTTPServerLifecycle),
)
