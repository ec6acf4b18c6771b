package fx

import (
	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/app/inngest"
	"affiliate-link-resolver/internal/app/inngest/resolve"
	"affiliate-link-resolver/internal/app/resolvejobs"
	pkginngest "affiliate-link-resolver/internal/pkg/inngest"
	"affiliate-link-resolver/internal/router"

	"github.com/inngest/inngestgo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(
		pkginngest.NewInngestClient,
		resolve.NewResolveFunction,
		router.AsRoute(inngest.NewInngestHandler),
	),
	fx.Invoke(registerFunctions),
)

func registerFunctions(
	cfg *config.Config,
	client inngestgo.Client,
	resolveFunc *resolve.ResolveFunction,
	logger *zap.SugaredLogger,
) error {
	if cfg.Inngest.AppID == "" {
		logger.Infow("inngest_disabled", "reason", "missing INNGEST_APP_ID")
		return nil
	}

	_, err := inngestgo.CreateFunction(
		client,
		inngestgo.FunctionOpts{
			ID:      resolve.FunctionID,
			Retries: inngestgo.IntPtr(0),
		},
		inngestgo.EventTrigger(resolvejobs.RequestedEventName, nil),
		resolveFunc.Handle,
	)
	if err != nil {
		logger.Errorw(
			"❌ failed to create inngest resolve function",
			"err", err.Error(),
		)
		return err
	}

	logger.Infow("inngest_enabled",
		"path", cfg.Inngest.ServePath,
		"event", resolvejobs.RequestedEventName,
	)
	return nil
}
