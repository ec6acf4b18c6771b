package fx

import (
	"context"
	"net/http"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/app/mercadolivre"
	"affiliate-link-resolver/internal/pkg/meli"
	"affiliate-link-resolver/internal/pkg/tokencache"
	"affiliate-link-resolver/internal/router"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
)

func newTokenCache(lc fx.Lifecycle) (*tokencache.Cache, error) {
	c, err := tokencache.New()
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			c.Close()
			return nil
		},
	})
	return c, nil
}

func newClient(cfg *config.Config, tokens *tokencache.Cache) *meli.Client {
	httpClient := &http.Client{
		Timeout:   cfg.Resolver.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return meli.NewClient(meli.Config{
		ClientID:     cfg.MercadoLivre.ClientID,
		ClientSecret: cfg.MercadoLivre.ClientSecret,
		BaseURL:      cfg.MercadoLivre.APIBaseURL,
	}, httpClient, tokens)
}

var Module = fx.Module(
	"mercadolivre",
	fx.Provide(
		newTokenCache,
		newClient,
		router.AsRoute(mercadolivre.NewItemHandler),
	),
)
