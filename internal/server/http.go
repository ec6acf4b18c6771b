package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"affiliate-link-resolver/config"
)

func NewHTTPServer(cfg *config.Config, mux *chi.Mux) *http.Server {
	return &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.AppPort),
		Handler: otelhttp.NewHandler(mux, "http",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Resolution may take MaxHops x Timeout.
		WriteTimeout: cfg.Resolver.Timeout*time.Duration(cfg.Resolver.MaxHops) + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
