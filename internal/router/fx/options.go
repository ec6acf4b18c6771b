package fx

import (
	"net/http"
	"time"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/metrics"
	"affiliate-link-resolver/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var CoreRouterOptions = fx.Options(
	fx.Provide(
		NewRateLimiter,
		NewMux,
	),
)

type rateLimiterParams struct {
	fx.In

	Cfg    *config.Config
	Redis  *redis.Client `optional:"true"`
	Logger *zap.SugaredLogger
}

func NewRateLimiter(p rateLimiterParams) *router.RateLimiter {
	l := router.NewRateLimiter(p.Redis, p.Cfg.APIRateLimit.Requests, p.Cfg.APIRateLimit.Window, p.Logger)
	if l == nil {
		p.Logger.Infow("api_rate_limit_disabled", "reason", "redis not configured or limit <= 0")
	}
	return l
}

type muxParams struct {
	fx.In

	Cfg      *config.Config
	Logger   *zap.SugaredLogger
	Limiter  *router.RateLimiter `optional:"true"`
	Handlers []router.Handler    `group:"handlers"`
}

func NewMux(p muxParams) *chi.Mux {
	r := chi.NewRouter()

	corsEnabled := false
	var allowedOrigins []string
	if p.Cfg != nil {
		allowedOrigins = append(allowedOrigins, p.Cfg.CORSAllowedOrigins...)
		switch p.Cfg.ENV {
		case config.Dev, config.Test:
			allowedOrigins = append(allowedOrigins,
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			)
			corsEnabled = true
		case config.Production, config.Preview:
			corsEnabled = len(allowedOrigins) > 0
		}
	}
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Link", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	metrics.Init()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(zapRequestLogger(p.Logger))
	r.Use(limitWrites(p.Limiter))

	if corsEnabled {
		// Ensure OPTIONS preflight requests get a successful response.
		r.Options("/*", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range p.Handlers {
		h.RegisterRoute(r)
	}

	return r
}

// limitWrites rate limits POST requests only; redirects and reads stay open.
func limitWrites(l *router.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := l.Middleware("api")(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func zapRequestLogger(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Infow("http_request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
