package tracing

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"affiliate-link-resolver/config"
)

// Init installs a global OTLP/gRPC tracer provider. Without an endpoint it is
// a no-op and the otelhttp wrappers record into the default no-op provider.
func Init(endpoint, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if strings.TrimSpace(endpoint) == "" {
		return noop, nil
	}

	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

// RegisterLifecycle ties the tracer provider to the fx app.
func RegisterLifecycle(lc fx.Lifecycle, cfg *config.Config, logger *zap.SugaredLogger) {
	var shutdown func(context.Context) error

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s, err := Init(cfg.Otel.Endpoint, cfg.Otel.ServiceName)
			if err != nil {
				// Tracing is optional; keep serving without it.
				logger.Warnw("tracing_init_failed", "endpoint", cfg.Otel.Endpoint, "err", err)
			} else if cfg.Otel.Endpoint != "" {
				logger.Infow("tracing_enabled", "endpoint", cfg.Otel.Endpoint, "service", cfg.Otel.ServiceName)
			}
			shutdown = s
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if shutdown == nil {
				return nil
			}
			return shutdown(ctx)
		},
	})
}
