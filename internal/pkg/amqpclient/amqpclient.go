package amqpclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"affiliate-link-resolver/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type NewAMQPParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *zap.SugaredLogger
}

// AMQPOut carries nil values when RABBITMQ_URL is unset; consumers and the
// enqueue handler treat that as "rabbitmq disabled".
type AMQPOut struct {
	fx.Out

	Conn    *amqp.Connection
	Channel *amqp.Channel
}

func NewAMQP(p NewAMQPParams) (AMQPOut, error) {
	rawURL := strings.TrimSpace(p.Config.RabbitMQ.URL)
	if rawURL == "" {
		p.Logger.Infow("rabbitmq_disabled", "reason", "missing RABBITMQ_URL")
		return AMQPOut{}, nil
	}

	conn, err := amqp.DialConfig(rawURL, amqp.Config{
		Properties: amqp.Table{"connection_name": p.Config.AppName},
	})
	if err != nil {
		return AMQPOut{}, fmt.Errorf("rabbitmq dial %s: %w", redact(rawURL), err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return AMQPOut{}, fmt.Errorf("rabbitmq channel: %w", err)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if err := ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
				p.Logger.Warnw("rabbitmq_channel_close_failed", "err", err)
			}
			if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
				p.Logger.Warnw("rabbitmq_close_failed", "err", err)
			}
			return nil
		},
	})

	p.Logger.Infow(
		"rabbitmq_enabled",
		"url", redact(rawURL),
		"exchange", p.Config.RabbitMQ.Exchange,
		"queue", p.Config.RabbitMQ.Queue,
		"routing_key", p.Config.RabbitMQ.RoutingKey,
		"prefetch", p.Config.RabbitMQ.Prefetch,
		"declare_topology", p.Config.RabbitMQ.DeclareTopology,
	)

	return AMQPOut{Conn: conn, Channel: ch}, nil
}

// redact drops credentials from an amqp URL for logs and errors.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid>"
	}
	u.User = nil
	return u.String()
}
