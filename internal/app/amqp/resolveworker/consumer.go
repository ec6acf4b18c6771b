package resolveworker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/app/resolvejobs"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrHandlerMissing = errors.New("resolveworker handler missing")

type Handler interface {
	Handle(ctx context.Context, msg resolvejobs.RequestedEnvelope) error
}

type Consumer struct {
	cfg     *config.Config
	channel *amqp.Channel
	handler Handler
	logger  *zap.SugaredLogger

	consumerTag string
	cancel      context.CancelFunc
}

type NewConsumerParams struct {
	fx.In

	Config  *config.Config
	Channel *amqp.Channel `optional:"true"`
	Handler Handler       `optional:"true"`
	Logger  *zap.SugaredLogger
}

func NewConsumer(p NewConsumerParams) *Consumer {
	h := p.Handler
	if h == nil {
		h = missingHandler{}
	}

	return &Consumer{
		cfg:         p.Config,
		channel:     p.Channel,
		handler:     h,
		logger:      p.Logger,
		consumerTag: "resolveworker",
	}
}

// Start declares topology (when enabled) and consumes in the background until
// Stop.
func (c *Consumer) Start(context.Context) error {
	if c.cfg == nil || strings.TrimSpace(c.cfg.RabbitMQ.URL) == "" || c.channel == nil {
		c.logger.Infow("resolveworker_disabled", "reason", "missing rabbitmq config or channel")
		return nil
	}

	if c.cfg.RabbitMQ.DeclareTopology {
		if err := c.declareTopology(); err != nil {
			return err
		}
	}

	prefetch := c.cfg.RabbitMQ.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("rabbitmq qos: %w", err)
	}

	deliveries, err := c.channel.Consume(
		c.queueName(),
		c.consumerTag,
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}

	c.logger.Infow(
		"resolveworker_started",
		"queue", c.queueName(),
		"prefetch", prefetch,
	)

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.loop(runCtx, deliveries)

	return nil
}

func (c *Consumer) loop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warnw("resolveworker_deliveries_closed")
				return
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) Stop(context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.channel == nil {
		return nil
	}
	_ = c.channel.Cancel(c.consumerTag, false)
	return nil
}

func (c *Consumer) exchange() string {
	if ex := strings.TrimSpace(c.cfg.RabbitMQ.Exchange); ex != "" {
		return ex
	}
	return "events"
}

func (c *Consumer) queueName() string {
	if q := strings.TrimSpace(c.cfg.RabbitMQ.Queue); q != "" {
		return q
	}
	return "resolver.url.requested.v1"
}

func (c *Consumer) routingKey() string {
	if k := strings.TrimSpace(c.cfg.RabbitMQ.RoutingKey); k != "" {
		return k
	}
	return "resolver.url.requested.v1"
}

func (c *Consumer) declareTopology() error {
	ex := c.exchange()
	queueName := c.queueName()
	routingKey := c.routingKey()

	dlx := ex + ".dlx"
	dlq := queueName + ".dlq"

	if err := c.channel.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq exchange declare %q: %w", ex, err)
	}
	if err := c.channel.ExchangeDeclare(dlx, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq dlx exchange declare %q: %w", dlx, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange": dlx,
	}
	if _, err := c.channel.QueueDeclare(queueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("rabbitmq queue declare %q: %w", queueName, err)
	}
	if _, err := c.channel.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq dlq declare %q: %w", dlq, err)
	}

	if err := c.channel.QueueBind(queueName, routingKey, ex, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue bind queue=%q key=%q ex=%q: %w", queueName, routingKey, ex, err)
	}
	if err := c.channel.QueueBind(dlq, routingKey, dlx, false, nil); err != nil {
		return fmt.Errorf("rabbitmq dlq bind queue=%q key=%q ex=%q: %w", dlq, routingKey, dlx, err)
	}

	c.logger.Infow(
		"resolveworker_topology_declared",
		"exchange", ex,
		"queue", queueName,
		"routing_key", routingKey,
		"dlx", dlx,
		"dlq", dlq,
	)

	return nil
}

// handleDelivery acks on success and rejects without requeue otherwise, so
// poison messages land in the DLQ.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	eventID := strings.TrimSpace(d.MessageId)
	if eventID == "" {
		eventID = strings.TrimSpace(d.CorrelationId)
	}

	var msg resolvejobs.RequestedEnvelope
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Errorw("resolveworker_invalid_json",
			"err", err,
			"message_id", eventID,
		)
		_ = d.Reject(false)
		return
	}

	if strings.TrimSpace(msg.EventID) == "" {
		msg.EventID = eventID
	}
	if strings.TrimSpace(msg.EventID) == "" {
		c.logger.Errorw("resolveworker_missing_event_id",
			"event_name", msg.EventName,
		)
		_ = d.Reject(false)
		return
	}

	if err := c.handler.Handle(ctx, msg); err != nil {
		c.logger.Errorw("resolveworker_handle_failed",
			"err", err,
			"event_id", msg.EventID,
			"event_name", msg.EventName,
		)
		_ = d.Reject(false)
		return
	}

	_ = d.Ack(false)
}

type missingHandler struct{}

func (missingHandler) Handle(context.Context, resolvejobs.RequestedEnvelope) error {
	return ErrHandlerMissing
}
