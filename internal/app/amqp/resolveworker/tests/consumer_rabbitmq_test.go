package tests

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/app/amqp/resolveworker"
	"affiliate-link-resolver/internal/app/resolvejobs"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu   sync.Mutex
	seen map[string]resolvejobs.RequestedEnvelope
}

func (h *recordingHandler) Handle(_ context.Context, msg resolvejobs.RequestedEnvelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[msg.EventID] = msg
	return nil
}

func (h *recordingHandler) get(id string) (resolvejobs.RequestedEnvelope, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.seen[id]
	return m, ok
}

type ResolveWorkerRabbitMQSuite struct {
	suite.Suite

	cfg  *config.Config
	conn *amqp.Connection
	ch   *amqp.Channel
}

func TestResolveWorkerRabbitMQSuite(t *testing.T) {
	suite.Run(t, new(ResolveWorkerRabbitMQSuite))
}

func (s *ResolveWorkerRabbitMQSuite) SetupTest() {
	rabbitURL := strings.TrimSpace(os.Getenv("RABBITMQ_URL"))
	if rabbitURL == "" {
		s.T().Skip("RABBITMQ_URL is required for integration test")
	}

	cfg, err := config.NewConfig(config.NewViper())
	require.NoError(s.T(), err)
	cfg.RabbitMQ.Queue = "resolver.url.requested.test"
	cfg.RabbitMQ.RoutingKey = "resolver.url.requested.test"
	cfg.RabbitMQ.DeclareTopology = true
	s.cfg = cfg

	s.conn, err = amqp.Dial(rabbitURL)
	require.NoError(s.T(), err)
	s.ch, err = s.conn.Channel()
	require.NoError(s.T(), err)
}

func (s *ResolveWorkerRabbitMQSuite) TearDownTest() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

func (s *ResolveWorkerRabbitMQSuite) TestConsumeAndAck() {
	workerCh, err := s.conn.Channel()
	require.NoError(s.T(), err)

	h := &recordingHandler{seen: map[string]resolvejobs.RequestedEnvelope{}}
	c := resolveworker.NewConsumer(resolveworker.NewConsumerParams{
		Config:  s.cfg,
		Channel: workerCh,
		Handler: h,
		Logger:  zap.NewNop().Sugar(),
	})
	require.NoError(s.T(), c.Start(context.Background()))
	s.T().Cleanup(func() { _ = c.Stop(context.Background()) })

	eventID := "amqp-it-" + time.Now().UTC().Format("20060102T150405.000000000")
	body, err := json.Marshal(resolvejobs.RequestedEnvelope{
		EventName: resolvejobs.RequestedEventName,
		EventID:   eventID,
		TS:        time.Now().UTC(),
		Data:      resolvejobs.RequestedEventData{URL: "https://amzn.to/3example"},
	})
	require.NoError(s.T(), err)

	err = s.ch.PublishWithContext(context.Background(), s.cfg.RabbitMQ.Exchange, s.cfg.RabbitMQ.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    eventID,
		Body:         body,
	})
	require.NoError(s.T(), err)

	require.Eventually(s.T(), func() bool {
		_, ok := h.get(eventID)
		return ok
	}, 10*time.Second, 50*time.Millisecond)

	got, _ := h.get(eventID)
	require.Equal(s.T(), "https://amzn.to/3example", got.Data.URL)
}
