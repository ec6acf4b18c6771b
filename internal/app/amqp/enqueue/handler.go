package enqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/app/resolvejobs"
	"affiliate-link-resolver/internal/app/resolvejobs/dao"
	"affiliate-link-resolver/internal/pkg/render"
	"affiliate-link-resolver/internal/platform"
	"affiliate-link-resolver/internal/router"
	"affiliate-link-resolver/internal/unwrap"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Handler struct {
	cfg           *config.Config
	channel       *amqp.Channel
	logger        *zap.SugaredLogger
	store         queuedJobWriter
	sqliteEnabled bool

	publish func(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type queuedJobWriter interface {
	Enqueue(ctx context.Context, in dao.EnqueueInput) (string, error)
}

type NewHandlerParams struct {
	fx.In

	Cfg      *config.Config
	Channel  *amqp.Channel `optional:"true"`
	Logger   *zap.SugaredLogger
	Store    *dao.JobStore `optional:"true"`
	SQLiteDB *sqlx.DB      `name:"sqlite" optional:"true"`
}

func NewHandler(p NewHandlerParams) *Handler {
	var publishFn func(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	if p.Channel != nil {
		publishFn = p.Channel.PublishWithContext
	}

	h := &Handler{
		cfg:           p.Cfg,
		channel:       p.Channel,
		logger:        p.Logger,
		sqliteEnabled: p.SQLiteDB != nil,
		publish:       publishFn,
	}
	if p.Store != nil {
		h.store = p.Store
	}
	return h
}

func (h *Handler) RegisterRoute(r *chi.Mux) {
	r.Post("/v1/resolve/enqueue", h.Handle)
}

type enqueueRequest struct {
	URL string `json:"url"`
}

type enqueueResponse struct {
	OK      bool   `json:"ok"`
	EventID string `json:"event_id"`
	ID      string `json:"id,omitempty"`
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.ChiErrMsg(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		render.ChiErrMsg(w, r, http.StatusBadRequest, "missing url")
		return
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		render.ChiErrMsg(w, r, http.StatusBadRequest, "invalid url")
		return
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		render.ChiErrMsg(w, r, http.StatusBadRequest, "url must be http(s)")
		return
	}
	if parsed.Hostname() == "" {
		render.ChiErrMsg(w, r, http.StatusBadRequest, "invalid url host")
		return
	}
	if !resolvable(rawURL) {
		render.ChiErrMsg(w, r, http.StatusBadRequest, "unsupported url domain (supported: amazon, shopee, mercadolivre, magalu)")
		return
	}

	if h.cfg.RabbitMQ.URL == "" || h.publish == nil {
		render.ChiErrMsg(w, r, http.StatusServiceUnavailable, "rabbitmq disabled")
		return
	}

	ex := h.cfg.RabbitMQ.Exchange
	if ex == "" {
		ex = "events"
	}
	routingKey := h.cfg.RabbitMQ.RoutingKey
	if routingKey == "" {
		routingKey = "resolver.url.requested.v1"
	}

	now := time.Now().UTC()
	eventID := resolvejobs.EventIDForURL(rawURL)
	jobID := ""

	if h.store != nil && h.sqliteEnabled {
		id, err := h.store.Enqueue(r.Context(), dao.EnqueueInput{
			EventID:   eventID,
			URL:       rawURL,
			CreatedBy: "enqueue",
		})
		if err != nil {
			h.logger.Errorw("enqueue_persist_queued_failed", "event_id", eventID, "url", rawURL, "err", err)
		} else {
			jobID = id
		}
	}

	body, err := json.Marshal(resolvejobs.RequestedEnvelope{
		EventName: resolvejobs.RequestedEventName,
		EventID:   eventID,
		TS:        now,
		Data:      resolvejobs.RequestedEventData{URL: rawURL},
	})
	if err != nil {
		h.logger.Errorw("enqueue_marshal_failed", "err", err)
		render.ChiErrMsg(w, r, http.StatusInternalServerError, "failed to encode message")
		return
	}

	if h.channel != nil && h.cfg.RabbitMQ.DeclareTopology {
		if err := h.channel.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
			h.logger.Errorw("enqueue_exchange_declare_failed", "exchange", ex, "err", err)
			render.ChiErrMsg(w, r, http.StatusBadGateway, fmt.Sprintf("rabbitmq exchange declare failed: %s", ex))
			return
		}
	}

	if err := h.publish(r.Context(), ex, routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    now,
		MessageId:    eventID,
		Body:         body,
	}); err != nil {
		h.logger.Errorw(
			"enqueue_publish_failed",
			"exchange", ex,
			"routing_key", routingKey,
			"event_id", eventID,
			"url", rawURL,
			"err", err,
		)
		render.ChiErrMsg(w, r, http.StatusBadGateway, "failed to publish message")
		return
	}

	h.logger.Infow("enqueue_published", "exchange", ex, "routing_key", routingKey, "event_id", eventID, "url", rawURL)
	render.ChiJSON(w, r, http.StatusOK, enqueueResponse{OK: true, EventID: eventID, ID: jobID})
}

// resolvable reports whether the resolver has anything to work with: a known
// platform, a short link, or an affiliate wrapper.
func resolvable(rawURL string) bool {
	return platform.Classify(rawURL) != platform.Unknown ||
		platform.NeedsResolution(rawURL) ||
		unwrap.HasWrapperParam(rawURL)
}

var _ router.Handler = (*Handler)(nil)
