package health

import (
	"net/http"
	"time"

	"affiliate-link-resolver/cache"
	"affiliate-link-resolver/internal/app/shortlinks"
	pkginngest "affiliate-link-resolver/internal/pkg/inngest"
	"affiliate-link-resolver/internal/pkg/render"

	"github.com/go-chi/chi/v5"
	"github.com/inngest/inngestgo"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
)

const Version = "2.0.0"

const (
	statusActive        = "active"
	statusNotConfigured = "not_configured"
)

type Handler struct {
	shortenerEnabled bool
	cacheMode        string
	jobs             string
	now              func() time.Time
}

type NewHandlerParams struct {
	fx.In

	Shortener *shortlinks.Service `optional:"true"`
	Cache     *cache.ResultCache  `optional:"true"`
	Channel   *amqp.Channel       `optional:"true"`
	Inngest   inngestgo.Client    `optional:"true"`
}

func NewHandler(p NewHandlerParams) *Handler {
	jobs := statusNotConfigured
	switch {
	case p.Channel != nil && p.Inngest != nil && pkginngest.Enabled(p.Inngest):
		jobs = "rabbitmq+inngest"
	case p.Channel != nil:
		jobs = "rabbitmq"
	case p.Inngest != nil && pkginngest.Enabled(p.Inngest):
		jobs = "inngest"
	}

	return &Handler{
		shortenerEnabled: p.Shortener.Enabled(),
		cacheMode:        p.Cache.Mode(),
		jobs:             jobs,
		now:              time.Now,
	}
}

func (h *Handler) RegisterRoute(r *chi.Mux) {
	r.Get("/health", h.Handle)
}

type services struct {
	Resolver  string `json:"resolver"`
	Shortener string `json:"shortener"`
	Cache     string `json:"cache"`
	Jobs      string `json:"jobs"`
}

type response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  services  `json:"services"`
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	shortener := statusNotConfigured
	if h.shortenerEnabled {
		shortener = statusActive
	}

	render.ChiJSON(w, r, http.StatusOK, response{
		Status:    "ok",
		Timestamp: h.now().UTC(),
		Version:   Version,
		Services: services{
			Resolver:  statusActive,
			Shortener: shortener,
			Cache:     h.cacheMode,
			Jobs:      h.jobs,
		},
	})
}
