package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"affiliate-link-resolver/internal/pkg/render"
	"affiliate-link-resolver/internal/platform"
	"affiliate-link-resolver/internal/resolver"
	"affiliate-link-resolver/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type resolveService interface {
	ResolveAndIdentify(ctx context.Context, rawURL string) (resolver.Result, error)
	ResolveFor(ctx context.Context, want platform.Platform, rawURL string) (resolver.Result, error)
}

type Handler struct {
	service   resolveService
	logger    *zap.SugaredLogger
	validator *validator.Validate
}

type NewHandlerParams struct {
	fx.In

	Service *resolver.Service
	Logger  *zap.SugaredLogger
}

func NewHandler(p NewHandlerParams) *Handler {
	return &Handler{
		service:   p.Service,
		logger:    p.Logger,
		validator: validator.New(),
	}
}

func (h *Handler) RegisterRoute(r *chi.Mux) {
	r.Post("/resolve", h.Handle)
	r.Post("/resolve/{platform}", h.HandlePlatform)
}

type resolveRequest struct {
	URL string `json:"url" validate:"required"`
}

type resolveResponse struct {
	resolver.Result
	ProductID string `json:"product_id,omitempty"`
}

// Handle serves POST /resolve.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.service.ResolveAndIdentify(r.Context(), rawURL)
	h.respond(w, r, res, err)
}

// HandlePlatform serves POST /resolve/{platform}.
func (h *Handler) HandlePlatform(w http.ResponseWriter, r *http.Request) {
	want, err := platform.Parse(chi.URLParam(r, "platform"))
	if err != nil || want == platform.Unknown {
		render.ChiFail(w, r, http.StatusNotFound, string(resolver.ErrKindUnsupportedPlatform))
		return
	}

	rawURL, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.service.ResolveFor(r.Context(), want, rawURL)
	h.respond(w, r, res, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.ChiFail(w, r, http.StatusBadRequest, "invalid_json")
		return "", false
	}
	req.URL = strings.TrimSpace(req.URL)
	if err := h.validator.Struct(req); err != nil {
		render.ChiFail(w, r, http.StatusBadRequest, "url_required")
		return "", false
	}
	return req.URL, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, res resolver.Result, err error) {
	if err != nil {
		if errors.Is(err, resolver.ErrInput) {
			render.ChiFail(w, r, http.StatusBadRequest, "url_required")
			return
		}
		h.logger.Errorw("resolve_failed", "err", err)
		render.ChiFail(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	resp := resolveResponse{Result: res}
	if res.Identifier != nil {
		resp.ProductID = res.Identifier.Value()
	}
	// A miss is still a well-formed answer; the caller reads ok/error.
	render.ChiJSON(w, r, http.StatusOK, resp)
}

var _ router.Handler = (*Handler)(nil)
