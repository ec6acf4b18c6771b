package shortlinks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/app/shortlinks/dao"
	"affiliate-link-resolver/internal/pkg/auth"
	"affiliate-link-resolver/internal/pkg/render"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type shortener interface {
	Shorten(ctx context.Context, in ShortenInput) (dao.Link, error)
	Stats(ctx context.Context, code string) (dao.Link, error)
	Visit(ctx context.Context, code string) (dao.Link, error)
}

type Handler struct {
	service     shortener
	verifier    auth.Verifier
	shortDomain string
	logger      *zap.SugaredLogger
}

type NewHandlerParams struct {
	fx.In

	Cfg      *config.Config
	Service  *Service
	Verifier *auth.HS256 `optional:"true"`
	Logger   *zap.SugaredLogger
}

func NewHandler(p NewHandlerParams) *Handler {
	h := &Handler{
		service:     p.Service,
		shortDomain: p.Cfg.Shortener.ShortDomain,
		logger:      p.Logger,
	}
	if p.Verifier != nil {
		h.verifier = p.Verifier
	}
	return h
}

func (h *Handler) RegisterRoute(r *chi.Mux) {
	if h.verifier != nil {
		r.With(auth.Middleware(h.verifier)).Post("/shorten", h.Handle)
	} else {
		r.Post("/shorten", h.Handle)
	}
	r.Get("/stats/{code}", h.HandleStats)
	r.Get("/s/{code}", h.HandleRedirect)
}

type shortenRequest struct {
	URL         string `json:"url"`
	UserID      string `json:"user_id"`
	CustomCode  string `json:"custom_code"`
	ExpiresDays int    `json:"expires_days"`
}

type shortenResponse struct {
	Success     bool      `json:"success"`
	ShortURL    string    `json:"short_url"`
	Code        string    `json:"code"`
	Marketplace string    `json:"marketplace"`
	OriginalURL string    `json:"original_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type statsResponse struct {
	Success     bool      `json:"success"`
	Code        string    `json:"code"`
	OriginalURL string    `json:"original_url"`
	Marketplace string    `json:"marketplace"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	IsActive    bool      `json:"is_active"`
}

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handle serves POST /shorten.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	if claims, ok := auth.FromContext(r.Context()); ok {
		req.UserID = claims.UserID
	}

	link, err := h.service.Shorten(r.Context(), ShortenInput{
		URL:         req.URL,
		UserID:      req.UserID,
		CustomCode:  req.CustomCode,
		ExpiresDays: req.ExpiresDays,
	})
	if err != nil {
		h.failErr(w, r, err)
		return
	}

	render.ChiJSON(w, r, http.StatusOK, shortenResponse{
		Success:     true,
		ShortURL:    "https://" + h.shortDomain + "/" + link.Code,
		Code:        link.Code,
		Marketplace: link.Marketplace,
		OriginalURL: link.OriginalURL,
		ExpiresAt:   link.ExpiresAt,
		CreatedAt:   link.CreatedAt,
	})
}

// HandleStats serves GET /stats/{code}.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.Stats(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.failErr(w, r, err)
		return
	}

	render.ChiJSON(w, r, http.StatusOK, statsResponse{
		Success:     true,
		Code:        link.Code,
		OriginalURL: link.OriginalURL,
		Marketplace: link.Marketplace,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
		IsActive:    link.IsActive,
	})
}

// HandleRedirect serves GET /s/{code}.
func (h *Handler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.Visit(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.failErr(w, r, err)
		return
	}
	http.Redirect(w, r, link.OriginalURL, http.StatusFound)
}

func (h *Handler) failErr(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *InvalidInputError
	switch {
	case errors.As(err, &invalid):
		h.fail(w, r, http.StatusBadRequest, invalid.Msg)
	case errors.Is(err, ErrDisabled):
		h.fail(w, r, http.StatusServiceUnavailable, ErrDisabled.Error())
	case errors.Is(err, ErrNotFound):
		h.fail(w, r, http.StatusNotFound, "link not found")
	case errors.Is(err, ErrCodeTaken):
		h.fail(w, r, http.StatusConflict, "custom code already in use")
	case errors.Is(err, ErrExpired):
		h.fail(w, r, http.StatusGone, "link expired")
	default:
		h.logger.Errorw("shortlinks_request_failed", "path", r.URL.Path, "err", err)
		h.fail(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.ChiJSON(w, r, status, failure{Success: false, Error: msg})
}
