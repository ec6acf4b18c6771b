package amazon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/pkg/render"
	"affiliate-link-resolver/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type itemsClient interface {
	GetItems(ctx context.Context, creds Credentials, marketplace, region, asin string) (json.RawMessage, error)
}

type Handler struct {
	defaults  config.AmazonConfig
	signer    *Signer
	client    itemsClient
	logger    *zap.SugaredLogger
	validator *validator.Validate
}

type NewHandlerParams struct {
	fx.In

	Cfg    *config.Config
	Signer *Signer
	Client *Client
	Logger *zap.SugaredLogger
}

func NewHandler(p NewHandlerParams) *Handler {
	return &Handler{
		defaults:  p.Cfg.Amazon,
		signer:    p.Signer,
		client:    p.Client,
		logger:    p.Logger,
		validator: validator.New(),
	}
}

func (h *Handler) RegisterRoute(r *chi.Mux) {
	r.Post("/amazon/sign", h.HandleSign)
	r.Post("/amazon/product", h.Handle)
}

type signRequest struct {
	AccessKey string `json:"access_key" validate:"required"`
	SecretKey string `json:"secret_key" validate:"required"`
	Host      string `json:"host" validate:"required,hostname"`
	Region    string `json:"region"`
	Path      string `json:"path"`
	Payload   string `json:"payload" validate:"required"`
}

type signResponse struct {
	Success bool              `json:"success"`
	Headers map[string]string `json:"headers"`
}

type productRequest struct {
	ASIN        string `json:"asin" validate:"required,len=10,alphanum"`
	AccessKey   string `json:"access_key"`
	SecretKey   string `json:"secret_key"`
	PartnerTag  string `json:"partner_tag"`
	Marketplace string `json:"marketplace"`
	Region      string `json:"region"`
}

type productResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type failure struct {
	Success bool `json:"success"`
	Error   any  `json:"error"`
}

// HandleSign serves POST /amazon/sign.
func (h *Handler) HandleSign(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.ChiJSON(w, r, http.StatusBadRequest, failure{Error: "invalid json body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		render.ChiJSON(w, r, http.StatusBadRequest, failure{Error: "missing required parameters"})
		return
	}

	headers, err := h.signer.SignGetItems(r.Context(), Credentials{
		AccessKey: req.AccessKey,
		SecretKey: req.SecretKey,
	}, req.Host, req.Region, req.Path, []byte(req.Payload))
	if err != nil {
		h.logger.Errorw("amazon_sign_failed", "host", req.Host, "err", err)
		render.ChiJSON(w, r, http.StatusInternalServerError, failure{Error: err.Error()})
		return
	}

	flat := make(map[string]string, len(headers))
	for k := range headers {
		flat[k] = headers.Get(k)
	}
	render.ChiJSON(w, r, http.StatusOK, signResponse{Success: true, Headers: flat})
}

// Handle serves POST /amazon/product. Credentials in the body override the
// configured ones field by field.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.ChiJSON(w, r, http.StatusBadRequest, failure{Error: "invalid json body"})
		return
	}
	req.ASIN = strings.ToUpper(strings.TrimSpace(req.ASIN))
	if err := h.validator.Struct(req); err != nil {
		render.ChiJSON(w, r, http.StatusBadRequest, failure{Error: "asin must be 10 alphanumeric characters"})
		return
	}

	creds := Credentials{
		AccessKey:  firstNonEmpty(req.AccessKey, h.defaults.AccessKey),
		SecretKey:  firstNonEmpty(req.SecretKey, h.defaults.SecretKey),
		PartnerTag: firstNonEmpty(req.PartnerTag, h.defaults.PartnerTag),
	}
	if creds.AccessKey == "" || creds.SecretKey == "" || creds.PartnerTag == "" {
		render.ChiJSON(w, r, http.StatusBadRequest, failure{Error: "missing required parameters"})
		return
	}

	data, err := h.client.GetItems(r.Context(), creds,
		firstNonEmpty(req.Marketplace, h.defaults.Marketplace, DefaultMarketplace),
		firstNonEmpty(req.Region, h.defaults.Region, DefaultRegion),
		req.ASIN,
	)
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			h.logger.Warnw("amazon_getitems_upstream_error", "asin", req.ASIN, "status", upstream.StatusCode)
			render.ChiJSON(w, r, http.StatusBadGateway, failure{Error: upstream.Body})
			return
		}
		h.logger.Errorw("amazon_getitems_failed", "asin", req.ASIN, "err", err)
		render.ChiJSON(w, r, http.StatusBadGateway, failure{Error: err.Error()})
		return
	}

	render.ChiJSON(w, r, http.StatusOK, productResponse{Success: true, Data: data})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

var _ router.Handler = (*Handler)(nil)
