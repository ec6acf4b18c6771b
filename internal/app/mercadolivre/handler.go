package mercadolivre

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"affiliate-link-resolver/internal/pkg/meli"
	"affiliate-link-resolver/internal/pkg/render"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var itemIDPattern = regexp.MustCompile(`^(?i)MLB-?(\d{6,14})$`)

type itemFetcher interface {
	Configured() bool
	GetItem(ctx context.Context, id string) (json.RawMessage, error)
}

type ItemHandler struct {
	client itemFetcher
	logger *zap.SugaredLogger
}

type NewItemHandlerParams struct {
	fx.In

	Client *meli.Client
	Logger *zap.SugaredLogger
}

func NewItemHandler(p NewItemHandlerParams) *ItemHandler {
	return &ItemHandler{client: p.Client, logger: p.Logger}
}

func (h *ItemHandler) RegisterRoute(r *chi.Mux) {
	r.Get("/v1/mercadolivre/items/{id}", h.Handle)
}

type itemResponse struct {
	Success bool            `json:"success"`
	ID      string          `json:"id"`
	Item    json.RawMessage `json:"item"`
}

// NormalizeItemID accepts "MLB123", "mlb-123" or a bare number and returns "MLB123".
func NormalizeItemID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw != "" && raw[0] >= '0' && raw[0] <= '9' {
		raw = "MLB" + raw
	}
	m := itemIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return "MLB" + m[1], true
}

func (h *ItemHandler) Handle(w http.ResponseWriter, r *http.Request) {
	id, ok := NormalizeItemID(chi.URLParam(r, "id"))
	if !ok {
		render.ChiErrMsg(w, r, http.StatusBadRequest, "invalid mercadolivre item id")
		return
	}
	if !h.client.Configured() {
		render.ChiErrMsg(w, r, http.StatusServiceUnavailable, "mercadolivre credentials not configured")
		return
	}

	item, err := h.client.GetItem(r.Context(), id)
	if err != nil {
		var apiErr *meli.APIError
		switch {
		case errors.Is(err, meli.ErrNotConfigured):
			render.ChiErrMsg(w, r, http.StatusServiceUnavailable, "mercadolivre credentials not configured")
		case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
			render.ChiErrMsg(w, r, http.StatusNotFound, "item not found")
		default:
			h.logger.Warnw("mercadolivre_item_failed", "id", id, "err", err)
			render.ChiErrMsg(w, r, http.StatusBadGateway, "mercadolivre upstream error")
		}
		return
	}

	render.ChiJSON(w, r, http.StatusOK, itemResponse{Success: true, ID: id, Item: item})
}
