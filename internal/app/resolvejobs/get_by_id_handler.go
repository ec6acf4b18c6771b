package resolvejobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"affiliate-link-resolver/internal/app/resolvejobs/dao"
	"affiliate-link-resolver/internal/pkg/render"
	"affiliate-link-resolver/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type jobGetter interface {
	Get(ctx context.Context, id string) (dao.Job, error)
}

type GetByIDHandler struct {
	store         jobGetter
	sqliteEnabled bool
	logger        *zap.SugaredLogger
}

type NewGetByIDHandlerParams struct {
	fx.In

	Store    *dao.JobStore
	SQLiteDB *sqlx.DB `name:"sqlite" optional:"true"`
	Logger   *zap.SugaredLogger
}

func NewGetByIDHandler(p NewGetByIDHandlerParams) *GetByIDHandler {
	return &GetByIDHandler{
		store:         p.Store,
		sqliteEnabled: p.SQLiteDB != nil,
		logger:        p.Logger,
	}
}

func (h *GetByIDHandler) RegisterRoute(r *chi.Mux) {
	r.Get("/v1/resolve-jobs/{id}", h.Handle)
}

type getByIDResponse struct {
	ID        string          `json:"id"`
	EventID   string          `json:"event_id"`
	URL       string          `json:"url"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result"`
	Error     *string         `json:"error"`
	CreatedBy *string         `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (h *GetByIDHandler) Handle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		render.ChiErrMsg(w, r, http.StatusBadRequest, "missing id")
		return
	}
	if !h.sqliteEnabled {
		render.ChiErrMsg(w, r, http.StatusServiceUnavailable, "sqlite disabled")
		return
	}

	job, err := h.store.Get(r.Context(), id)
	if errors.Is(err, dao.ErrNotFound) {
		render.ChiErrMsg(w, r, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.logger.Errorw("resolve_job_get_by_id_failed", "id", id, "err", err)
		render.ChiErrMsg(w, r, http.StatusInternalServerError, "failed to fetch resolve job")
		return
	}

	resp := getByIDResponse{
		ID:        job.ID,
		EventID:   job.EventID,
		URL:       job.URL,
		Status:    job.Status,
		Result:    json.RawMessage("null"),
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Result.Valid && json.Valid([]byte(job.Result.String)) {
		resp.Result = json.RawMessage(job.Result.String)
	}
	if job.Error.Valid {
		resp.Error = &job.Error.String
	}
	if job.CreatedBy.Valid {
		resp.CreatedBy = &job.CreatedBy.String
	}

	render.ChiJSON(w, r, http.StatusOK, resp)
}

var _ router.Handler = (*GetByIDHandler)(nil)
