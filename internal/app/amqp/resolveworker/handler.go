package resolveworker

import (
	"context"
	"fmt"
	"strings"

	"affiliate-link-resolver/internal/app/resolvejobs"
	"affiliate-link-resolver/internal/app/resolvejobs/dao"
	"affiliate-link-resolver/internal/resolver"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type resolveService interface {
	ResolveAndIdentify(ctx context.Context, rawURL string) (resolver.Result, error)
}

type jobCompleter interface {
	Complete(ctx context.Context, in dao.CompleteInput) (string, error)
}

type ResolveHandler struct {
	service resolveService
	store   jobCompleter
	logger  *zap.SugaredLogger
}

type NewResolveHandlerParams struct {
	fx.In

	Service *resolver.Service
	Store   *dao.JobStore
	Logger  *zap.SugaredLogger
}

func NewResolveHandler(p NewResolveHandlerParams) *ResolveHandler {
	return &ResolveHandler{
		service: p.Service,
		store:   p.Store,
		logger:  p.Logger,
	}
}

// Handle resolves the URL and records the outcome. An unidentified link is a
// FAILED job, not a handler error; only infrastructure failures reject.
func (h *ResolveHandler) Handle(ctx context.Context, msg resolvejobs.RequestedEnvelope) error {
	rawURL := strings.TrimSpace(msg.Data.URL)
	if rawURL == "" {
		return fmt.Errorf("missing url")
	}
	if strings.TrimSpace(msg.EventID) == "" {
		return fmt.Errorf("missing event_id")
	}
	if name := strings.TrimSpace(msg.EventName); name != "" && name != resolvejobs.RequestedEventName {
		return fmt.Errorf("unexpected event_name: %s", name)
	}

	res, err := h.service.ResolveAndIdentify(ctx, rawURL)
	if err != nil {
		h.logger.Errorw("resolveworker_resolve_failed",
			"event_id", msg.EventID,
			"url", rawURL,
			"err", err,
		)
		return err
	}

	jobID, err := h.store.Complete(ctx, dao.CompleteInput{
		EventID:   msg.EventID,
		URL:       rawURL,
		CreatedBy: "rabbitmq",
		Result:    res,
	})
	if err != nil {
		h.logger.Errorw("resolveworker_persist_failed",
			"event_id", msg.EventID,
			"url", rawURL,
			"err", err,
		)
		return err
	}

	h.logger.Infow("resolveworker_finished",
		"event_id", msg.EventID,
		"job_id", jobID,
		"platform", res.Platform,
		"ok", res.OK,
		"error", res.Error,
	)
	return nil
}
