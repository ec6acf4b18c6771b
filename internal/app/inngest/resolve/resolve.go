package resolve

import (
	"context"
	"fmt"
	"strings"

	"affiliate-link-resolver/internal/app/resolvejobs"
	"affiliate-link-resolver/internal/app/resolvejobs/dao"
	"affiliate-link-resolver/internal/resolver"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const FunctionID = "resolve-url"

type resolveService interface {
	ResolveAndIdentify(ctx context.Context, rawURL string) (resolver.Result, error)
}

type jobCompleter interface {
	Complete(ctx context.Context, in dao.CompleteInput) (string, error)
}

type ResolveFunction struct {
	service resolveService
	store   jobCompleter
	logger  *zap.SugaredLogger
}

type NewResolveFunctionParams struct {
	fx.In

	Service *resolver.Service
	Store   *dao.JobStore
	Logger  *zap.SugaredLogger
}

func NewResolveFunction(p NewResolveFunctionParams) *ResolveFunction {
	return &ResolveFunction{
		service: p.Service,
		store:   p.Store,
		logger:  p.Logger,
	}
}

func (f *ResolveFunction) Handle(ctx context.Context, input inngestgo.Input[resolvejobs.RequestedEventData]) (any, error) {
	rawURL := strings.TrimSpace(input.Event.Data.URL)
	if rawURL == "" {
		return nil, inngestgo.NoRetryError(fmt.Errorf("missing url"))
	}

	eventID := ""
	if input.Event.ID != nil {
		eventID = strings.TrimSpace(*input.Event.ID)
	}
	if eventID == "" {
		eventID = resolvejobs.EventIDForURL(rawURL)
	}

	res, err := step.Run(ctx, "resolve", func(ctx context.Context) (resolver.Result, error) {
		return f.resolve(ctx, rawURL)
	})
	if err != nil {
		return nil, inngestgo.NoRetryError(err)
	}

	jobID, err := step.Run(ctx, "persist-result", func(ctx context.Context) (string, error) {
		return f.persist(ctx, eventID, rawURL, res)
	})
	if err != nil {
		return nil, inngestgo.NoRetryError(err)
	}

	f.logger.Infow("inngest_resolve_finished",
		"url", rawURL,
		"job_id", jobID,
		"platform", res.Platform,
		"ok", res.OK,
	)

	return map[string]any{
		"job_id": jobID,
		"result": res,
	}, nil
}

func (f *ResolveFunction) resolve(ctx context.Context, rawURL string) (resolver.Result, error) {
	f.logger.Infow("🏃🏻 inngest_step", "step", "resolve", "url", rawURL)

	res, err := f.service.ResolveAndIdentify(ctx, rawURL)
	if err != nil {
		f.logger.Errorw("❌ inngest_step_failed", "step", "resolve", "url", rawURL, "err", err)
		return resolver.Result{}, err
	}

	f.logger.Infow("✅ done resolve",
		"step", "resolve",
		"platform", res.Platform,
		"hop_count", res.HopCount,
		"error", res.Error,
	)
	return res, nil
}

func (f *ResolveFunction) persist(ctx context.Context, eventID, rawURL string, res resolver.Result) (string, error) {
	id, err := f.store.Complete(ctx, dao.CompleteInput{
		EventID:   eventID,
		URL:       rawURL,
		CreatedBy: "inngest",
		Result:    res,
	})
	if err != nil {
		f.logger.Errorw("❌ inngest_step_failed", "step", "persist-result", "event_id", eventID, "err", err)
		return "", err
	}

	f.logger.Infow("✅ done persist-result", "step", "persist-result", "job_id", id)
	return id, nil
}
