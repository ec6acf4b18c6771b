package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"affiliate-link-resolver/internal/platform"
	"affiliate-link-resolver/internal/unwrap"
)

type Result struct {
	OriginalURL  string               `json:"original_url"`
	FinalURL     string               `json:"final_url"`
	Platform     platform.Platform    `json:"platform"`
	WasShortLink bool                 `json:"was_short_link"`
	HopCount     int                  `json:"hop_count"`
	Identifier   *platform.Identifier `json:"identifier"`
	OK           bool                 `json:"ok"`
	Error        ErrorKind            `json:"error,omitempty"`
}

// ResultCache stores finished results keyed by the trimmed input URL.
type ResultCache interface {
	Get(ctx context.Context, key string) (Result, bool)
	Set(ctx context.Context, key string, r Result)
}

// Observer receives one call per finished resolution.
type Observer interface {
	ObserveResolution(r Result, elapsed time.Duration)
}

type Service struct {
	engine   *Engine
	deadline time.Duration
	cache    ResultCache
	observer Observer
	logger   *zap.SugaredLogger
}

type ServiceOption func(*Service)

func WithCache(c ResultCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

func WithObserver(o Observer) ServiceOption {
	return func(s *Service) { s.observer = o }
}

// NewService bounds every call by deadline; zero means no extra bound.
func NewService(engine *Engine, deadline time.Duration, logger *zap.SugaredLogger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Service{engine: engine, deadline: deadline, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve runs the hop loop only.
func (s *Service) Resolve(ctx context.Context, rawURL string) (Outcome, error) {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return Outcome{}, fmt.Errorf("%w: url is required", ErrInput)
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	return s.engine.Resolve(ctx, withScheme(u)), nil
}

// withScheme assumes https for scheme-less input such as "amzn.to/3xYz".
func withScheme(u string) string {
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return u
	}
	if strings.Contains(u, "://") {
		return u
	}
	return "https://" + strings.TrimPrefix(u, "//")
}

// ResolveAndIdentify resolves rawURL, classifies the final URL and extracts
// its product identifier.
func (s *Service) ResolveAndIdentify(ctx context.Context, rawURL string) (Result, error) {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return Result{}, fmt.Errorf("%w: url is required", ErrInput)
	}

	if s.cache != nil {
		if r, ok := s.cache.Get(ctx, u); ok {
			return r, nil
		}
	}

	began := time.Now()
	out, err := s.Resolve(ctx, u)
	if err != nil {
		return Result{}, err
	}

	r := identify(u, out)
	if r.OK {
		s.logger.Infow("resolve_done",
			"url", u,
			"final_url", r.FinalURL,
			"platform", r.Platform,
			"hops", r.HopCount,
			"product_id", r.Identifier.Value(),
		)
	} else {
		s.logger.Warnw("resolve_not_identified",
			"url", u,
			"final_url", r.FinalURL,
			"platform", r.Platform,
			"hops", r.HopCount,
			"stop", out.Stop,
			"error", r.Error,
		)
	}

	if s.observer != nil {
		s.observer.ObserveResolution(r, time.Since(began))
	}
	// Network failures are transient; do not pin them in the cache.
	if s.cache != nil && r.Error != ErrKindNetwork && out.Stop != StopCancelled {
		s.cache.Set(ctx, u, r)
	}
	return r, nil
}

// ResolveFor is ResolveAndIdentify for callers that expect a specific platform.
func (s *Service) ResolveFor(ctx context.Context, want platform.Platform, rawURL string) (Result, error) {
	r, err := s.ResolveAndIdentify(ctx, rawURL)
	if err != nil {
		return Result{}, err
	}
	if r.Platform != platform.Unknown && r.Platform != want {
		r.OK = false
		r.Identifier = nil
		r.Error = ErrKindPlatformMismatch
	}
	return r, nil
}

func (s *Service) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.deadline <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.deadline)
}

func identify(original string, out Outcome) Result {
	r := Result{
		OriginalURL:  original,
		FinalURL:     out.FinalURL,
		Platform:     platform.Classify(out.FinalURL),
		WasShortLink: platform.NeedsResolution(original) || unwrap.HasWrapperParam(original),
		HopCount:     out.HopCount,
	}

	if out.Stop == StopNetwork && out.HopCount == 0 {
		r.Error = ErrKindNetwork
		return r
	}
	if r.Platform == platform.Unknown {
		r.Error = ErrKindUnsupportedPlatform
		return r
	}

	if id, ok := platform.Extract(r.Platform, r.FinalURL); ok {
		r.Identifier = &id
		r.OK = true
		return r
	}

	switch out.Stop {
	case StopExhausted, StopMaxHops, StopCycle, StopNetwork, StopCancelled:
		if platform.NeedsResolution(r.FinalURL) || unwrap.HasWrapperParam(r.FinalURL) {
			r.Error = ErrKindUnresolved
			return r
		}
	}
	r.Error = ErrKindExtractionMiss
	return r
}
