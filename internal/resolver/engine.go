// Package resolver follows affiliate and short links to the product page they
// point at and identifies the product.
package resolver

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"affiliate-link-resolver/internal/htmlscan"
	"affiliate-link-resolver/internal/httpfetch"
	"affiliate-link-resolver/internal/platform"
	"affiliate-link-resolver/internal/unwrap"
)

const DefaultMaxHops = 5

// Fetcher is satisfied by *httpfetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, r httpfetch.Request) (httpfetch.Response, error)
}

// StopReason records why the hop loop ended.
type StopReason string

const (
	StopCanonical  StopReason = "canonical"
	StopIdentified StopReason = "identified"
	StopExhausted  StopReason = "exhausted"
	StopMaxHops    StopReason = "max_hops"
	StopCycle      StopReason = "cycle"
	StopNetwork    StopReason = "network_error"
	StopCancelled  StopReason = "cancelled"
)

type Outcome struct {
	FinalURL string     `json:"final_url"`
	HopCount int        `json:"hop_count"`
	Visited  []string   `json:"visited,omitempty"`
	Stop     StopReason `json:"stop"`
}

// Engine runs the hop loop. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	fetcher Fetcher
	maxHops int
	logger  *zap.SugaredLogger
}

func NewEngine(fetcher Fetcher, maxHops int, logger *zap.SugaredLogger) *Engine {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{fetcher: fetcher, maxHops: maxHops, logger: logger}
}

// hopState is owned by a single Resolve call.
type hopState struct {
	start   string
	current string
	hops    int
	visited map[string]struct{}
	order   []string
	jar     http.CookieJar
}

func (s *hopState) outcome(stop StopReason) Outcome {
	return Outcome{FinalURL: s.current, HopCount: s.hops, Visited: s.order, Stop: stop}
}

// advance moves to next, resolved against the current URL. It reports false
// when next was already visited.
func (s *hopState) advance(next string) bool {
	next = absolute(s.current, next)
	if _, seen := s.visited[next]; seen {
		return false
	}
	s.visited[next] = struct{}{}
	s.order = append(s.order, next)
	s.current = next
	s.hops++
	return true
}

// Resolve returns the best URL reached. It never fails: network errors,
// cancellation and exhausted budgets all end in an Outcome.
func (e *Engine) Resolve(ctx context.Context, rawURL string) Outcome {
	start := strings.TrimSpace(rawURL)
	st := &hopState{
		start:   start,
		current: start,
		visited: map[string]struct{}{start: {}},
		order:   []string{start},
		jar:     httpfetch.NewJar(),
	}

	if !platform.NeedsResolution(start) && !unwrap.HasWrapperParam(start) {
		return st.outcome(StopCanonical)
	}

	for {
		if st.hops >= e.maxHops {
			e.logger.Debugw("resolve_max_hops", "url", start, "final_url", st.current, "hops", st.hops)
			return st.outcome(StopMaxHops)
		}
		if ctx.Err() != nil {
			return st.outcome(StopCancelled)
		}

		if stop, done := e.hop(ctx, st); done {
			return st.outcome(stop)
		}
	}
}

// hop performs one step of the loop and reports whether the loop is over.
func (e *Engine) hop(ctx context.Context, st *hopState) (StopReason, bool) {
	cur := st.current

	if target, ok := unwrap.ExtractGoParam(cur); ok {
		e.logger.Debugw("resolve_hop_unwrap", "from", cur, "to", target, "hop", st.hops+1)
		if !st.advance(target) {
			return StopCycle, true
		}
		return "", false
	}

	if st.hops > 0 && !platform.NeedsResolution(cur) && identifiable(cur) {
		return StopIdentified, true
	}

	resp, err := e.fetcher.Fetch(ctx, httpfetch.Request{Method: http.MethodGet, URL: cur, Jar: st.jar})
	if err != nil {
		if ctx.Err() != nil {
			return StopCancelled, true
		}
		e.logger.Debugw("resolve_hop_fetch_failed", "url", cur, "method", http.MethodGet, "err", err)
		return e.headFallback(ctx, st)
	}

	post := cur
	if resp.FinalURL != "" {
		post = absolute(cur, resp.FinalURL)
	}
	if resp.Location != "" {
		post = absolute(post, resp.Location)
	}
	changed := post != cur

	if changed && !platform.NeedsResolution(post) && identifiable(post) {
		e.logger.Debugw("resolve_hop_fetch", "from", cur, "to", post, "hop", st.hops+1, "status", resp.StatusCode)
		if !st.advance(post) {
			return StopCycle, true
		}
		return StopIdentified, true
	}

	if target, ok := unwrap.ExtractGoParam(post); ok {
		e.logger.Debugw("resolve_hop_unwrap", "from", post, "to", target, "hop", st.hops+1)
		if !st.advance(target) {
			return StopCycle, true
		}
		return "", false
	}

	if platform.NeedsResolution(post) && resp.Body != "" {
		hint := platform.Classify(post)
		if hint == platform.Unknown {
			hint = platform.Classify(st.start)
		}
		if found, ok := htmlscan.Scan(resp.Body, hint); ok {
			found = absolute(post, found)
			if found != post {
				e.logger.Debugw("resolve_hop_scrape", "from", post, "to", found, "hop", st.hops+1)
				if !st.advance(found) {
					return StopCycle, true
				}
				return "", false
			}
		}
	}

	// Nothing left to try. A redirect the transport followed is still the
	// best URL we know.
	if changed && !st.advance(post) {
		return StopCycle, true
	}
	return StopExhausted, true
}

func (e *Engine) headFallback(ctx context.Context, st *hopState) (StopReason, bool) {
	cur := st.current

	resp, err := e.fetcher.Fetch(ctx, httpfetch.Request{Method: http.MethodHead, URL: cur, Jar: st.jar})
	if err != nil {
		if ctx.Err() != nil {
			return StopCancelled, true
		}
		e.logger.Debugw("resolve_hop_fetch_failed", "url", cur, "method", http.MethodHead, "err", err)
		return StopNetwork, true
	}

	post := cur
	if resp.FinalURL != "" {
		post = absolute(cur, resp.FinalURL)
	}
	if resp.Location != "" {
		post = absolute(post, resp.Location)
	}
	if post == cur {
		return StopNetwork, true
	}

	e.logger.Debugw("resolve_hop_head", "from", cur, "to", post, "hop", st.hops+1, "status", resp.StatusCode)
	if !st.advance(post) {
		return StopCycle, true
	}
	return "", false
}

func identifiable(rawURL string) bool {
	_, ok := platform.Extract(platform.Classify(rawURL), rawURL)
	return ok
}

// absolute resolves ref against base. Unparseable input is returned as is.
func absolute(base, ref string) string {
	ref = strings.TrimSpace(ref)
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
