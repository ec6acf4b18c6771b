package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"affiliate-link-resolver/internal/httpfetch"
)

// fakeFetcher answers from a table keyed by method and URL.
type fakeFetcher struct {
	mu    sync.Mutex
	resp  map[string]httpfetch.Response
	fail  map[string]bool
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{resp: map[string]httpfetch.Response{}, fail: map[string]bool{}}
}

func (f *fakeFetcher) on(method, u string, r httpfetch.Response) *fakeFetcher {
	f.resp[method+" "+u] = r
	return f
}

func (f *fakeFetcher) failOn(method, u string) *fakeFetcher {
	f.fail[method+" "+u] = true
	return f
}

func (f *fakeFetcher) Fetch(ctx context.Context, r httpfetch.Request) (httpfetch.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := r.Method + " " + r.URL
	f.calls = append(f.calls, key)
	if err := ctx.Err(); err != nil {
		return httpfetch.Response{}, err
	}
	if f.fail[key] {
		return httpfetch.Response{}, errors.New("dial tcp: connection refused")
	}
	if resp, ok := f.resp[key]; ok {
		return resp, nil
	}
	return httpfetch.Response{FinalURL: r.URL, StatusCode: http.StatusNotFound}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestEngine(f Fetcher) *Engine {
	return NewEngine(f, 5, zap.NewNop().Sugar())
}

func refreshTo(u string) string {
	return fmt.Sprintf(`<html><head><meta http-equiv="refresh" content="0;url=%s"></head></html>`, u)
}

func TestEngine_ShortLinkRedirectsToProduct(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher().on(http.MethodGet, "https://amzn.to/3xYz", httpfetch.Response{
		FinalURL:   "https://www.amazon.com.br/dp/B08N5WRWNW?tag=abc-20",
		StatusCode: http.StatusOK,
	})

	out := newTestEngine(f).Resolve(context.Background(), "https://amzn.to/3xYz")
	require.Equal(t, "https://www.amazon.com.br/dp/B08N5WRWNW?tag=abc-20", out.FinalURL)
	require.Equal(t, 1, out.HopCount)
	require.Equal(t, StopIdentified, out.Stop)
	require.Equal(t, []string{"https://amzn.to/3xYz", "https://www.amazon.com.br/dp/B08N5WRWNW?tag=abc-20"}, out.Visited)
}

func TestEngine_WrapperParamNeedsNoNetwork(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	in := "https://www.magazinevoce.com.br/go?go=" + url.QueryEscape("https://www.amazon.com.br/dp/B08N5WRWNW")

	out := newTestEngine(f).Resolve(context.Background(), in)
	require.Equal(t, "https://www.amazon.com.br/dp/B08N5WRWNW", out.FinalURL)
	require.Equal(t, 1, out.HopCount)
	require.Equal(t, StopIdentified, out.Stop)
	require.Zero(t, f.callCount())
}

func TestEngine_CanonicalURLIsReturnedUnchanged(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	out := newTestEngine(f).Resolve(context.Background(), "  https://www.amazon.com.br/dp/B08N5WRWNW  ")
	require.Equal(t, "https://www.amazon.com.br/dp/B08N5WRWNW", out.FinalURL)
	require.Zero(t, out.HopCount)
	require.Equal(t, StopCanonical, out.Stop)
	require.Zero(t, f.callCount())
}

func TestEngine_StopsAtMaxHops(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	for i := 0; i < 20; i++ {
		cur := fmt.Sprintf("https://amzn.to/r%d", i)
		f.on(http.MethodGet, cur, httpfetch.Response{
			FinalURL:   cur,
			StatusCode: http.StatusOK,
			Body:       refreshTo(fmt.Sprintf("https://amzn.to/r%d", i+1)),
		})
	}

	out := newTestEngine(f).Resolve(context.Background(), "https://amzn.to/r0")
	require.Equal(t, StopMaxHops, out.Stop)
	require.Equal(t, 5, out.HopCount)
	require.Equal(t, "https://amzn.to/r5", out.FinalURL)
	require.Equal(t, 5, f.callCount())
}

func TestEngine_DetectsCycle(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher().
		on(http.MethodGet, "https://amzn.to/a", httpfetch.Response{FinalURL: "https://amzn.to/a", Body: refreshTo("https://amzn.to/b")}).
		on(http.MethodGet, "https://amzn.to/b", httpfetch.Response{FinalURL: "https://amzn.to/b", Body: refreshTo("https://amzn.to/a")})

	out := newTestEngine(f).Resolve(context.Background(), "https://amzn.to/a")
	require.Equal(t, StopCycle, out.Stop)
	require.Equal(t, 1, out.HopCount)
	require.Equal(t, "https://amzn.to/b", out.FinalURL)
}

func TestEngine_HeadFallbackAfterGetFailure(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher().
		failOn(http.MethodGet, "https://shp.ee/abc").
		on(http.MethodHead, "https://shp.ee/abc", httpfetch.Response{FinalURL: "https://shopee.com.br/product/123456/7891011"})

	out := newTestEngine(f).Resolve(context.Background(), "https://shp.ee/abc")
	require.Equal(t, "https://shopee.com.br/product/123456/7891011", out.FinalURL)
	require.Equal(t, 1, out.HopCount)
	require.Equal(t, StopIdentified, out.Stop)
}

func TestEngine_NetworkFailureKeepsBestURL(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher().
		failOn(http.MethodGet, "https://shp.ee/abc").
		failOn(http.MethodHead, "https://shp.ee/abc")

	out := newTestEngine(f).Resolve(context.Background(), "https://shp.ee/abc")
	require.Equal(t, "https://shp.ee/abc", out.FinalURL)
	require.Zero(t, out.HopCount)
	require.Equal(t, StopNetwork, out.Stop)
	require.Equal(t, []string{"GET https://shp.ee/abc", "HEAD https://shp.ee/abc"}, f.calls)
}

func TestEngine_CancelledContextReturnsBestURL(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newFakeFetcher()
	out := newTestEngine(f).Resolve(ctx, "https://amzn.to/3xYz")
	require.Equal(t, StopCancelled, out.Stop)
	require.Equal(t, "https://amzn.to/3xYz", out.FinalURL)
	require.Zero(t, f.callCount())
}

func TestEngine_ResolvesRelativeLocation(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher().on(http.MethodGet, "https://amzn.to/3xYz", httpfetch.Response{
		FinalURL:   "https://www.amazon.com.br/gp/r.html",
		StatusCode: http.StatusFound,
		Location:   "/dp/B08N5WRWNW",
	})

	out := newTestEngine(f).Resolve(context.Background(), "https://amzn.to/3xYz")
	require.Equal(t, "https://www.amazon.com.br/dp/B08N5WRWNW", out.FinalURL)
	require.Equal(t, StopIdentified, out.Stop)
}

func TestEngine_ScrapesCanonicalFromLandingPage(t *testing.T) {
	t.Parallel()

	body := `<html><head><link rel="canonical" href="https://produto.mercadolivre.com.br/MLB-1234567890-fone"></head></html>`
	f := newFakeFetcher().
		on(http.MethodGet, "https://meli.co/2abc", httpfetch.Response{FinalURL: "https://meli.co/2abc", Body: body})

	out := newTestEngine(f).Resolve(context.Background(), "https://meli.co/2abc")
	require.Equal(t, "https://produto.mercadolivre.com.br/MLB-1234567890-fone", out.FinalURL)
	require.Equal(t, 1, out.HopCount)
	require.Equal(t, StopIdentified, out.Stop)
}

// rewriteTransport sends every request to srv while leaving the request URL
// that the client sees untouched.
type rewriteTransport struct{ target *url.URL }

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = rt.target.Scheme
	out.URL.Host = rt.target.Host
	out.Host = req.URL.Host

	resp, err := http.DefaultTransport.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

func TestEngine_WithHTTPFetcher(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Host {
		case "amzn.to":
			http.Redirect(w, r, "https://www.amazon.com.br/Echo-Dot/dp/B09B8V1LZ3?ref_=x", http.StatusMovedPermanently)
		case "www.amazon.com.br":
			fmt.Fprint(w, "<html>product</html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	fetcher := httpfetch.New(httpfetch.Config{
		MaxRedirects: 10,
		Transport:    rewriteTransport{target: target},
	})

	out := newTestEngine(fetcher).Resolve(context.Background(), "https://amzn.to/4bcD")
	require.Equal(t, "https://www.amazon.com.br/Echo-Dot/dp/B09B8V1LZ3?ref_=x", out.FinalURL)
	require.Equal(t, 1, out.HopCount)
	require.Equal(t, StopIdentified, out.Stop)
}

func TestEngine_ResolutionsDoNotShareCookies(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var shortLinkCookies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Host {
		case "amzn.to":
			mu.Lock()
			shortLinkCookies = append(shortLinkCookies, r.Header.Get("Cookie"))
			mu.Unlock()
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "user-a", Path: "/"})
			http.Redirect(w, r, "https://www.amazon.com.br/dp/B09B8V1LZ3", http.StatusFound)
		default:
			fmt.Fprint(w, "<html>product</html>")
		}
	}))
	defer srv.Close()

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	engine := newTestEngine(httpfetch.New(httpfetch.Config{Transport: rewriteTransport{target: target}}))

	first := engine.Resolve(context.Background(), "https://amzn.to/userA")
	second := engine.Resolve(context.Background(), "https://amzn.to/userB")
	require.Equal(t, StopIdentified, first.Stop)
	require.Equal(t, StopIdentified, second.Stop)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"", ""}, shortLinkCookies)
}
