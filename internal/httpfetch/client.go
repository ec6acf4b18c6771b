// Package httpfetch performs the outbound GET/HEAD calls of the resolver with
// browser-like headers, bounded redirects and a capped body.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultTimeout        = 10 * time.Second
	DefaultMaxRedirects   = 10
	DefaultMaxBodySize    = 2 * 1024 * 1024
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	DefaultAcceptLanguage = "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7"
)

// Limiter is satisfied by *ratelimit.Limiter.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

type Config struct {
	Timeout        time.Duration
	MaxRedirects   int
	UserAgent      string
	AcceptLanguage string
	MaxBodySize    int64

	// Limiter is optional.
	Limiter Limiter
	// Transport defaults to an otelhttp-wrapped http.DefaultTransport.
	Transport http.RoundTripper
}

type Request struct {
	Method string
	URL    string
	// Jar scopes cookies to one hop chain. Nil sends and keeps no cookies.
	Jar http.CookieJar
}

// NewJar returns an empty cookie jar for a single resolution.
// Some marketplaces bounce cookie-less clients between the same two URLs.
func NewJar() http.CookieJar {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

type Response struct {
	// FinalURL is the URL of the last request in the redirect chain.
	FinalURL   string
	StatusCode int
	// Location is set when the chain was cut at MaxRedirects.
	Location string
	Body     string
}

// Client is safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	userAgent      string
	acceptLanguage string
	maxBodySize    int64
	limiter        Limiter
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRedirects < 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = DefaultAcceptLanguage
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Transport == nil {
		cfg.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	maxRedirects := cfg.MaxRedirects
	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:      cfg.UserAgent,
		acceptLanguage: cfg.AcceptLanguage,
		maxBodySize:    cfg.MaxBodySize,
		limiter:        cfg.Limiter,
	}
}

// Fetch never treats an HTTP status as an error; only transport failures are
// returned. HEAD responses carry no body.
func (c *Client) Fetch(ctx context.Context, r Request) (Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, r.URL); err != nil {
			return Response{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", DefaultAccept)
	req.Header.Set("Accept-Language", c.acceptLanguage)

	hc := c.httpClient
	if r.Jar != nil {
		scoped := *c.httpClient
		scoped.Jar = r.Jar
		hc = &scoped
	}

	resp, err := hc.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	out := Response{
		FinalURL:   r.URL,
		StatusCode: resp.StatusCode,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		out.FinalURL = resp.Request.URL.String()
	}
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		out.Location = resp.Header.Get("Location")
	}

	if method == http.MethodHead {
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return out, fmt.Errorf("reading response body: %w", err)
	}
	out.Body = string(body)
	return out, nil
}
