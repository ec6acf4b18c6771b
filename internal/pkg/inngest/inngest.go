package inngest

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/pkg/render"

	"github.com/inngest/inngestgo"
)

const DefaultServePath = "/api/inngest"

var ErrDisabled = errors.New("inngest disabled")

// NewInngestClient returns a client that refuses every call when
// INNGEST_APP_ID is unset, so the rest of the graph can depend on it freely.
func NewInngestClient(cfg *config.Config) (inngestgo.Client, error) {
	appID := strings.TrimSpace(cfg.Inngest.AppID)
	if appID == "" {
		return disabledClient{reason: "inngest disabled: set INNGEST_APP_ID to enable"}, nil
	}

	dev := cfg.Inngest.Dev == "1"
	opts := inngestgo.ClientOpts{
		AppID: appID,
		Dev:   inngestgo.BoolPtr(dev),
	}
	if signingKey := strings.TrimSpace(cfg.Inngest.SigningKey); signingKey != "" {
		opts.SigningKey = &signingKey
	}

	c, err := inngestgo.NewClient(opts)
	if err != nil {
		return nil, err
	}

	if u := ServeURL(cfg); u != nil {
		c.SetURL(u)
	}
	return c, nil
}

// ServeURL is the public URL Inngest calls back on, or nil when
// INNGEST_SERVE_HOST is unset.
func ServeURL(cfg *config.Config) *url.URL {
	host := strings.TrimSpace(cfg.Inngest.ServeHost)
	if host == "" {
		return nil
	}
	scheme := "https"
	if cfg.Inngest.Dev == "1" {
		scheme = "http"
	}
	return &url.URL{Scheme: scheme, Host: host, Path: ServePath(cfg)}
}

func ServePath(cfg *config.Config) string {
	if p := strings.TrimSpace(cfg.Inngest.ServePath); p != "" {
		return p
	}
	return DefaultServePath
}

func Enabled(c inngestgo.Client) bool {
	_, disabled := c.(disabledClient)
	return c != nil && !disabled
}

type disabledClient struct {
	reason string
}

func (c disabledClient) AppID() string { return "" }

func (c disabledClient) Send(context.Context, any) (string, error) {
	return "", ErrDisabled
}

func (c disabledClient) SendMany(context.Context, []any) ([]string, error) {
	return nil, ErrDisabled
}

func (c disabledClient) Options() inngestgo.ClientOpts { return inngestgo.ClientOpts{} }

func (c disabledClient) Serve() http.Handler { return c.ServeWithOpts(inngestgo.ServeOpts{}) }

func (c disabledClient) ServeWithOpts(inngestgo.ServeOpts) http.Handler {
	msg := strings.TrimSpace(c.reason)
	if msg == "" {
		msg = ErrDisabled.Error()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.ChiErrMsg(w, r, http.StatusNotImplemented, msg)
	})
}

func (c disabledClient) SetOptions(inngestgo.ClientOpts) error { return ErrDisabled }
func (c disabledClient) SetURL(*url.URL)                       {}
