package fx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewMux_CORSPreflight_AllowsLocalhost5173_InDev(t *testing.T) {
	cfg := &config.Config{}
	cfg.ENV = config.Dev

	r := NewMux(muxParams{
		Cfg:      cfg,
		Logger:   zap.NewNop().Sugar(),
		Handlers: nil,
	})

	req := httptest.NewRequest(http.MethodOptions, "/resolve", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	require.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestNewMux_CORSUsesConfiguredOriginsInProduction(t *testing.T) {
	cfg := &config.Config{ENV: config.Production, CORSAllowedOrigins: []string{"https://envia.link"}}

	r := NewMux(muxParams{Cfg: cfg, Logger: zap.NewNop().Sugar()})

	req := httptest.NewRequest(http.MethodOptions, "/shorten", nil)
	req.Header.Set("Origin", "https://envia.link")
	req.Header.Set("Access-Control-Request-Method", "POST")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "https://envia.link", w.Header().Get("Access-Control-Allow-Origin"))
}

type pingHandler struct{}

func (pingHandler) RegisterRoute(r *chi.Mux) { r.Get("/ping", pingHandler{}.Handle) }
func (pingHandler) Handle(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestNewMux_RegistersHandlersAndMetrics(t *testing.T) {
	r := NewMux(muxParams{
		Cfg:      &config.Config{ENV: config.Test},
		Logger:   zap.NewNop().Sugar(),
		Handlers: []router.Handler{pingHandler{}},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "http_requests_total"))
}
