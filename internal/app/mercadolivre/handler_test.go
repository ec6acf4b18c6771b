package mercadolivre

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"affiliate-link-resolver/internal/pkg/meli"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubFetcher struct {
	configured bool
	gotID      string
	item       json.RawMessage
	err        error
}

func (s *stubFetcher) Configured() bool { return s.configured }

func (s *stubFetcher) GetItem(_ context.Context, id string) (json.RawMessage, error) {
	s.gotID = id
	return s.item, s.err
}

func serve(f itemFetcher, path string) *httptest.ResponseRecorder {
	h := &ItemHandler{client: f, logger: zap.NewNop().Sugar()}
	r := chi.NewRouter()
	h.RegisterRoute(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNormalizeItemID(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"MLB1234567890":  "MLB1234567890",
		"mlb-1234567890": "MLB1234567890",
		"1234567890":     "MLB1234567890",
	}
	for in, want := range cases {
		got, ok := NormalizeItemID(in)
		require.True(t, ok, in)
		require.Equal(t, want, got)
	}

	for _, bad := range []string{"", "MLA1234567890", "MLB12", "MLB12345abc"} {
		_, ok := NormalizeItemID(bad)
		require.False(t, ok, bad)
	}
}

func TestItemHandler(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		f := &stubFetcher{configured: true, item: json.RawMessage(`{"title":"Fone"}`)}
		rec := serve(f, "/v1/mercadolivre/items/mlb-1234567890")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "MLB1234567890", f.gotID)
		require.JSONEq(t, `{"success":true,"id":"MLB1234567890","item":{"title":"Fone"}}`, rec.Body.String())
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := serve(&stubFetcher{configured: true}, "/v1/mercadolivre/items/abc")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not configured", func(t *testing.T) {
		rec := serve(&stubFetcher{}, "/v1/mercadolivre/items/MLB1234567890")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("upstream 404", func(t *testing.T) {
		f := &stubFetcher{configured: true, err: &meli.APIError{StatusCode: http.StatusNotFound}}
		rec := serve(f, "/v1/mercadolivre/items/MLB1234567890")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("upstream failure", func(t *testing.T) {
		f := &stubFetcher{configured: true, err: &meli.APIError{StatusCode: http.StatusInternalServerError}}
		rec := serve(f, "/v1/mercadolivre/items/MLB1234567890")
		require.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
