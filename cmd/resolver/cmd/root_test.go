package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"affiliate-link-resolver/internal/platform"
	"affiliate-link-resolver/internal/resolver"
)

type stubService struct {
	want platform.Platform
	res  resolver.Result
}

func (s *stubService) ResolveAndIdentify(_ context.Context, rawURL string) (resolver.Result, error) {
	s.res.OriginalURL = rawURL
	return s.res, nil
}

func (s *stubService) ResolveFor(_ context.Context, want platform.Platform, rawURL string) (resolver.Result, error) {
	s.want = want
	s.res.OriginalURL = rawURL
	return s.res, nil
}

func run(t *testing.T, svc resolveService, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd(func() (resolveService, error) {
		if svc == nil {
			return nil, errors.New("no service")
		}
		return svc, nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClassify(t *testing.T) {
	out, err := run(t, nil, "classify", "--url", "https://amzn.to/3xYz")
	require.NoError(t, err)

	var got classifyOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, platform.Amazon, got.Platform)
	require.True(t, got.ShortLink)
	require.True(t, got.NeedsResolution)
}

func TestExtract(t *testing.T) {
	out, err := run(t, nil, "extract", "--url", "https://www.amazon.com.br/Echo-Dot/dp/B09B8VGCR8?tag=x-20")
	require.NoError(t, err)

	var got extractOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, platform.Amazon, got.Platform)
	require.NotNil(t, got.Identifier)
	require.Equal(t, "B09B8VGCR8", got.Identifier.ASIN)

	_, err = run(t, nil, "extract", "--url", "https://example.com/nothing")
	require.Error(t, err)

	_, err = run(t, nil, "extract", "--url", "https://example.com/x", "--platform", "ebay")
	require.ErrorContains(t, err, "unsupported platform")
}

func TestResolve(t *testing.T) {
	svc := &stubService{res: resolver.Result{
		FinalURL:   "https://www.amazon.com.br/dp/B09B8VGCR8",
		Platform:   platform.Amazon,
		Identifier: &platform.Identifier{Kind: platform.KindASIN, ASIN: "B09B8VGCR8"},
		OK:         true,
	}}

	out, err := run(t, svc, "resolve", "--url", "https://amzn.to/3xYz")
	require.NoError(t, err)
	require.Contains(t, out, `"asin": "B09B8VGCR8"`)

	_, err = run(t, svc, "resolve", "--url", "https://amzn.to/3xYz", "--platform", "amazon")
	require.NoError(t, err)
	require.Equal(t, platform.Amazon, svc.want)
}

func TestResolve_FailedResultIsAnError(t *testing.T) {
	svc := &stubService{res: resolver.Result{OK: false, Error: resolver.ErrKindUnsupportedPlatform}}

	out, err := run(t, svc, "resolve", "--url", "https://example.com")
	require.Error(t, err)
	require.Contains(t, out, `"ok": false`)
}

func TestMissingURLIsUsageError(t *testing.T) {
	for _, sub := range []string{"resolve", "classify", "extract"} {
		_, err := run(t, nil, sub)
		require.ErrorIs(t, err, errUsage, sub)
	}
}
