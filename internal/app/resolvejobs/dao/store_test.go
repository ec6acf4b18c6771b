package dao

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"affiliate-link-resolver/db/migrations"
	"affiliate-link-resolver/internal/platform"
	"affiliate-link-resolver/internal/resolver"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *JobStore {
	t.Helper()

	conn, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Up(context.Background(), migrations.SQLite, conn.DB))

	return NewJobStore(NewJobStoreParams{Conn: conn, Logger: zap.NewNop().Sugar()})
}

func TestJobStore_EnqueueThenComplete(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Enqueue(ctx, EnqueueInput{EventID: "urlsha256:abc", URL: "https://amzn.to/3xyz", CreatedBy: "enqueue"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusQueued, job.Status)
	require.False(t, job.Result.Valid)
	require.Equal(t, "enqueue", job.CreatedBy.String)

	res := resolver.Result{
		OriginalURL: "https://amzn.to/3xyz",
		FinalURL:    "https://www.amazon.com.br/dp/B0ABCDEFGH",
		Platform:    platform.Amazon,
		HopCount:    1,
		OK:          true,
		Identifier:  &platform.Identifier{Kind: platform.KindASIN, ASIN: "B0ABCDEFGH"},
	}
	doneID, err := store.Complete(ctx, CompleteInput{EventID: "urlsha256:abc", URL: "https://amzn.to/3xyz", CreatedBy: "rabbitmq", Result: res})
	require.NoError(t, err)
	require.Equal(t, id, doneID)

	job, err = store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusDone, job.Status)
	require.False(t, job.Error.Valid)

	var stored resolver.Result
	require.NoError(t, json.Unmarshal([]byte(job.Result.String), &stored))
	require.Equal(t, res, stored)
}

func TestJobStore_CompleteWithoutEnqueueInsertsFailed(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	store.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	ctx := context.Background()

	id, err := store.Complete(ctx, CompleteInput{
		EventID: "evt-1",
		URL:     "https://example.com/x",
		Result:  resolver.Result{OriginalURL: "https://example.com/x", Error: resolver.ErrKindUnsupportedPlatform},
	})
	require.NoError(t, err)

	job, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, job.Status)
	require.Equal(t, "unsupported_platform", job.Error.String)
	require.WithinDuration(t, store.now(), job.CreatedAt, time.Second)
}

func TestJobStore_GetMissing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestJobStore_ValidatesInput(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.Enqueue(context.Background(), EnqueueInput{URL: "https://amzn.to/x"})
	require.Error(t, err)
	_, err = store.Complete(context.Background(), CompleteInput{EventID: "e"})
	require.Error(t, err)
}
