package dao

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"affiliate-link-resolver/db"
	"affiliate-link-resolver/internal/resolver"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	StatusQueued = "QUEUED"
	StatusDone   = "DONE"
	StatusFailed = "FAILED"
)

var ErrNotFound = errors.New("resolve job not found")

type Job struct {
	ID        string         `db:"id" json:"id"`
	EventID   string         `db:"event_id" json:"event_id"`
	URL       string         `db:"url" json:"url"`
	Status    string         `db:"status" json:"status"`
	Result    sql.NullString `db:"result" json:"result"`
	Error     sql.NullString `db:"error" json:"error"`
	CreatedBy sql.NullString `db:"created_by" json:"created_by"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

type JobStore struct {
	conn      db.Conn
	logger    *zap.SugaredLogger
	validator *validator.Validate
	now       func() time.Time
}

type NewJobStoreParams struct {
	fx.In

	Conn   db.Conn `name:"sqlite"`
	Logger *zap.SugaredLogger
}

func NewJobStore(p NewJobStoreParams) *JobStore {
	return &JobStore{
		conn:      p.Conn,
		logger:    p.Logger,
		validator: validator.New(),
		now:       time.Now,
	}
}

type EnqueueInput struct {
	EventID   string `validate:"required"`
	URL       string `validate:"required"`
	CreatedBy string
}

// Enqueue records a QUEUED job. A disabled sqlite connection is not an error;
// the returned id is empty in that case.
func (s *JobStore) Enqueue(ctx context.Context, in EnqueueInput) (string, error) {
	if err := s.validator.Struct(in); err != nil {
		return "", fmt.Errorf("validate enqueue input: %w", err)
	}

	id := uuid.NewString()
	now := s.now().UTC()

	q := s.conn.Rebind(`
INSERT INTO resolve_jobs (
  id,
  event_id,
  url,
  status,
  created_by,
  created_at,
  updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
`)
	if _, err := s.conn.ExecContext(ctx, q, id, in.EventID, in.URL, StatusQueued, nullString(in.CreatedBy), now, now); err != nil {
		if errors.Is(err, db.ErrSQLiteDisabled) {
			s.logger.Infow("turso_sqlite_disabled_skip_persist", "event_id", in.EventID)
			return "", nil
		}
		return "", fmt.Errorf("insert resolve_jobs: %w", err)
	}

	s.logger.Infow("resolve_job_queued", "id", id, "event_id", in.EventID)
	return id, nil
}

type CompleteInput struct {
	EventID   string `validate:"required"`
	URL       string `validate:"required"`
	CreatedBy string
	Result    resolver.Result
}

// Complete stores the outcome on the newest QUEUED job for the event, or on a
// fresh row when the event never went through Enqueue.
func (s *JobStore) Complete(ctx context.Context, in CompleteInput) (string, error) {
	if err := s.validator.Struct(in); err != nil {
		return "", fmt.Errorf("validate complete input: %w", err)
	}

	payload, err := json.Marshal(in.Result)
	if err != nil {
		return "", fmt.Errorf("marshal resolve result: %w", err)
	}
	status, errText := statusFor(in.Result)
	now := s.now().UTC()

	var id string
	err = s.conn.QueryRowxContext(ctx, s.conn.Rebind(`
SELECT id FROM resolve_jobs
WHERE event_id = ? AND status = ?
ORDER BY created_at DESC
LIMIT 1
`), in.EventID, StatusQueued).Scan(&id)

	switch {
	case errors.Is(err, db.ErrSQLiteDisabled):
		s.logger.Infow("turso_sqlite_disabled_skip_persist", "event_id", in.EventID)
		return "", nil
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		_, err = s.conn.ExecContext(ctx, s.conn.Rebind(`
INSERT INTO resolve_jobs (
  id,
  event_id,
  url,
  status,
  result,
  error,
  created_by,
  created_at,
  updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`), id, in.EventID, in.URL, status, string(payload), nullString(errText), nullString(in.CreatedBy), now, now)
		if err != nil {
			return "", fmt.Errorf("insert resolve_jobs: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("find queued resolve job: %w", err)
	default:
		_, err = s.conn.ExecContext(ctx, s.conn.Rebind(`
UPDATE resolve_jobs
SET status = ?, result = ?, error = ?, updated_at = ?
WHERE id = ?
`), status, string(payload), nullString(errText), now, id)
		if err != nil {
			return "", fmt.Errorf("update resolve_jobs: %w", err)
		}
	}

	s.logger.Infow("resolve_job_completed", "id", id, "event_id", in.EventID, "status", status)
	return id, nil
}

func (s *JobStore) Get(ctx context.Context, id string) (Job, error) {
	var j Job
	err := s.conn.GetContext(ctx, &j, s.conn.Rebind(`
SELECT id, event_id, url, status, result, error, created_by, created_at, updated_at
FROM resolve_jobs
WHERE id = ?
`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("get resolve job %q: %w", id, err)
	}
	return j, nil
}

func statusFor(res resolver.Result) (status, errText string) {
	if res.OK {
		return StatusDone, ""
	}
	if res.Error == "" {
		return StatusFailed, "not identified"
	}
	return StatusFailed, string(res.Error)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
