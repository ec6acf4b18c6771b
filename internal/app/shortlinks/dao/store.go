package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"affiliate-link-resolver/db"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound  = errors.New("short link not found")
	ErrCodeTaken = errors.New("short code already taken")
)

const uniqueViolation = "23505"

type Link struct {
	ID          int64     `db:"id"`
	Code        string    `db:"code"`
	OriginalURL string    `db:"original_url"`
	Marketplace string    `db:"marketplace"`
	UserID      string    `db:"user_id"`
	Clicks      int64     `db:"clicks"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}

type CreateInput struct {
	OriginalURL string
	Marketplace string
	UserID      string
	// CustomCode is stored as-is; when empty the code comes from Encode(id).
	CustomCode string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

type ShortLinkStore struct {
	db *sqlx.DB
}

func NewShortLinkStore(conn *sqlx.DB) *ShortLinkStore {
	return &ShortLinkStore{db: conn}
}

const selectLink = `
SELECT id, COALESCE(code, '') AS code, original_url, marketplace, user_id,
       clicks, is_active, created_at, expires_at
FROM short_links
`

func (s *ShortLinkStore) Create(ctx context.Context, in CreateInput, encode func(id int64) (string, error)) (Link, error) {
	return db.Tx(ctx, s.db, func(tx *sqlx.Tx) (Link, error) {
		if in.CustomCode != "" {
			var exists int
			err := tx.QueryRowxContext(ctx, tx.Rebind(`SELECT 1 FROM short_links WHERE code = ?`), in.CustomCode).Scan(&exists)
			if err == nil {
				return Link{}, ErrCodeTaken
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return Link{}, fmt.Errorf("check short code: %w", err)
			}
		}

		var code any
		if in.CustomCode != "" {
			code = in.CustomCode
		}

		var id int64
		err := tx.QueryRowxContext(ctx, tx.Rebind(`
INSERT INTO short_links (
  code,
  original_url,
  marketplace,
  user_id,
  created_at,
  expires_at
) VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`), code, in.OriginalURL, in.Marketplace, in.UserID, in.CreatedAt, in.ExpiresAt).Scan(&id)
		if err != nil {
			if isUniqueViolation(err) {
				return Link{}, ErrCodeTaken
			}
			return Link{}, fmt.Errorf("insert short_links: %w", err)
		}

		finalCode := in.CustomCode
		if finalCode == "" {
			finalCode, err = encode(id)
			if err != nil {
				return Link{}, fmt.Errorf("encode short code: %w", err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE short_links SET code = ? WHERE id = ?`), finalCode, id); err != nil {
				if isUniqueViolation(err) {
					return Link{}, ErrCodeTaken
				}
				return Link{}, fmt.Errorf("set short code: %w", err)
			}
		}

		return Link{
			ID:          id,
			Code:        finalCode,
			OriginalURL: in.OriginalURL,
			Marketplace: in.Marketplace,
			UserID:      in.UserID,
			IsActive:    true,
			CreatedAt:   in.CreatedAt,
			ExpiresAt:   in.ExpiresAt,
		}, nil
	})
}

func (s *ShortLinkStore) GetByCode(ctx context.Context, code string) (Link, error) {
	var l Link
	err := s.db.GetContext(ctx, &l, s.db.Rebind(selectLink+`WHERE code = ?`), code)
	if errors.Is(err, sql.ErrNoRows) {
		return Link{}, ErrNotFound
	}
	if err != nil {
		return Link{}, fmt.Errorf("get short link %q: %w", code, err)
	}
	return l, nil
}

func (s *ShortLinkStore) IncrementClicks(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE short_links SET clicks = clicks + 1 WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("increment clicks: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Codes streams every assigned code to fn.
func (s *ShortLinkStore) Codes(ctx context.Context, fn func(code string)) error {
	rows, err := s.db.QueryxContext(ctx, `SELECT code FROM short_links WHERE code IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("list short codes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return fmt.Errorf("scan short code: %w", err)
		}
		fn(code)
	}
	return rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
