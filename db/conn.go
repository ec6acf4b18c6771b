package db

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Conn is the subset of *sqlx.DB the stores use. The disabled sqlite
// connection implements it too, so stores never nil-check.
type Conn interface {
	Exec(query string, args ...any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Queryx(query string, args ...any) (*sqlx.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	QueryRowx(query string, args ...any) *sqlx.Row
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Prepare(query string) (*sql.Stmt, error)
	Preparex(query string) (*sqlx.Stmt, error)
	Rebind(query string) string
}

var _ Conn = (*sqlx.DB)(nil)
