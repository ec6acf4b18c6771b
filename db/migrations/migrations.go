// Package migrations embeds the goose migration sets: sqlite for the Turso
// resolve-job store and postgres for the shortener.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

type Set string

const (
	SQLite   Set = "sqlite"
	Postgres Set = "postgres"
)

// Dialect is the goose dialect the set is written for.
func (s Set) Dialect() (goose.Dialect, error) {
	switch s {
	case SQLite:
		return goose.DialectSQLite3, nil
	case Postgres:
		return goose.DialectPostgres, nil
	default:
		return "", fmt.Errorf("unknown migration set %q", s)
	}
}

// Sub returns the migration files of the set rooted at ".".
func (s Set) Sub() (fs.FS, error) {
	return fs.Sub(FS, string(s))
}

// NewProvider returns a goose provider for running the set against db.
func NewProvider(s Set, db *sql.DB) (*goose.Provider, error) {
	dialect, err := s.Dialect()
	if err != nil {
		return nil, err
	}
	fsys, err := s.Sub()
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(dialect, db, fsys)
}

// Up applies every pending migration of the set.
func Up(ctx context.Context, s Set, db *sql.DB) error {
	p, err := NewProvider(s, db)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("goose up %s: %w", s, err)
	}
	return nil
}
