package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/db"
	"affiliate-link-resolver/db/migrations"
	appfx "affiliate-link-resolver/internal/app/fx"

	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// usage: migrate [sqlite|postgres] [up|down|status]
type migrateArgs struct {
	Set migrations.Set
	Cmd string
}

func parseArgs(args []string) (migrateArgs, error) {
	out := migrateArgs{Set: migrations.SQLite, Cmd: "up"}
	for _, a := range args {
		switch strings.ToLower(strings.TrimSpace(a)) {
		case "sqlite":
			out.Set = migrations.SQLite
		case "postgres":
			out.Set = migrations.Postgres
		case "up", "down", "status":
			out.Cmd = strings.ToLower(strings.TrimSpace(a))
		default:
			return migrateArgs{}, fmt.Errorf("unknown argument %q (usage: migrate [sqlite|postgres] [up|down|status])", a)
		}
	}
	return out, nil
}

func main() {
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		appfx.CoreAppOptions,
		fx.Supply(args),
		fx.Invoke(registerMigrateHook),
	)

	startCtx, startCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer startCancel()
	if err := app.Start(startCtx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

type migrateHookParams struct {
	fx.In

	Lc     fx.Lifecycle
	Cfg    *config.Config
	Logger *zap.SugaredLogger

	Args migrateArgs
}

func registerMigrateHook(p migrateHookParams) {
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			driver, dsn, err := target(p.Cfg, p.Args.Set)
			if err != nil {
				return err
			}

			conn, err := sqlx.Open(driver, dsn)
			if err != nil {
				return fmt.Errorf("open %s: %w", p.Args.Set, err)
			}
			defer func() {
				_ = conn.Close()
			}()

			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			defer pingCancel()
			if err := conn.PingContext(pingCtx); err != nil {
				return fmt.Errorf("ping %s: %w", p.Args.Set, err)
			}
			p.Logger.Infow("✅ migrate connection ok", append([]any{"set", p.Args.Set}, dsnLogFields(dsn)...)...)

			provider, err := migrations.NewProvider(p.Args.Set, conn.DB)
			if err != nil {
				return fmt.Errorf("goose provider: %w", err)
			}

			p.Logger.Infow("goose_run_start", "set", p.Args.Set, "cmd", p.Args.Cmd)
			switch p.Args.Cmd {
			case "up":
				results, err := provider.Up(ctx)
				if err != nil {
					return fmt.Errorf("goose up: %w", err)
				}
				for _, r := range results {
					p.Logger.Infow("goose_applied", "version", r.Source.Version, "path", r.Source.Path, "duration", r.Duration)
				}
			case "down":
				r, err := provider.Down(ctx)
				if err != nil {
					return fmt.Errorf("goose down: %w", err)
				}
				if r != nil {
					p.Logger.Infow("goose_rolled_back", "version", r.Source.Version, "path", r.Source.Path)
				}
			case "status":
				statuses, err := provider.Status(ctx)
				if err != nil {
					return fmt.Errorf("goose status: %w", err)
				}
				for _, s := range statuses {
					p.Logger.Infow("goose_status", "version", s.Source.Version, "path", s.Source.Path, "state", s.State, "applied_at", s.AppliedAt)
				}
			}
			p.Logger.Infow("goose_run_done", "set", p.Args.Set, "cmd", p.Args.Cmd)
			return nil
		},
	})
}

func target(cfg *config.Config, set migrations.Set) (driver, dsn string, err error) {
	switch set {
	case migrations.Postgres:
		if strings.TrimSpace(cfg.DBHost) == "" || strings.TrimSpace(cfg.DBName) == "" {
			return "", "", fmt.Errorf("postgres disabled: set DB_HOST and DB_NAME")
		}
		return "pgx", db.PostgresDSN(cfg), nil
	default:
		dsn := db.TursoDSN(cfg)
		if dsn == "" {
			return "", "", fmt.Errorf("sqlite disabled: set TURSO_SQLITE_DSN and TURSO_SQLITE_TOKEN")
		}
		return "libsql", dsn, nil
	}
}

func dsnLogFields(dsn string) []any {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return []any{"dsn", "unparseable"}
	}
	return []any{"scheme", u.Scheme, "host", u.Host}
}
