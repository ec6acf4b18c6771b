package fx

import (
	"affiliate-link-resolver/db"

	"go.uber.org/fx"
)

var SQLiteModule = fx.Module(
	"sqlx-sqlite-db",
	fx.Provide(db.NewSQLXSQLiteDB),
)
