package fx

import (
	"go.uber.org/fx"

	cachefx "affiliate-link-resolver/cache/fx"
	dbfx "affiliate-link-resolver/db/fx"
	resolverfx "affiliate-link-resolver/internal/resolver/fx"
)

// InfraOptions wires every optional backing store plus the resolver core.
// Each store disables itself when its settings are missing.
var InfraOptions = fx.Options(
	dbfx.Module,
	dbfx.SQLiteModule,
	cachefx.Module,
	resolverfx.Module,
)
