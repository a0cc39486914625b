package backup

import "go.uber.org/fx"

// Module exposes the backup service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
