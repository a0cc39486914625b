package settings

import "go.uber.org/fx"

// Module exposes the settings service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
