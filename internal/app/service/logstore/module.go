package logstore

import "go.uber.org/fx"

// Module exposes the logstore service via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
