package webhook

import "go.uber.org/fx"

// Module exposes the webhook service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
