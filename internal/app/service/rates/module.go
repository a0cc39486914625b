package rates

import "go.uber.org/fx"

// Module exposes the rates service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Provide(func(s *Service) Converter { return s }),
)
