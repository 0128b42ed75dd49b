package redemption

import "go.uber.org/fx"

// Module exposes the redemption service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
