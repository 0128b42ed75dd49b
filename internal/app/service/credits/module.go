package credits

import "go.uber.org/fx"

// Module exposes the credits ledger service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
