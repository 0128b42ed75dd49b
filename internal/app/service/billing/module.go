package billing

import (
	"go.uber.org/fx"

	"github.com/fstopworks/darkroom/internal/platform/stripeapi"
)

// Module exposes the billing service via Fx, bound to the real Stripe
// client.
var Module = fx.Options(
	fx.Provide(func(c *stripeapi.Client) StripeAPI { return c }),
	fx.Provide(NewService),
)
