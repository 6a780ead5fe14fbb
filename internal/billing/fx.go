package billing

import (
	"github.com/smallbiznis/subgate/internal/billing/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.provider",
	fx.Provide(stripe.NewClient),
)
