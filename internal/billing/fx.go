package billing

import (
	"github.com/imageforgelabs/imageforge/internal/billing/repository"
	"github.com/imageforgelabs/imageforge/internal/billing/service"
	"github.com/imageforgelabs/imageforge/internal/billing/stripeadapter"
	"github.com/imageforgelabs/imageforge/internal/billing/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("billing",
	fx.Provide(
		stripeadapter.New,
		repository.NewCheckoutSessionRepository,
		service.NewCheckoutService,
		webhook.NewService,
	),
)
