package subscription

import (
	"github.com/imageforgelabs/imageforge/internal/subscription/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription",
	fx.Provide(repository.NewRepository),
)
