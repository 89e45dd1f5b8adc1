package tier

import (
	"github.com/imageforgelabs/imageforge/internal/tier/repository"
	"github.com/imageforgelabs/imageforge/internal/tier/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tier",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
