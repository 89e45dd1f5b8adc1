package generation

import (
	"github.com/imageforgelabs/imageforge/internal/generation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("generation",
	fx.Provide(service.NewService),
)
