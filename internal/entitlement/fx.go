package entitlement

import (
	"github.com/imageforgelabs/imageforge/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement",
	fx.Provide(service.NewService),
)
