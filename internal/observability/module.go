package observability

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(NewLogger),
)

func NewLogger(lc fx.Lifecycle) (*zap.Logger, error) {
	log, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() {
		_ = log.Sync()
	}))
	return log, nil
}
