package clock

import (
	"context"
	"time"

	"go.uber.org/fx"
)

type Clock interface {
	Now(ctx context.Context) time.Time
}

type SystemClock struct{}

func (SystemClock) Now(context.Context) time.Time {
	return time.Now().UTC()
}

// Fixed returns a clock pinned to t. Intended for tests.
func Fixed(t time.Time) Clock {
	return fixedClock{t: t}
}

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now(context.Context) time.Time { return c.t }

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
