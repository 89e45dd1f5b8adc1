package domain

import (
	"context"
	"errors"
	"time"

	tierdomain "github.com/imageforgelabs/imageforge/internal/tier/domain"
)

// ErrDataIntegrity signals a subscription whose tier_id does not resolve
// to a catalog tier.
var ErrDataIntegrity = errors.New("tier_reference_broken")

// Entitlement is a user's resolved tier and remaining quota at a point
// in time.
type Entitlement struct {
	Tier      tierdomain.Tier
	PeriodEnd *time.Time
	Used      int64
	// Remaining is nil on unbounded tiers; otherwise floored at 0.
	Remaining *int64
}

func (e Entitlement) Unbounded() bool { return e.Remaining == nil }

type Service interface {
	Resolve(ctx context.Context, userID string) (Entitlement, error)
}
