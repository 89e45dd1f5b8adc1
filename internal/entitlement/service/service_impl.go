package service

import (
	"context"
	"errors"
	"time"

	"github.com/imageforgelabs/imageforge/internal/clock"
	"github.com/imageforgelabs/imageforge/internal/config"
	"github.com/imageforgelabs/imageforge/internal/entitlement/domain"
	subscriptiondomain "github.com/imageforgelabs/imageforge/internal/subscription/domain"
	tierdomain "github.com/imageforgelabs/imageforge/internal/tier/domain"
	usagedomain "github.com/imageforgelabs/imageforge/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Cfg       config.Config
	Catalog   tierdomain.Catalog
	SubRepo   subscriptiondomain.Repository
	UsageRepo usagedomain.Repository
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	loc       *time.Location
	catalog   tierdomain.Catalog
	subRepo   subscriptiondomain.Repository
	usageRepo usagedomain.Repository
}

func NewService(p ServiceParam) (domain.Service, error) {
	loc, err := p.Cfg.Billing.Location()
	if err != nil {
		return nil, err
	}
	return &service{
		db:        p.DB,
		log:       p.Log.Named("entitlement.service"),
		clock:     p.Clock,
		loc:       loc,
		catalog:   p.Catalog,
		subRepo:   p.SubRepo,
		usageRepo: p.UsageRepo,
	}, nil
}

// PeriodStart returns the first instant of the calendar month containing
// now, in the reference timezone.
func PeriodStart(now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
}

func (s *service) Resolve(ctx context.Context, userID string) (domain.Entitlement, error) {
	sub, err := s.subRepo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return domain.Entitlement{}, err
	}

	var (
		t         tierdomain.Tier
		periodEnd *time.Time
	)
	switch {
	case sub == nil || sub.Status != subscriptiondomain.StatusActive:
		// No row, or a subscription that is past_due / canceled /
		// incomplete: the user is entitled to the free tier only.
		t, err = s.catalog.FreeTier(ctx)
		if err != nil {
			return domain.Entitlement{}, err
		}
	default:
		t, err = s.catalog.GetByID(ctx, sub.TierID)
		if err != nil {
			if errors.Is(err, tierdomain.ErrTierNotFound) {
				s.log.Error("subscription references unknown tier",
					zap.String("user_id", userID),
					zap.String("tier_id", sub.TierID.String()))
				return domain.Entitlement{}, domain.ErrDataIntegrity
			}
			return domain.Entitlement{}, err
		}
		end := sub.CurrentPeriodEnd
		periodEnd = &end
	}

	periodStart := PeriodStart(s.clock.Now(ctx), s.loc)
	used, err := s.usageRepo.CountSince(ctx, s.db, userID, periodStart)
	if err != nil {
		return domain.Entitlement{}, err
	}

	ent := domain.Entitlement{
		Tier:      t,
		PeriodEnd: periodEnd,
		Used:      used,
	}
	if !t.Features.Unbounded() {
		remaining := int64(*t.Features.ImagesPerMonth) - used
		if remaining < 0 {
			remaining = 0
		}
		ent.Remaining = &remaining
	}
	return ent, nil
}
