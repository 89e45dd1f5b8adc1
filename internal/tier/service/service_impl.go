package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/imageforgelabs/imageforge/internal/tier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

// service holds an in-memory snapshot of the catalog. Tiers are low-churn
// and immutable during a billing period; the snapshot is loaded and
// validated once and served without further store reads.
type service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository

	once    sync.Once
	loadErr error

	ordered    []domain.Tier
	byID       map[snowflake.ID]domain.Tier
	byPriceRef map[string]domain.Tier
	freeTier   domain.Tier
	hasFree    bool
}

func NewService(p ServiceParam) domain.Catalog {
	return &service{
		db:   p.DB,
		log:  p.Log.Named("tier.catalog"),
		repo: p.Repo,
	}
}

func (s *service) load(ctx context.Context) error {
	s.once.Do(func() {
		tiers, err := s.repo.FindAll(ctx, s.db)
		if err != nil {
			s.loadErr = err
			return
		}

		s.byID = make(map[snowflake.ID]domain.Tier, len(tiers))
		s.byPriceRef = make(map[string]domain.Tier, len(tiers))
		for i := range tiers {
			t := tiers[i]
			if err := t.ParseFeatures(); err != nil {
				s.loadErr = fmt.Errorf("%w: tier %s: %v", domain.ErrInvalidFeatures, t.Name, err)
				return
			}
			s.ordered = append(s.ordered, t)
			s.byID[t.ID] = t
			s.byPriceRef[t.PriceRef] = t
			if t.IsDefault {
				s.freeTier = t
				s.hasFree = true
			}
		}

		if !s.hasFree {
			s.loadErr = domain.ErrNoDefaultTier
			return
		}
		s.log.Info("tier catalog loaded", zap.Int("tiers", len(tiers)))
	})
	return s.loadErr
}

func (s *service) List(ctx context.Context) ([]domain.Tier, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Tier, len(s.ordered))
	copy(out, s.ordered)
	return out, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (domain.Tier, error) {
	if err := s.load(ctx); err != nil {
		return domain.Tier{}, err
	}
	t, ok := s.byID[id]
	if !ok {
		return domain.Tier{}, domain.ErrTierNotFound
	}
	return t, nil
}

func (s *service) GetByPriceRef(ctx context.Context, ref string) (domain.Tier, error) {
	if err := s.load(ctx); err != nil {
		return domain.Tier{}, err
	}
	t, ok := s.byPriceRef[strings.TrimSpace(ref)]
	if !ok {
		return domain.Tier{}, domain.ErrTierNotFound
	}
	return t, nil
}

func (s *service) FreeTier(ctx context.Context) (domain.Tier, error) {
	if err := s.load(ctx); err != nil {
		return domain.Tier{}, err
	}
	return s.freeTier, nil
}

// VerifyCatalog forces a catalog load at startup so a missing or invalid
// free tier fails the deploy, not the first request.
func VerifyCatalog(catalog domain.Catalog) error {
	_, err := catalog.FreeTier(context.Background())
	return err
}
