package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrTierNotFound    = errors.New("tier_not_found")
	ErrNoDefaultTier   = errors.New("default_tier_missing")
	ErrInvalidFeatures = errors.New("invalid_tier_features")
)

// Catalog is the read-only tier catalog. Implementations load and validate
// the full catalog once; lookups never touch the store afterwards.
type Catalog interface {
	List(ctx context.Context) ([]Tier, error)
	GetByID(ctx context.Context, id snowflake.ID) (Tier, error)
	GetByPriceRef(ctx context.Context, ref string) (Tier, error)
	FreeTier(ctx context.Context) (Tier, error)
}

type Repository interface {
	FindAll(ctx context.Context, db *gorm.DB) ([]Tier, error)
}
