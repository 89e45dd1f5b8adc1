package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// FindByUserID returns nil when the user has no subscription row.
	FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*UserSubscription, error)
	// Upsert inserts or replaces the row keyed by user_id. Replaying the
	// same state is a no-op beyond the updated_at touch.
	Upsert(ctx context.Context, db *gorm.DB, sub *UserSubscription) error
}
