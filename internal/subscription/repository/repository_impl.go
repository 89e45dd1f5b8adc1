package repository

import (
	"context"
	"errors"

	"github.com/imageforgelabs/imageforge/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionRepo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &subscriptionRepo{db: db}
}

func (r *subscriptionRepo) FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*domain.UserSubscription, error) {
	if db == nil {
		db = r.db
	}
	var sub domain.UserSubscription
	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepo) Upsert(ctx context.Context, db *gorm.DB, sub *domain.UserSubscription) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"tier_id",
			"external_subscription_id",
			"status",
			"current_period_end",
			"cancel_at_period_end",
			"updated_at",
		}),
	}).Create(sub).Error
}
