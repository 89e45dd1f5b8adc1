package repository

import (
	"context"
	"time"

	"github.com/imageforgelabs/imageforge/internal/usage/domain"
	"gorm.io/gorm"
)

type usageRepo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &usageRepo{db: db}
}

func (r *usageRepo) Append(ctx context.Context, db *gorm.DB, rec *domain.GenerationRecord) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Create(rec).Error
}

func (r *usageRepo) CountSince(ctx context.Context, db *gorm.DB, userID string, since time.Time) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.GenerationRecord{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
