package repository

import (
	"context"

	"github.com/imageforgelabs/imageforge/internal/tier/domain"
	"gorm.io/gorm"
)

type tierRepo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &tierRepo{db: db}
}

func (r *tierRepo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.Tier, error) {
	if db == nil {
		db = r.db
	}
	var tiers []domain.Tier
	if err := db.WithContext(ctx).Order("position ASC").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}
