package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// GenerationRecord is one successfully admitted image generation.
// Append-only; never mutated or deleted.
type GenerationRecord struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID    string       `json:"user_id" gorm:"column:user_id;type:text;not null;index:idx_generations_user_created"`
	Prompt    string       `json:"prompt" gorm:"type:text;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;index:idx_generations_user_created"`
}

func (GenerationRecord) TableName() string { return "image_generations" }

type Repository interface {
	Append(ctx context.Context, db *gorm.DB, rec *GenerationRecord) error
	// CountSince returns the number of records for userID with
	// created_at >= since, as of read time. Snapshot semantics, no lock.
	CountSince(ctx context.Context, db *gorm.DB, userID string, since time.Time) (int64, error)
}
