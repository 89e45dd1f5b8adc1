package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CheckoutSession is the local record of a hosted checkout we created.
// It is the fallback channel for recovering which tier a provider
// subscription corresponds to, and an audit trail of checkout attempts.
type CheckoutSession struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID            string       `json:"user_id" gorm:"column:user_id;type:text;not null;index"`
	TierID            snowflake.ID `json:"tier_id" gorm:"not null"`
	Provider          string       `json:"provider" gorm:"type:text;not null"`
	ProviderSessionID string       `json:"provider_session_id" gorm:"column:provider_session_id;type:text;not null;uniqueIndex"`
	URL               string       `json:"url" gorm:"type:text"`
	CreatedAt         time.Time    `json:"created_at"`
}

func (CheckoutSession) TableName() string { return "checkout_sessions" }
