package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
	StatusIncomplete Status = "incomplete"
)

// StatusFromProvider maps an external provider subscription status onto the
// local state machine. Unrecognized states land on incomplete so the user
// falls back to the free tier rather than keeping paid access.
func StatusFromProvider(s string) Status {
	switch Status(s) {
	case StatusActive, StatusPastDue, StatusCanceled, StatusIncomplete:
		return Status(s)
	case "trialing":
		return StatusActive
	default:
		return StatusIncomplete
	}
}

// UserSubscription is the durable local mirror of a user's external
// subscription. At most one row per user; written only by the webhook
// reconciler, read by the entitlement resolver.
type UserSubscription struct {
	UserID                 string       `json:"user_id" gorm:"primaryKey;column:user_id;type:text"`
	TierID                 snowflake.ID `json:"tier_id" gorm:"not null"`
	ExternalSubscriptionID string       `json:"external_subscription_id" gorm:"column:external_subscription_id;type:text;not null;index"`
	Status                 Status       `json:"status" gorm:"type:text;not null"`
	CurrentPeriodEnd       time.Time    `json:"current_period_end" gorm:"not null"`
	CancelAtPeriodEnd      bool         `json:"cancel_at_period_end" gorm:"not null;default:false"`
	CreatedAt              time.Time    `json:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at"`
}

func (UserSubscription) TableName() string { return "user_subscriptions" }
