package migration

import (
	billingdomain "github.com/imageforgelabs/imageforge/internal/billing/domain"
	subscriptiondomain "github.com/imageforgelabs/imageforge/internal/subscription/domain"
	tierdomain "github.com/imageforgelabs/imageforge/internal/tier/domain"
	usagedomain "github.com/imageforgelabs/imageforge/internal/usage/domain"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the core tables. Schema migration beyond
// this is out of scope; the store is treated as a simple relational
// collaborator.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&tierdomain.Tier{},
		&subscriptiondomain.UserSubscription{},
		&usagedomain.GenerationRecord{},
		&billingdomain.CheckoutSession{},
	)
}
