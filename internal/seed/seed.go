package seed

import (
	"github.com/bwmarrin/snowflake"
	tierdomain "github.com/imageforgelabs/imageforge/internal/tier/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func intPtr(v int) *int { return &v }

// Tiers installs the default tier catalog when the table is empty.
// Price refs for paid tiers are placeholders to be updated with the real
// provider price IDs after they are created in the provider dashboard.
func Tiers(db *gorm.DB, genID *snowflake.Node, log *zap.Logger) error {
	var count int64
	if err := db.Model(&tierdomain.Tier{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info("tier catalog already seeded", zap.Int64("tiers", count))
		return nil
	}

	defaults := []struct {
		name     string
		priceRef string
		isFree   bool
		features tierdomain.Features
	}{
		{
			name:     "Free",
			priceRef: "free_tier",
			isFree:   true,
			features: tierdomain.Features{ImagesPerMonth: intPtr(3), Resolution: "standard"},
		},
		{
			name:     "Pro",
			priceRef: "price_pro_monthly",
			features: tierdomain.Features{ImagesPerMonth: intPtr(100), Resolution: "high", PrioritySupport: true},
		},
		{
			name:     "Unlimited",
			priceRef: "price_unlimited_monthly",
			features: tierdomain.Features{Resolution: "high", PrioritySupport: true, CustomModels: true},
		},
	}

	for i, d := range defaults {
		t := tierdomain.Tier{
			ID:        genID.Generate(),
			Name:      d.name,
			PriceRef:  d.priceRef,
			IsDefault: d.isFree,
			Position:  i,
		}
		if err := t.EncodeFeatures(d.features); err != nil {
			return err
		}
		if err := db.Create(&t).Error; err != nil {
			return err
		}
	}

	log.Info("tier catalog seeded", zap.Int("tiers", len(defaults)))
	return nil
}
