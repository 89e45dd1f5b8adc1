package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Features is the typed feature set of a tier. It is parsed and validated
// once at catalog load, never re-parsed per request.
type Features struct {
	// ImagesPerMonth is the monthly generation quota. nil means unbounded.
	ImagesPerMonth  *int   `json:"images_per_month"`
	Resolution      string `json:"resolution"`
	PrioritySupport bool   `json:"priority_support"`
	CustomModels    bool   `json:"custom_models"`
}

func (f Features) Unbounded() bool { return f.ImagesPerMonth == nil }

type Tier struct {
	ID   snowflake.ID `json:"id" gorm:"primaryKey"`
	Name string       `json:"name" gorm:"type:text;not null"`
	// PriceRef is the external payment provider price identifier.
	PriceRef    string         `json:"price_ref" gorm:"column:price_ref;type:text;not null;uniqueIndex"`
	FeaturesRaw datatypes.JSON `json:"-" gorm:"column:features;not null"`
	// IsDefault marks the implicit free tier users fall back to.
	IsDefault bool      `json:"is_default" gorm:"not null;default:false"`
	Position  int       `json:"position" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Features is populated by the catalog at load time.
	Features Features `json:"features" gorm:"-"`
}

func (Tier) TableName() string { return "subscription_tiers" }

func (t *Tier) ParseFeatures() error {
	var f Features
	if err := json.Unmarshal(t.FeaturesRaw, &f); err != nil {
		return err
	}
	t.Features = f
	return nil
}

// EncodeFeatures sets the stored JSON column from the typed value.
// Used by seeding and tests.
func (t *Tier) EncodeFeatures(f Features) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	t.FeaturesRaw = datatypes.JSON(raw)
	t.Features = f
	return nil
}
