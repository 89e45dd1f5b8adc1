package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrFreeTierCheckout   = errors.New("free_tier_not_purchasable")
	ErrMissingEmail       = errors.New("missing_customer_email")
	ErrInvalidSignature   = errors.New("invalid_webhook_signature")
	ErrMalformedEvent     = errors.New("malformed_webhook_event")
	ErrUnknownCustomer    = errors.New("unknown_external_customer")
	ErrMissingTierContext = errors.New("missing_tier_context")
)

const ProviderStripe = "stripe"

// MetadataKeyUserID and MetadataKeyTierID are the metadata fields that
// link provider objects back to internal identities.
const (
	MetadataKeyUserID = "user_id"
	MetadataKeyTierID = "tier_id"
)

type CreateSessionRequest struct {
	UserID string
	Email  string
	TierID string
}

type CreateSessionResponse struct {
	URL string `json:"url"`
}

type CheckoutService interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (CreateSessionResponse, error)
}

// WebhookService reconciles provider subscription lifecycle events into
// local subscription state.
type WebhookService interface {
	Ingest(ctx context.Context, payload []byte, signature string) error
}

type CheckoutSessionRepository interface {
	Insert(ctx context.Context, db *gorm.DB, session *CheckoutSession) error
	// FindByProviderSessionID returns nil when no local row matches.
	FindByProviderSessionID(ctx context.Context, db *gorm.DB, provider, providerSessionID string) (*CheckoutSession, error)
}
