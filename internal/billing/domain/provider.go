package domain

import (
	"context"
	"errors"
	"time"
)

var ErrProviderUnavailable = errors.New("payment_provider_unavailable")

// Customer is the provider-side billing identity. Metadata carries the
// internal user id tag set at creation.
type Customer struct {
	ID       string
	Email    string
	Metadata map[string]string
}

// ProviderCheckoutSession is a hosted checkout session as seen at the
// provider. Metadata carries {user_id, tier_id}.
type ProviderCheckoutSession struct {
	ID       string
	URL      string
	Metadata map[string]string
}

type CheckoutParams struct {
	CustomerID string
	PriceRef   string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// ProviderSubscription is the subscription object carried by a lifecycle
// event.
type ProviderSubscription struct {
	ID                string
	CustomerID        string
	Status            string
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
}

// Event is a verified webhook event. Subscription is nil for event types
// that do not carry a subscription object.
type Event struct {
	ID           string
	Type         string
	Subscription *ProviderSubscription
}

// Provider is the narrow port to the external payment provider. The
// concrete implementation wraps the Stripe API.
type Provider interface {
	// FindCustomerByEmail returns nil when no customer exists.
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*ProviderCheckoutSession, error)
	// FindSessionBySubscription returns nil when no checkout session
	// created the given subscription.
	FindSessionBySubscription(ctx context.Context, subscriptionID string) (*ProviderCheckoutSession, error)
	// ParseEvent verifies the signature over the raw payload and decodes
	// the event. Returns ErrInvalidSignature on verification failure.
	ParseEvent(payload []byte, signature string) (*Event, error)
}
