// Package stripeadapter implements the billing provider port on top of
// the Stripe API.
package stripeadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/imageforgelabs/imageforge/internal/billing/domain"
	"github.com/imageforgelabs/imageforge/internal/config"
	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

type Adapter struct {
	api           *client.API
	webhookSecret string
	log           *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) domain.Provider {
	api := &client.API{}
	api.Init(cfg.Stripe.SecretKey, nil)
	return &Adapter{
		api:           api,
		webhookSecret: cfg.Stripe.WebhookSecret,
		log:           log.Named("billing.stripe"),
	}
}

func (a *Adapter) FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := a.api.Customers.List(params)
	if iter.Next() {
		return mapCustomer(iter.Customer()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("list customers", err)
	}
	return nil, nil
}

func (a *Adapter) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*domain.Customer, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	cust, err := a.api.Customers.New(params)
	if err != nil {
		return nil, wrapErr("create customer", err)
	}
	return mapCustomer(cust), nil
}

func (a *Adapter) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := a.api.Customers.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, domain.ErrUnknownCustomer
		}
		return nil, wrapErr("get customer", err)
	}
	return mapCustomer(cust), nil
}

func (a *Adapter) CreateCheckoutSession(ctx context.Context, in domain.CheckoutParams) (*domain.ProviderCheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(in.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceRef),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := a.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, wrapErr("create checkout session", err)
	}
	return &domain.ProviderCheckoutSession{
		ID:       sess.ID,
		URL:      sess.URL,
		Metadata: sess.Metadata,
	}, nil
}

func (a *Adapter) FindSessionBySubscription(ctx context.Context, subscriptionID string) (*domain.ProviderCheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{Subscription: stripe.String(subscriptionID)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := a.api.CheckoutSessions.List(params)
	if iter.Next() {
		sess := iter.CheckoutSession()
		return &domain.ProviderCheckoutSession{
			ID:       sess.ID,
			URL:      sess.URL,
			Metadata: sess.Metadata,
		}, nil
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("list checkout sessions", err)
	}
	return nil, nil
}

func (a *Adapter) ParseEvent(payload []byte, signature string) (*domain.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, a.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		a.log.Warn("webhook signature verification failed", zap.Error(err))
		return nil, domain.ErrInvalidSignature
	}

	out := &domain.Event{
		ID:   event.ID,
		Type: string(event.Type),
	}

	switch event.Type {
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, domain.ErrMalformedEvent
		}
		customerID := ""
		if sub.Customer != nil {
			customerID = sub.Customer.ID
		}
		out.Subscription = &domain.ProviderSubscription{
			ID:                sub.ID,
			CustomerID:        customerID,
			Status:            string(sub.Status),
			CurrentPeriodEnd:  time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		}
	}
	return out, nil
}

func mapCustomer(c *stripe.Customer) *domain.Customer {
	return &domain.Customer{
		ID:       c.ID,
		Email:    c.Email,
		Metadata: c.Metadata,
	}
}

func wrapErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, op, err)
}
