package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/imageforgelabs/imageforge/internal/billing/domain"
	"github.com/imageforgelabs/imageforge/internal/config"
	tierdomain "github.com/imageforgelabs/imageforge/internal/tier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CheckoutServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Cfg      config.Config
	Catalog  tierdomain.Catalog
	Provider domain.Provider
	Repo     domain.CheckoutSessionRepository
}

type checkoutService struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	catalog  tierdomain.Catalog
	provider domain.Provider
	repo     domain.CheckoutSessionRepository

	successURL string
	cancelURL  string
}

func NewCheckoutService(p CheckoutServiceParam) domain.CheckoutService {
	return &checkoutService{
		db:       p.DB,
		log:      p.Log.Named("billing.checkout"),
		genID:    p.GenID,
		catalog:  p.Catalog,
		provider: p.Provider,
		repo:     p.Repo,

		successURL: p.Cfg.Stripe.SuccessURL,
		cancelURL:  p.Cfg.Stripe.CancelURL,
	}
}

func (s *checkoutService) CreateSession(ctx context.Context, req domain.CreateSessionRequest) (domain.CreateSessionResponse, error) {
	tierID, err := snowflake.ParseString(strings.TrimSpace(req.TierID))
	if err != nil {
		return domain.CreateSessionResponse{}, tierdomain.ErrTierNotFound
	}

	t, err := s.catalog.GetByID(ctx, tierID)
	if err != nil {
		return domain.CreateSessionResponse{}, err
	}
	if t.IsDefault {
		return domain.CreateSessionResponse{}, domain.ErrFreeTierCheckout
	}

	// An empty email filter would match an arbitrary provider customer.
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return domain.CreateSessionResponse{}, domain.ErrMissingEmail
	}

	cust, err := s.provider.FindCustomerByEmail(ctx, email)
	if err != nil {
		return domain.CreateSessionResponse{}, err
	}
	if cust == nil {
		cust, err = s.provider.CreateCustomer(ctx, email, map[string]string{
			domain.MetadataKeyUserID: req.UserID,
		})
		if err != nil {
			return domain.CreateSessionResponse{}, err
		}
		s.log.Info("billing customer created",
			zap.String("user_id", req.UserID),
			zap.String("customer_id", cust.ID))
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, domain.CheckoutParams{
		CustomerID: cust.ID,
		PriceRef:   t.PriceRef,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
		Metadata: map[string]string{
			domain.MetadataKeyUserID: req.UserID,
			domain.MetadataKeyTierID: tierID.String(),
		},
	})
	if err != nil {
		return domain.CreateSessionResponse{}, err
	}

	// Local record so the reconciler can recover the tier even if the
	// provider-side session metadata is unavailable later. Failure here
	// must not fail the checkout: the hosted session already exists.
	local := &domain.CheckoutSession{
		ID:                s.genID.Generate(),
		UserID:            req.UserID,
		TierID:            tierID,
		Provider:          domain.ProviderStripe,
		ProviderSessionID: sess.ID,
		URL:               sess.URL,
	}
	if err := s.repo.Insert(ctx, s.db, local); err != nil {
		s.log.Warn("checkout session record insert failed",
			zap.String("provider_session_id", sess.ID),
			zap.Error(err))
	}

	return domain.CreateSessionResponse{URL: sess.URL}, nil
}
