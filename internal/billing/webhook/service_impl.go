package webhook

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/imageforgelabs/imageforge/internal/billing/domain"
	subscriptiondomain "github.com/imageforgelabs/imageforge/internal/subscription/domain"
	tierdomain "github.com/imageforgelabs/imageforge/internal/tier/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	eventSubscriptionCreated = "customer.subscription.created"
	eventSubscriptionUpdated = "customer.subscription.updated"
	eventSubscriptionDeleted = "customer.subscription.deleted"

	dedupKeyPrefix = "billing:webhook:event:"
	dedupTTL       = 72 * time.Hour
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Redis        *redis.Client `optional:"true"`
	Provider     domain.Provider
	Catalog      tierdomain.Catalog
	SubRepo      subscriptiondomain.Repository
	CheckoutRepo domain.CheckoutSessionRepository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	redis        *redis.Client
	provider     domain.Provider
	catalog      tierdomain.Catalog
	subRepo      subscriptiondomain.Repository
	checkoutRepo domain.CheckoutSessionRepository
}

func NewService(p ServiceParam) domain.WebhookService {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("billing.webhook"),
		redis:        p.Redis,
		provider:     p.Provider,
		catalog:      p.Catalog,
		subRepo:      p.SubRepo,
		checkoutRepo: p.CheckoutRepo,
	}
}

// Ingest verifies and applies one webhook delivery. The upsert is
// idempotent, so replays of the same event leave state unchanged; the
// Redis check in front only saves the provider round-trips on exact
// duplicates and fails open. An event is marked processed only after a
// successful reconcile, so a failed delivery stays retryable under the
// provider's redelivery policy.
func (s *Service) Ingest(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseEvent(payload, signature)
	if err != nil {
		webhookEventsTotal.WithLabelValues("unknown", "invalid_signature").Inc()
		return err
	}

	switch event.Type {
	case eventSubscriptionCreated, eventSubscriptionUpdated, eventSubscriptionDeleted:
	default:
		s.log.Debug("webhook event ignored", zap.String("type", event.Type))
		webhookEventsTotal.WithLabelValues(event.Type, "ignored").Inc()
		return nil
	}

	if s.isDuplicate(ctx, event.ID) {
		s.log.Info("duplicate webhook event suppressed",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type))
		webhookEventsTotal.WithLabelValues(event.Type, "duplicate").Inc()
		return nil
	}

	if err := s.reconcile(ctx, event); err != nil {
		webhookEventsTotal.WithLabelValues(event.Type, "failed").Inc()
		return err
	}
	s.markProcessed(ctx, event.ID)
	webhookEventsTotal.WithLabelValues(event.Type, "applied").Inc()
	return nil
}

func (s *Service) reconcile(ctx context.Context, event *domain.Event) error {
	sub := event.Subscription
	if sub == nil || sub.ID == "" || sub.CustomerID == "" {
		return domain.ErrMalformedEvent
	}

	userID, err := s.resolveUserID(ctx, sub.CustomerID)
	if err != nil {
		return err
	}

	tierID, err := s.resolveTierID(ctx, sub.ID)
	if err != nil {
		return err
	}
	// The tier must exist in the catalog before we point a subscription
	// row at it.
	if _, err := s.catalog.GetByID(ctx, tierID); err != nil {
		return err
	}

	status := subscriptiondomain.StatusFromProvider(sub.Status)
	if event.Type == eventSubscriptionDeleted {
		// Terminal: the row is kept with canceled status, not removed.
		status = subscriptiondomain.StatusCanceled
	}

	row := &subscriptiondomain.UserSubscription{
		UserID:                 userID,
		TierID:                 tierID,
		ExternalSubscriptionID: sub.ID,
		Status:                 status,
		CurrentPeriodEnd:       sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
	}
	if err := s.subRepo.Upsert(ctx, s.db, row); err != nil {
		return err
	}

	s.log.Info("subscription reconciled",
		zap.String("user_id", userID),
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(status)))
	return nil
}

func (s *Service) resolveUserID(ctx context.Context, customerID string) (string, error) {
	cust, err := s.provider.GetCustomer(ctx, customerID)
	if err != nil {
		return "", err
	}
	userID := strings.TrimSpace(cust.Metadata[domain.MetadataKeyUserID])
	if userID == "" {
		s.log.Warn("provider customer missing user tag",
			zap.String("customer_id", customerID))
		return "", domain.ErrUnknownCustomer
	}
	return userID, nil
}

// resolveTierID recovers the tier a subscription was purchased for: first
// from the originating checkout session's metadata at the provider, then
// from our local checkout record. A subscription created outside the
// tracked flow resolves to neither and is reported, not defaulted.
func (s *Service) resolveTierID(ctx context.Context, subscriptionID string) (snowflake.ID, error) {
	sess, err := s.provider.FindSessionBySubscription(ctx, subscriptionID)
	if err != nil {
		return 0, err
	}
	if sess == nil {
		return 0, domain.ErrMissingTierContext
	}

	if ref := strings.TrimSpace(sess.Metadata[domain.MetadataKeyTierID]); ref != "" {
		id, err := snowflake.ParseString(ref)
		if err == nil {
			return id, nil
		}
		s.log.Warn("checkout session carries unparseable tier tag",
			zap.String("provider_session_id", sess.ID),
			zap.String("tier_id", ref))
	}

	local, err := s.checkoutRepo.FindByProviderSessionID(ctx, s.db, domain.ProviderStripe, sess.ID)
	if err != nil {
		return 0, err
	}
	if local == nil {
		return 0, domain.ErrMissingTierContext
	}
	return local.TierID, nil
}

func (s *Service) isDuplicate(ctx context.Context, eventID string) bool {
	if s.redis == nil || eventID == "" {
		return false
	}
	n, err := s.redis.Exists(ctx, dedupKeyPrefix+eventID).Result()
	if err != nil {
		// Fail open: the idempotent upsert still absorbs the replay.
		s.log.Warn("webhook dedup check failed", zap.Error(err))
		return false
	}
	return n > 0
}

func (s *Service) markProcessed(ctx context.Context, eventID string) {
	if s.redis == nil || eventID == "" {
		return
	}
	if err := s.redis.Set(ctx, dedupKeyPrefix+eventID, 1, dedupTTL).Err(); err != nil {
		s.log.Warn("webhook dedup mark failed", zap.Error(err))
	}
}
