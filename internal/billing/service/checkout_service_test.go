package service_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/imageforgelabs/imageforge/internal/billing/domain"
	"github.com/imageforgelabs/imageforge/internal/billing/repository"
	"github.com/imageforgelabs/imageforge/internal/billing/service"
	"github.com/imageforgelabs/imageforge/internal/config"
	tierdomain "github.com/imageforgelabs/imageforge/internal/tier/domain"
	tierrepo "github.com/imageforgelabs/imageforge/internal/tier/repository"
	tierservice "github.com/imageforgelabs/imageforge/internal/tier/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	args := m.Called(ctx, email)
	if c := args.Get(0); c != nil {
		return c.(*domain.Customer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*domain.Customer, error) {
	args := m.Called(ctx, email, metadata)
	if c := args.Get(0); c != nil {
		return c.(*domain.Customer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*domain.Customer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params domain.CheckoutParams) (*domain.ProviderCheckoutSession, error) {
	args := m.Called(ctx, params)
	if s := args.Get(0); s != nil {
		return s.(*domain.ProviderCheckoutSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) FindSessionBySubscription(ctx context.Context, subscriptionID string) (*domain.ProviderCheckoutSession, error) {
	args := m.Called(ctx, subscriptionID)
	if s := args.Get(0); s != nil {
		return s.(*domain.ProviderCheckoutSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) ParseEvent(payload []byte, signature string) (*domain.Event, error) {
	args := m.Called(payload, signature)
	if e := args.Get(0); e != nil {
		return e.(*domain.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func intPtr(v int) *int { return &v }

type fixture struct {
	gdb      *gorm.DB
	provider *MockProvider
	svc      domain.CheckoutService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&tierdomain.Tier{}, &domain.CheckoutSession{}))

	free := tierdomain.Tier{ID: 1, Name: "Free", PriceRef: "free_tier", IsDefault: true}
	require.NoError(t, free.EncodeFeatures(tierdomain.Features{ImagesPerMonth: intPtr(3)}))
	require.NoError(t, gdb.Create(&free).Error)
	pro := tierdomain.Tier{ID: 2, Name: "Pro", PriceRef: "price_pro_monthly"}
	require.NoError(t, pro.EncodeFeatures(tierdomain.Features{ImagesPerMonth: intPtr(100)}))
	require.NoError(t, gdb.Create(&pro).Error)

	catalog := tierservice.NewService(tierservice.ServiceParam{
		DB:   gdb,
		Log:  zap.NewNop(),
		Repo: tierrepo.NewRepository(gdb),
	})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	provider := new(MockProvider)
	svc := service.NewCheckoutService(service.CheckoutServiceParam{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Cfg: config.Config{Stripe: config.StripeConfig{
			SuccessURL: "https://app.example/success",
			CancelURL:  "https://app.example/cancel",
		}},
		Catalog:  catalog,
		Provider: provider,
		Repo:     repository.NewCheckoutSessionRepository(gdb),
	})
	return &fixture{gdb: gdb, provider: provider, svc: svc}
}

func TestCreateSessionNewCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.provider.On("FindCustomerByEmail", mock.Anything, "alice@example.com").Return(nil, nil).Once()
	f.provider.On("CreateCustomer", mock.Anything, "alice@example.com",
		map[string]string{domain.MetadataKeyUserID: "user-a"}).
		Return(&domain.Customer{ID: "cus_123", Email: "alice@example.com"}, nil).Once()
	f.provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p domain.CheckoutParams) bool {
		return p.CustomerID == "cus_123" &&
			p.PriceRef == "price_pro_monthly" &&
			p.SuccessURL == "https://app.example/success" &&
			p.CancelURL == "https://app.example/cancel" &&
			p.Metadata[domain.MetadataKeyUserID] == "user-a" &&
			p.Metadata[domain.MetadataKeyTierID] == "2"
	})).Return(&domain.ProviderCheckoutSession{ID: "cs_123", URL: "https://checkout.example/cs_123"}, nil).Once()

	resp, err := f.svc.CreateSession(ctx, domain.CreateSessionRequest{
		UserID: "user-a",
		Email:  "alice@example.com",
		TierID: "2",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/cs_123", resp.URL)
	f.provider.AssertExpectations(t)

	// The local record lets the reconciler recover the tier later.
	local, err := repository.NewCheckoutSessionRepository(f.gdb).FindByProviderSessionID(ctx, nil, domain.ProviderStripe, "cs_123")
	require.NoError(t, err)
	require.NotNil(t, local)
	assert.Equal(t, "user-a", local.UserID)
	assert.Equal(t, snowflake.ID(2), local.TierID)
	assert.Equal(t, domain.ProviderStripe, local.Provider)
}

func TestCreateSessionReusesExistingCustomer(t *testing.T) {
	f := newFixture(t)

	f.provider.On("FindCustomerByEmail", mock.Anything, "alice@example.com").
		Return(&domain.Customer{ID: "cus_existing"}, nil).Once()
	f.provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p domain.CheckoutParams) bool {
		return p.CustomerID == "cus_existing"
	})).Return(&domain.ProviderCheckoutSession{ID: "cs_456", URL: "https://checkout.example/cs_456"}, nil).Once()

	_, err := f.svc.CreateSession(context.Background(), domain.CreateSessionRequest{
		UserID: "user-a",
		Email:  "alice@example.com",
		TierID: "2",
	})
	require.NoError(t, err)
	f.provider.AssertNotCalled(t, "CreateCustomer")
}

func TestCreateSessionFreeTierRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateSession(context.Background(), domain.CreateSessionRequest{
		UserID: "user-a",
		Email:  "alice@example.com",
		TierID: "1",
	})
	assert.ErrorIs(t, err, domain.ErrFreeTierCheckout)
	f.provider.AssertNotCalled(t, "FindCustomerByEmail")
	f.provider.AssertNotCalled(t, "CreateCheckoutSession")
}

func TestCreateSessionUnknownTier(t *testing.T) {
	f := newFixture(t)

	for _, tierID := range []string{"999", "not-a-number", ""} {
		_, err := f.svc.CreateSession(context.Background(), domain.CreateSessionRequest{
			UserID: "user-a",
			Email:  "alice@example.com",
			TierID: tierID,
		})
		assert.ErrorIs(t, err, tierdomain.ErrTierNotFound, "tier id %q", tierID)
	}
	f.provider.AssertNotCalled(t, "CreateCheckoutSession")
}

func TestCreateSessionMissingEmail(t *testing.T) {
	f := newFixture(t)

	for _, email := range []string{"", "   "} {
		_, err := f.svc.CreateSession(context.Background(), domain.CreateSessionRequest{
			UserID: "user-a",
			Email:  email,
			TierID: "2",
		})
		assert.ErrorIs(t, err, domain.ErrMissingEmail, "email %q", email)
	}
	f.provider.AssertNotCalled(t, "FindCustomerByEmail")
	f.provider.AssertNotCalled(t, "CreateCustomer")
}

func TestCreateSessionProviderFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.provider.On("FindCustomerByEmail", mock.Anything, mock.Anything).
		Return(nil, domain.ErrProviderUnavailable).Once()

	_, err := f.svc.CreateSession(ctx, domain.CreateSessionRequest{
		UserID: "user-a",
		Email:  "alice@example.com",
		TierID: "2",
	})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	var count int64
	require.NoError(t, f.gdb.Model(&domain.CheckoutSession{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
