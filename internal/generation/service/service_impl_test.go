package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/imageforgelabs/imageforge/internal/clock"
	"github.com/imageforgelabs/imageforge/internal/config"
	entitlementservice "github.com/imageforgelabs/imageforge/internal/entitlement/service"
	"github.com/imageforgelabs/imageforge/internal/generation/domain"
	"github.com/imageforgelabs/imageforge/internal/generation/service"
	"github.com/imageforgelabs/imageforge/internal/providers/replicate"
	subscriptiondomain "github.com/imageforgelabs/imageforge/internal/subscription/domain"
	subscriptionrepo "github.com/imageforgelabs/imageforge/internal/subscription/repository"
	tierdomain "github.com/imageforgelabs/imageforge/internal/tier/domain"
	tierrepo "github.com/imageforgelabs/imageforge/internal/tier/repository"
	tierservice "github.com/imageforgelabs/imageforge/internal/tier/service"
	usagedomain "github.com/imageforgelabs/imageforge/internal/usage/domain"
	usagerepo "github.com/imageforgelabs/imageforge/internal/usage/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, time.September, 15, 12, 0, 0, 0, time.UTC)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Run(ctx context.Context, model string, input replicate.Input) ([]string, error) {
	args := m.Called(ctx, model, input)
	if out := args.Get(0); out != nil {
		return out.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func intPtr(v int) *int { return &v }

type fixture struct {
	gdb      *gorm.DB
	provider *MockProvider
	svc      domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(
		&tierdomain.Tier{},
		&subscriptiondomain.UserSubscription{},
		&usagedomain.GenerationRecord{},
	))

	free := tierdomain.Tier{ID: 1, Name: "Free", PriceRef: "free_tier", IsDefault: true}
	require.NoError(t, free.EncodeFeatures(tierdomain.Features{ImagesPerMonth: intPtr(3)}))
	require.NoError(t, gdb.Create(&free).Error)
	unlimited := tierdomain.Tier{ID: 3, Name: "Unlimited", PriceRef: "price_unlimited"}
	require.NoError(t, unlimited.EncodeFeatures(tierdomain.Features{}))
	require.NoError(t, gdb.Create(&unlimited).Error)

	catalog := tierservice.NewService(tierservice.ServiceParam{
		DB:   gdb,
		Log:  zap.NewNop(),
		Repo: tierrepo.NewRepository(gdb),
	})
	cfg := config.Config{
		Billing: config.BillingConfig{Timezone: "UTC"},
		Replicate: config.ReplicateConfig{
			Model:          "stability-ai/sdxl:abc123",
			Width:          768,
			Height:         768,
			Steps:          25,
			Refine:         "expert_ensemble_refiner",
			ApplyWatermark: false,
			Timeout:        30 * time.Second,
		},
	}
	resolver, err := entitlementservice.NewService(entitlementservice.ServiceParam{
		DB:        gdb,
		Log:       zap.NewNop(),
		Clock:     clock.Fixed(testNow),
		Cfg:       cfg,
		Catalog:   catalog,
		SubRepo:   subscriptionrepo.NewRepository(gdb),
		UsageRepo: usagerepo.NewRepository(gdb),
	})
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	provider := new(MockProvider)
	svc := service.NewService(service.ServiceParam{
		DB:           gdb,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clock.Fixed(testNow),
		Cfg:          cfg,
		Entitlements: resolver,
		UsageRepo:    usagerepo.NewRepository(gdb),
		Provider:     provider,
	})
	return &fixture{gdb: gdb, provider: provider, svc: svc}
}

func (f *fixture) recordCount(t *testing.T, userID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.gdb.Model(&usagedomain.GenerationRecord{}).Where("user_id = ?", userID).Count(&count).Error)
	return count
}

func TestGenerateEmptyPrompt(t *testing.T) {
	f := newFixture(t)

	for _, prompt := range []string{"", "   ", "\t\n"} {
		_, err := f.svc.Generate(context.Background(), "user-a", prompt)
		assert.ErrorIs(t, err, domain.ErrEmptyPrompt)
	}
	f.provider.AssertNotCalled(t, "Run")
	assert.Equal(t, int64(0), f.recordCount(t, "user-a"))
}

func TestGenerateQuotaScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.provider.On("Run", mock.Anything, "stability-ai/sdxl:abc123", mock.Anything).
		Return([]string{"https://cdn.example/img.png"}, nil).Times(3)

	// Free tier quota is 3: three succeed, each appending a record.
	for i := 1; i <= 3; i++ {
		result, err := f.svc.Generate(ctx, "user-a", "a red fox")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://cdn.example/img.png"}, result.Output)
		require.NotNil(t, result.Record)
		assert.Equal(t, int64(i), f.recordCount(t, "user-a"))
	}

	// The fourth attempt is rejected before any provider call.
	_, err := f.svc.Generate(ctx, "user-a", "a red fox")
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Equal(t, int64(3), f.recordCount(t, "user-a"))
	f.provider.AssertNumberOfCalls(t, "Run", 3)
}

func TestGenerateProviderFailureWritesNoRecord(t *testing.T) {
	f := newFixture(t)

	f.provider.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, replicate.ErrUnavailable).Once()

	_, err := f.svc.Generate(context.Background(), "user-a", "a red fox")
	assert.ErrorIs(t, err, replicate.ErrUnavailable)
	assert.Equal(t, int64(0), f.recordCount(t, "user-a"))
}

func TestGenerateUnboundedTierNeverRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, subscriptionrepo.NewRepository(f.gdb).Upsert(ctx, nil, &subscriptiondomain.UserSubscription{
		UserID:                 "user-a",
		TierID:                 3,
		ExternalSubscriptionID: "sub_123",
		Status:                 subscriptiondomain.StatusActive,
		CurrentPeriodEnd:       testNow.Add(24 * time.Hour),
	}))

	f.provider.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return([]string{"https://cdn.example/img.png"}, nil).Times(10)

	for i := 0; i < 10; i++ {
		_, err := f.svc.Generate(ctx, "user-a", "a red fox")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(10), f.recordCount(t, "user-a"))
}

func TestGenerateCarriesModelSettings(t *testing.T) {
	f := newFixture(t)

	f.provider.On("Run", mock.Anything, "stability-ai/sdxl:abc123", mock.MatchedBy(func(in replicate.Input) bool {
		return in["width"] == 768 &&
			in["height"] == 768 &&
			in["num_inference_steps"] == 25 &&
			in["refine"] == "expert_ensemble_refiner" &&
			in["apply_watermark"] == false
	})).Return([]string{"https://cdn.example/img.png"}, nil).Once()

	_, err := f.svc.Generate(context.Background(), "user-a", "a red fox")
	require.NoError(t, err)
	f.provider.AssertExpectations(t)
}

func TestGenerateTrimsPromptBeforeRecording(t *testing.T) {
	f := newFixture(t)

	f.provider.On("Run", mock.Anything, mock.Anything, mock.MatchedBy(func(in replicate.Input) bool {
		return in["prompt"] == "a red fox"
	})).Return([]string{"https://cdn.example/img.png"}, nil).Once()

	result, err := f.svc.Generate(context.Background(), "user-a", "  a red fox  ")
	require.NoError(t, err)
	require.NotNil(t, result.Record)
	assert.Equal(t, "a red fox", result.Record.Prompt)
}
