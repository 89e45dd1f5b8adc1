package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/imageforgelabs/imageforge/internal/clock"
	"github.com/imageforgelabs/imageforge/internal/config"
	entitlementdomain "github.com/imageforgelabs/imageforge/internal/entitlement/domain"
	"github.com/imageforgelabs/imageforge/internal/generation/domain"
	"github.com/imageforgelabs/imageforge/internal/providers/replicate"
	usagedomain "github.com/imageforgelabs/imageforge/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Cfg          config.Config
	Entitlements entitlementdomain.Service
	UsageRepo    usagedomain.Repository
	Provider     replicate.Client
}

type service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	entitlements entitlementdomain.Service
	usageRepo    usagedomain.Repository
	provider     replicate.Client

	model     string
	width     int
	height    int
	steps     int
	refine    string
	watermark bool
	timeout   time.Duration
}

func NewService(p ServiceParam) domain.Service {
	return &service{
		db:           p.DB,
		log:          p.Log.Named("generation.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		entitlements: p.Entitlements,
		usageRepo:    p.UsageRepo,
		provider:     p.Provider,

		model:     p.Cfg.Replicate.Model,
		width:     p.Cfg.Replicate.Width,
		height:    p.Cfg.Replicate.Height,
		steps:     p.Cfg.Replicate.Steps,
		refine:    p.Cfg.Replicate.Refine,
		watermark: p.Cfg.Replicate.ApplyWatermark,
		timeout:   p.Cfg.Replicate.Timeout,
	}
}

// Generate admits or rejects one generation against the user's quota.
// Enforcement is the soft-quota policy: the check and the record append
// are not serialized, so two concurrent requests from the same user can
// both pass when one slot remains.
func (s *service) Generate(ctx context.Context, userID, prompt string) (domain.Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		admissionsTotal.WithLabelValues(outcomeInvalidInput).Inc()
		return domain.Result{}, domain.ErrEmptyPrompt
	}

	ent, err := s.entitlements.Resolve(ctx, userID)
	if err != nil {
		return domain.Result{}, err
	}
	if !ent.Unbounded() && *ent.Remaining <= 0 {
		admissionsTotal.WithLabelValues(outcomeQuotaExceeded).Inc()
		s.log.Info("generation rejected",
			zap.String("user_id", userID),
			zap.String("tier", ent.Tier.Name),
			zap.Int64("used", ent.Used))
		return domain.Result{}, domain.ErrQuotaExceeded
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	output, err := s.provider.Run(callCtx, s.model, replicate.Input{
		"prompt":              prompt,
		"width":               s.width,
		"height":              s.height,
		"num_inference_steps": s.steps,
		"refine":              s.refine,
		"apply_watermark":     s.watermark,
	})
	if err != nil {
		// No record on failure or timeout: a record must only exist for
		// a generation that actually happened.
		admissionsTotal.WithLabelValues(outcomeProviderFailed).Inc()
		return domain.Result{}, err
	}

	rec := &usagedomain.GenerationRecord{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Prompt:    prompt,
		CreatedAt: s.clock.Now(ctx),
	}
	if err := s.usageRepo.Append(ctx, s.db, rec); err != nil {
		// The generation already happened; the user gets their output.
		// The missed record is a usage undercount, surfaced in logs.
		s.log.Error("generation record append failed, usage will undercount",
			zap.String("user_id", userID),
			zap.Error(err))
		rec = nil
	}

	admissionsTotal.WithLabelValues(outcomeGranted).Inc()
	return domain.Result{Output: output, Record: rec}, nil
}
