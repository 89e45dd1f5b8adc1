package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imageforgelabs/imageforge/internal/auth"
	billingdomain "github.com/imageforgelabs/imageforge/internal/billing/domain"
	"github.com/imageforgelabs/imageforge/internal/config"
	generationdomain "github.com/imageforgelabs/imageforge/internal/generation/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Cfg         config.Config
	Verifier    auth.Verifier
	Generation  generationdomain.Service
	CheckoutSvc billingdomain.CheckoutService
	WebhookSvc  billingdomain.WebhookService
}

type Server struct {
	log         *zap.Logger
	cfg         config.Config
	verifier    auth.Verifier
	generation  generationdomain.Service
	checkoutSvc billingdomain.CheckoutService
	webhookSvc  billingdomain.WebhookService
}

func NewServer(p Params) *Server {
	return &Server{
		log:         p.Log.Named("server"),
		cfg:         p.Cfg,
		verifier:    p.Verifier,
		generation:  p.Generation,
		checkoutSvc: p.CheckoutSvc,
		webhookSvc:  p.WebhookSvc,
	}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.CORS())

	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/generate", s.AuthRequired(), s.Generate)
		v1.POST("/checkout", s.AuthRequired(), s.CreateCheckout)
		v1.POST("/webhook", s.Webhook)
	}
	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(Start),
)

func Start(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
