package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/imageforgelabs/imageforge/internal/billing/domain"
	"go.uber.org/zap"
)

const maxWebhookBodyBytes = int64(64 << 10)

// Webhook
// POST /v1/webhook
//
// Errors return 4xx so the provider's retry policy governs redelivery.
func (s *Server) Webhook(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		AbortWithError(c, billingdomain.ErrInvalidSignature)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil {
		s.log.Warn("webhook body read failed", zap.Error(err))
		invalidRequestError(c, "invalid payload")
		return
	}
	if int64(len(payload)) > maxWebhookBodyBytes {
		s.log.Warn("webhook payload over limit", zap.Int("bytes", len(payload)))
		invalidRequestError(c, "payload too large")
		return
	}

	if err := s.webhookSvc.Ingest(c.Request.Context(), payload, signature); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
