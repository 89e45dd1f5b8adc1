package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/imageforgelabs/imageforge/internal/auth"
	billingdomain "github.com/imageforgelabs/imageforge/internal/billing/domain"
)

type checkoutRequest struct {
	TierID string `json:"tierId"`
}

// CreateCheckout
// POST /v1/checkout
func (s *Server) CreateCheckout(c *gin.Context) {
	ident, ok := auth.IdentityFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, auth.ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequestError(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.TierID) == "" {
		invalidRequestError(c, "tierId is required")
		return
	}

	resp, err := s.checkoutSvc.CreateSession(c.Request.Context(), billingdomain.CreateSessionRequest{
		UserID: ident.ID,
		Email:  ident.Email,
		TierID: req.TierID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": resp.URL})
}
