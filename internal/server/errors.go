package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/imageforgelabs/imageforge/internal/auth"
	billingdomain "github.com/imageforgelabs/imageforge/internal/billing/domain"
	entitlementdomain "github.com/imageforgelabs/imageforge/internal/entitlement/domain"
	generationdomain "github.com/imageforgelabs/imageforge/internal/generation/domain"
	"github.com/imageforgelabs/imageforge/internal/providers/replicate"
	tierdomain "github.com/imageforgelabs/imageforge/internal/tier/domain"
)

type apiError struct {
	status  int
	message string
}

var errorTable = []struct {
	sentinel error
	apiError apiError
}{
	{auth.ErrUnauthorized, apiError{http.StatusUnauthorized, "unauthorized"}},
	{generationdomain.ErrEmptyPrompt, apiError{http.StatusBadRequest, "prompt must not be empty"}},
	{generationdomain.ErrQuotaExceeded, apiError{http.StatusBadRequest, "monthly image generation limit reached"}},
	{tierdomain.ErrTierNotFound, apiError{http.StatusBadRequest, "subscription tier not found"}},
	{billingdomain.ErrFreeTierCheckout, apiError{http.StatusBadRequest, "free tier has no checkout"}},
	{billingdomain.ErrMissingEmail, apiError{http.StatusBadRequest, "customer email required"}},
	{billingdomain.ErrInvalidSignature, apiError{http.StatusBadRequest, "signature verification failed"}},
	{billingdomain.ErrMalformedEvent, apiError{http.StatusBadRequest, "malformed event payload"}},
	{billingdomain.ErrUnknownCustomer, apiError{http.StatusBadRequest, "no user mapping for customer"}},
	{billingdomain.ErrMissingTierContext, apiError{http.StatusBadRequest, "no tier context for subscription"}},
	{billingdomain.ErrProviderUnavailable, apiError{http.StatusBadGateway, "billing provider unavailable, try again"}},
	{replicate.ErrUnavailable, apiError{http.StatusBadGateway, "image generation unavailable, try again"}},
	{entitlementdomain.ErrDataIntegrity, apiError{http.StatusInternalServerError, "internal error"}},
	{tierdomain.ErrNoDefaultTier, apiError{http.StatusInternalServerError, "internal error"}},
}

// AbortWithError maps a domain error onto an HTTP status and a
// {"error": message} body. Unrecognized errors become opaque 500s.
func AbortWithError(c *gin.Context, err error) {
	for _, entry := range errorTable {
		if errors.Is(err, entry.sentinel) {
			c.AbortWithStatusJSON(entry.apiError.status, gin.H{"error": entry.apiError.message})
			return
		}
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func invalidRequestError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
