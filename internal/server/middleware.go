package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/imageforgelabs/imageforge/internal/auth"
	"go.uber.org/zap"
)

// CORS answers preflight unconditionally with permissive headers. The
// browser-facing surface is cross-origin by design.
func (s *Server) CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type, stripe-signature")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// AuthRequired resolves the bearer credential against the identity
// provider on every request. No identity is cached process-wide.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, auth.ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" {
			AbortWithError(c, auth.ErrUnauthorized)
			return
		}

		ident, err := s.verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthorized) {
				s.log.Warn("identity verification failed", zap.Error(err))
			}
			AbortWithError(c, auth.ErrUnauthorized)
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), ident))
		c.Next()
	}
}
