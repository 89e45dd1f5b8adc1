package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/imageforgelabs/imageforge/internal/auth"
	"go.uber.org/zap"
)

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// Generate
// POST /v1/generate
func (s *Server) Generate(c *gin.Context) {
	ident, ok := auth.IdentityFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, auth.ErrUnauthorized)
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequestError(c, "invalid request body")
		return
	}

	result, err := s.generation.Generate(c.Request.Context(), ident.ID, req.Prompt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("generation served",
		zap.String("user_id", ident.ID),
		zap.Int("outputs", len(result.Output)))
	c.JSON(http.StatusOK, gin.H{"output": result.Output})
}
