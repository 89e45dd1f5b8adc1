package domain

import (
	"context"
	"errors"

	usagedomain "github.com/imageforgelabs/imageforge/internal/usage/domain"
)

var (
	ErrEmptyPrompt   = errors.New("empty_prompt")
	ErrQuotaExceeded = errors.New("monthly_quota_exceeded")
)

type Result struct {
	Output []string
	Record *usagedomain.GenerationRecord
}

// Service is the admission gate every billable generation passes through.
type Service interface {
	Generate(ctx context.Context, userID, prompt string) (Result, error)
}
