// Package auth resolves bearer credentials against the external identity
// provider. Each request is verified independently; no identity is cached
// across requests.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/imageforgelabs/imageforge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrUnauthorized = errors.New("unauthorized")

// Identity is the minimal view of a user the core needs.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type httpVerifier struct {
	url    string
	apiKey string
	client *http.Client
	log    *zap.Logger
}

func NewHTTPVerifier(cfg config.Config, log *zap.Logger) Verifier {
	return &httpVerifier{
		url:    cfg.Auth.UserinfoURL,
		apiKey: cfg.Auth.APIKey,
		client: &http.Client{Timeout: cfg.Auth.Timeout},
		log:    log.Named("auth.verifier"),
	}
}

func (v *httpVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		v.log.Warn("identity provider unreachable", zap.Error(err))
		return Identity{}, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Identity{}, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("userinfo request: unexpected status %d", resp.StatusCode)
	}

	var ident Identity
	if err := json.NewDecoder(resp.Body).Decode(&ident); err != nil {
		return Identity{}, fmt.Errorf("decode userinfo response: %w", err)
	}
	if ident.ID == "" {
		return Identity{}, ErrUnauthorized
	}
	return ident, nil
}

var Module = fx.Module("auth",
	fx.Provide(NewHTTPVerifier),
)
