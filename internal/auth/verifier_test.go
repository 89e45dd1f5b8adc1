package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/imageforgelabs/imageforge/internal/auth"
	"github.com/imageforgelabs/imageforge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newVerifier(url string) auth.Verifier {
	return auth.NewHTTPVerifier(config.Config{
		Auth: config.AuthConfig{
			UserinfoURL: url,
			APIKey:      "anon-key",
			Timeout:     5 * time.Second,
		},
	}, zap.NewNop())
}

func TestVerifyResolvesIdentity(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-a", r.Header.Get("Authorization"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "user-a", "email": "alice@example.com"}`))
	}))
	defer ts.Close()

	ident, err := newVerifier(ts.URL).Verify(context.Background(), "token-a")
	require.NoError(t, err)
	assert.Equal(t, "user-a", ident.ID)
	assert.Equal(t, "alice@example.com", ident.Email)
}

func TestVerifyRejectedToken(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		_, err := newVerifier(ts.URL).Verify(context.Background(), "expired")
		assert.ErrorIs(t, err, auth.ErrUnauthorized, "status %d", status)
		ts.Close()
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	_, err := newVerifier("http://127.0.0.1:1").Verify(context.Background(), "   ")
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestVerifyIdentityWithoutID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"email": "alice@example.com"}`))
	}))
	defer ts.Close()

	_, err := newVerifier(ts.URL).Verify(context.Background(), "token-a")
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestVerifyProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := newVerifier(ts.URL).Verify(context.Background(), "token-a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrUnauthorized)
}

func TestIdentityContextRoundTrip(t *testing.T) {
	ctx := auth.WithIdentity(context.Background(), auth.Identity{ID: "user-a"})
	ident, ok := auth.IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-a", ident.ID)

	_, ok = auth.IdentityFromContext(context.Background())
	assert.False(t, ok)
}
