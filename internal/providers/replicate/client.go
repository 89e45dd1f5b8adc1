// Package replicate is a minimal client for the Replicate predictions API,
// the external image generation provider.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/imageforgelabs/imageforge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrUnavailable covers provider-side failures: transport errors, non-2xx
// responses, and predictions that finish in a failed state. Surfaced to
// callers as a retryable upstream failure.
var ErrUnavailable = errors.New("generation_provider_unavailable")

type Input map[string]any

type Client interface {
	// Run executes the model synchronously and returns output URIs.
	// The call blocks until the prediction settles or ctx expires.
	Run(ctx context.Context, model string, input Input) ([]string, error)
}

type httpClient struct {
	baseURL string
	token   string
	client  *http.Client
	log     *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) Client {
	return &httpClient{
		baseURL: strings.TrimRight(cfg.Replicate.BaseURL, "/"),
		token:   cfg.Replicate.APIToken,
		// No client-level timeout: the per-request deadline comes from ctx
		// so the admission gate owns how long it is willing to wait.
		client: &http.Client{},
		log:    log.Named("replicate.client"),
	}
}

type predictionRequest struct {
	Version string `json:"version"`
	Input   Input  `json:"input"`
}

type predictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

func (c *httpClient) Run(ctx context.Context, model string, input Input) ([]string, error) {
	version := model
	if idx := strings.LastIndex(model, ":"); idx >= 0 {
		version = model[idx+1:]
	}

	body, err := json.Marshal(predictionRequest{Version: version, Input: input})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	// Blocking mode: hold the connection open until the prediction settles.
	req.Header.Set("Prefer", "wait=60")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("prediction request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("prediction rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var pred predictionResponse
	if err := json.Unmarshal(raw, &pred); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if pred.Status != "succeeded" {
		c.log.Warn("prediction did not succeed",
			zap.String("prediction_id", pred.ID),
			zap.String("status", pred.Status),
			zap.String("error", pred.Error))
		return nil, fmt.Errorf("%w: prediction %s", ErrUnavailable, pred.Status)
	}

	return parseOutput(pred.Output)
}

// parseOutput accepts either a single URI or a list of URIs; models differ.
func parseOutput(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrUnavailable)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	return nil, fmt.Errorf("%w: unrecognized output shape", ErrUnavailable)
}

var Module = fx.Module("replicate",
	fx.Provide(NewClient),
)
