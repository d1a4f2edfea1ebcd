package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/medassist/symptomcheck/internal/shared/config"
	"github.com/medassist/symptomcheck/internal/shared/metrics"
)

// Client calls the external generative AI provider. Deadlines are the
// caller's responsibility: the orchestrator wraps every invocation in its
// own timeout context, so the underlying http.Client carries none.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a provider client from configuration.
func NewClient(cfg config.AIConfig, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{},
		logger:     logger.With().Str("component", "ai").Logger(),
	}
}

// Generate sends the prompt to the given model in structured-output mode
// and returns the raw text payload. A well-formed HTTP response with no
// usable candidate is a provider error, not a crash.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      0.2,
			MaxOutputTokens:  2048,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(model, "transport_error", time.Since(start))
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		metrics.RecordProviderRequest(model, fmt.Sprintf("http_%d", resp.StatusCode), duration)
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("model", model).
			Bytes("body", snippet).
			Msg("provider returned non-200")
		return "", fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.RecordProviderRequest(model, "decode_error", duration)
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}

	if payload.Error != nil {
		metrics.RecordProviderRequest(model, "api_error", duration)
		return "", fmt.Errorf("provider error %d: %s", payload.Error.Code, payload.Error.Status)
	}

	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 {
		metrics.RecordProviderRequest(model, "empty", duration)
		return "", fmt.Errorf("provider returned no candidates")
	}

	metrics.RecordProviderRequest(model, "ok", duration)
	return payload.Candidates[0].Content.Parts[0].Text, nil
}
