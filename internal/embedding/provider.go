package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"match-engine/internal/common/config"
	enginerr "match-engine/internal/common/errors"
	"match-engine/internal/common/logger"
	"match-engine/internal/common/metrics"
)

// HTTPProvider calls an OpenAI-compatible embeddings endpoint. Vectors for a
// given text are memoized for the lifetime of the provider, since scoring
// repeatedly embeds the same job text.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
	logger     logger.Logger

	mu   sync.RWMutex
	memo map[string][]float64
}

type embeddingRequest struct {
	Input      interface{} `json:"input"`
	Model      string      `json:"model"`
	Dimensions int         `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string         `json:"model"`
	Error *providerError `json:"error,omitempty"`
}

type providerError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// NewHTTPProvider builds the provider and probes the endpoint once. A failed
// probe is a fatal initialization error: every scoring signal depends on the
// model, so the engine must refuse to start instead of degrading.
func NewHTTPProvider(cfg config.EmbedderConfig, log logger.Logger) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, enginerr.NewEmbedderInitError(fmt.Errorf("embedder base_url is empty"))
	}

	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	p := &HTTPProvider{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.WithFields(map[string]interface{}{"component": "embedder"}),
		memo:       make(map[string][]float64),
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := p.fetch(ctx, "model availability probe"); err != nil {
		return nil, enginerr.NewEmbedderInitError(err)
	}

	p.logger.Info("embedding provider ready", map[string]interface{}{
		"model":      p.model,
		"dimensions": p.dimensions,
	})
	return p, nil
}

// Embed returns the vector for text, consulting the memo first.
func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	p.mu.RLock()
	vec, ok := p.memo[text]
	p.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := p.fetch(ctx, text)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.memo[text] = vec
	p.mu.Unlock()
	return vec, nil
}

func (p *HTTPProvider) fetch(ctx context.Context, text string) ([]float64, error) {
	metrics.EmbeddingsRequested.Inc()

	reqBody := embeddingRequest{
		Input: text,
		Model: p.model,
	}
	if p.dimensions > 0 {
		reqBody.Dimensions = p.dimensions
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr providerError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("embedding API error %d: %s (%s)", resp.StatusCode, apiErr.Message, apiErr.Code)
		}
		return nil, fmt.Errorf("embedding API error %d: %s", resp.StatusCode, string(body))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("embedding API error: %s (%s)", parsed.Error.Message, parsed.Error.Code)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no vectors")
	}

	return parsed.Data[0].Embedding, nil
}
