package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"match-engine/internal/common/config"
	enginerr "match-engine/internal/common/errors"
	"match-engine/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

func newEmbeddingServer(t *testing.T, requests *int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(requests, 1)

		var req struct {
			Input string `json:"input"`
			Model string `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, http.MethodPost, r.Method)

		resp := map[string]interface{}{
			"model": req.Model,
			"data": []map[string]interface{}{
				{"index": 0, "embedding": []float64{0.1, 0.2, 0.3}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

// ==========================
// Provider Initialization Tests
// ==========================

func TestNewHTTPProvider(t *testing.T) {
	t.Run("successful probe", func(t *testing.T) {
		var requests int64
		server := newEmbeddingServer(t, &requests)
		defer server.Close()

		provider, err := NewHTTPProvider(config.EmbedderConfig{
			BaseURL: server.URL,
			Model:   "text-embedding-3-small",
		}, logger.NewTestLogger(t))
		assert.NoError(t, err)
		assert.NotNil(t, provider)
		assert.EqualValues(t, 1, atomic.LoadInt64(&requests))
	})

	t.Run("unreachable endpoint is a fatal init error", func(t *testing.T) {
		_, err := NewHTTPProvider(config.EmbedderConfig{
			BaseURL: "http://127.0.0.1:1",
			Model:   "text-embedding-3-small",
			Timeout: 200,
		}, logger.NewTestLogger(t))
		assert.Error(t, err)
		assert.Equal(t, enginerr.ErrCodeEmbedderInitFailed, enginerr.CodeOf(err))
	})

	t.Run("API error during probe is a fatal init error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"message": "invalid api key",
				"type":    "auth_error",
				"code":    "invalid_api_key",
			})
		}))
		defer server.Close()

		_, err := NewHTTPProvider(config.EmbedderConfig{
			BaseURL: server.URL,
			Model:   "text-embedding-3-small",
		}, logger.NewTestLogger(t))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid api key")
	})

	t.Run("empty base url is rejected", func(t *testing.T) {
		_, err := NewHTTPProvider(config.EmbedderConfig{}, logger.NewTestLogger(t))
		assert.Error(t, err)
		assert.Equal(t, enginerr.ErrCodeEmbedderInitFailed, enginerr.CodeOf(err))
	})
}

// ==========================
// Embedding Tests
// ==========================

func TestHTTPProvider_Embed(t *testing.T) {
	var requests int64
	server := newEmbeddingServer(t, &requests)
	defer server.Close()

	provider, err := NewHTTPProvider(config.EmbedderConfig{
		BaseURL: server.URL,
		Model:   "text-embedding-3-small",
	}, logger.NewTestLogger(t))
	assert.NoError(t, err)

	probeRequests := atomic.LoadInt64(&requests)

	vec, err := provider.Embed(context.Background(), "Senior Backend Engineer")
	assert.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
	assert.EqualValues(t, probeRequests+1, atomic.LoadInt64(&requests))

	// Repeated text is served from the memo without another round trip.
	again, err := provider.Embed(context.Background(), "Senior Backend Engineer")
	assert.NoError(t, err)
	assert.Equal(t, vec, again)
	assert.EqualValues(t, probeRequests+1, atomic.LoadInt64(&requests))

	// New text goes back to the endpoint.
	_, err = provider.Embed(context.Background(), "Python, PostgreSQL")
	assert.NoError(t, err)
	assert.EqualValues(t, probeRequests+2, atomic.LoadInt64(&requests))
}

func TestHTTPProvider_EmbedEmptyResponse(t *testing.T) {
	probe := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if probe {
			probe = false
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{{"index": 0, "embedding": []float64{0.1}}},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(config.EmbedderConfig{
		BaseURL: server.URL,
		Model:   "text-embedding-3-small",
	}, logger.NewTestLogger(t))
	assert.NoError(t, err)

	_, err = provider.Embed(context.Background(), "anything")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no vectors")
}

// ==========================
// Cosine Similarity Tests
// ==========================

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"identical vectors", []float64{1, 2, 3}, []float64{1, 2, 3}, 1.0},
		{"orthogonal vectors", []float64{1, 0}, []float64{0, 1}, 0.0},
		{"opposite vectors", []float64{1, 0}, []float64{-1, 0}, -1.0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0.0},
		{"mismatched lengths", []float64{1, 2}, []float64{1, 2, 3}, 0.0},
		{"empty vectors", nil, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}
