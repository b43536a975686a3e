package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewEmbeddingService_Dimensions(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantDims    int
		wantShorten bool
	}{
		{"default model", Config{APIKey: "k"}, 1536, false},
		{"large model", Config{APIKey: "k", Model: "text-embedding-3-large"}, 3072, false},
		{"shortened", Config{APIKey: "k", Dimensions: 256}, 256, true},
		{"ada ignores override in request", Config{APIKey: "k", Model: "text-embedding-ada-002", Dimensions: 256}, 256, false},
		{"unknown model", Config{APIKey: "k", Model: "custom"}, 1536, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewEmbeddingService(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDims, svc.Dimensions())
			assert.Equal(t, tt.wantShorten, svc.shorten)
		})
	}
}

func TestNewEmbeddingService_BatchSizeClamped(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k", BatchSize: 10_000, BaseURL: "http://x/"})
	require.NoError(t, err)
	assert.Equal(t, maxBatchSize, svc.batchSize)
	assert.Equal(t, "http://x", svc.baseURL)
	assert.Equal(t, DefaultModel, svc.ModelName())
}

func TestEmbeddingService_EmbedBatchOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 8, req.Dimensions)

		_, _ = w.Write([]byte(`{"data":[
			{"embedding":[2,2],"index":1},
			{"embedding":[1,1],"index":0}
		]}`))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "secret", BaseURL: srv.URL, Dimensions: 8})
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(t.Context(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {2, 2}}, vectors)
}

func TestEmbeddingService_EmbedBatchSplitsRequests(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Input), 2)
		assert.Zero(t, req.Dimensions)

		resp := embeddingResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(len(req.Input[i]))}, Index: i})
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL, BatchSize: 2})
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(t.Context(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, [][]float32{{1}, {2}, {3}, {4}, {5}}, vectors)

	empty, err := svc.EmbedBatch(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, int32(3), requests.Load())
}

func TestEmbeddingService_MissingEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1],"index":0}]}`))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.EmbedBatch(t.Context(), []string{"a", "b"})
	assert.ErrorContains(t, err, "missing embedding for input 1")
}

func TestEmbeddingService_IndexOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1],"index":3}]}`))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Embed(t.Context(), "a")
	assert.ErrorContains(t, err, "index 3 out of range")
}

func TestEmbeddingService_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Embed(t.Context(), "a")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorContains(t, err, "status 401: bad key")

	err = svc.Ping(t.Context())
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbeddingService_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Embed(t.Context(), "a")
	assert.ErrorContains(t, err, "status 502: upstream down")
}

func TestEmbeddingService_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/models/"+DefaultModel, r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"text-embedding-3-small"}`))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, svc.Ping(t.Context()))
	assert.NoError(t, svc.Close())
}

func TestEmbeddingService_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: url})
	require.NoError(t, err)

	_, err = svc.Embed(t.Context(), "a")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
