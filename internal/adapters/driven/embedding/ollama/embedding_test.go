package ollama

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

func newTestServer(t *testing.T, calls *atomic.Int32, pulled ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			var tags tagsResponse
			for _, name := range pulled {
				tags.Models = append(tags.Models, struct {
					Name string `json:"name"`
				}{Name: name})
			}
			_ = json.NewEncoder(w).Encode(tags)
		case "/api/embed":
			calls.Add(1)
			var req embedRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test-model", req.Model)
			assert.Equal(t, DefaultKeepAlive, req.KeepAlive)

			resp := embedResponse{}
			for i := range req.Input {
				resp.Embeddings = append(resp.Embeddings, []float32{float32(len(req.Input[i])), 1})
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
}

func TestEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{BaseURL: "http://ollama:11434/"})
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, DefaultBatchSize, svc.batchSize)
	assert.Equal(t, "http://ollama:11434", svc.baseURL)
	assert.NoError(t, svc.Close())
}

func TestEmbeddingService_Embed(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, &calls)
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL, Model: "test-model", Dimensions: 2})
	vec, err := svc.Embed(t.Context(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, vec)
}

func TestEmbeddingService_EmbedBatchSplitsRequests(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, &calls)
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL, Model: "test-model", BatchSize: 2})
	vectors, err := svc.EmbedBatch(t.Context(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Len(t, vectors, 5)
	assert.Equal(t, float32(5), vectors[4][0])
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbeddingService_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,2]]}`))
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL})
	_, err := svc.EmbedBatch(t.Context(), []string{"a", "b"})
	assert.ErrorContains(t, err, "1 embeddings for 2 inputs")
}

func TestEmbeddingService_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL})
	_, err := svc.Embed(t.Context(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorContains(t, err, "status 404: model not found")
	assert.ErrorIs(t, svc.Ping(t.Context()), domain.ErrEmbeddingUnavailable)
}

func TestEmbeddingService_Ping(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, &calls, "all-minilm:latest", "test-model:latest")
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL, Model: "test-model"})
	assert.NoError(t, svc.Ping(t.Context()))

	svc = NewEmbeddingService(Config{BaseURL: srv.URL, Model: "all-minilm:latest"})
	assert.NoError(t, svc.Ping(t.Context()))

	svc = NewEmbeddingService(Config{BaseURL: srv.URL})
	err := svc.Ping(t.Context())
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorContains(t, err, `"nomic-embed-text" not pulled`)
	assert.Zero(t, calls.Load())
}
