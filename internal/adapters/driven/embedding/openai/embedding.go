// Package openai embeds chunk and query text with the OpenAI embeddings API
// or any server that speaks the same protocol.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "text-embedding-3-small"
	DefaultTimeout   = 60 * time.Second
	DefaultBatchSize = 256

	// maxBatchSize is the API limit on inputs per request.
	maxBatchSize = 2048

	// maxErrorBody bounds how much of a failed response ends up in the error.
	maxErrorBody = 512
)

var nativeDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the service. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3 vectors. Zero keeps the model's size.
	Dimensions int

	// BatchSize caps the inputs sent per request.
	BatchSize int
}

// EmbeddingService calls the /embeddings endpoint.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	shorten    bool
	batchSize  int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewEmbeddingService validates cfg and fills in defaults.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai embedding requires an API key", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	svc := &EmbeddingService{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		batchSize: min(cfg.BatchSize, maxBatchSize),
	}

	native, known := nativeDimensions[cfg.Model]
	switch {
	case cfg.Dimensions > 0:
		svc.dimensions = cfg.Dimensions
		svc.shorten = strings.HasPrefix(cfg.Model, "text-embedding-3-")
	case known:
		svc.dimensions = native
	default:
		svc.dimensions = nativeDimensions[DefaultModel]
	}
	return svc, nil
}

// Embed embeds one text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in order, one request per BatchSize inputs.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		vectors, err := s.embed(ctx, texts[start:min(start+s.batchSize, len(texts))])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload := embeddingRequest{Model: s.model, Input: texts}
	if s.shorten {
		payload.Dimensions = s.dimensions
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: encoding request: %w", err)
	}

	var resp embeddingResponse
	if err := s.do(ctx, http.MethodPost, "/embeddings", body, &resp); err != nil {
		return nil, err
	}

	// Entries carry their input index and may arrive in any order.
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("openai: missing embedding for input %d", i)
		}
	}
	return vectors, nil
}

// do sends one request and decodes a 200 response into out. Transport
// failures and non-200 statuses wrap domain.ErrEmbeddingUnavailable.
func (s *EmbeddingService) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("openai: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: openai %s: %w", domain.ErrEmbeddingUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(raw))
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return fmt.Errorf("%w: openai %s: status %d: %s", domain.ErrEmbeddingUnavailable, path, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("openai: decoding %s response: %w", path, err)
	}
	return nil
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the configured model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the key against the model endpoint without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	err := s.do(ctx, http.MethodGet, "/models/"+s.model, nil, nil)
	if errors.Is(err, domain.ErrEmbeddingUnavailable) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}
