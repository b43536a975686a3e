package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jomei/notionapi"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the page size for paginated endpoints (Notion's maximum).
	DefaultPageSize = 100
)

// ErrNoToken is returned when neither a token nor a token source is configured.
var ErrNoToken = errors.New("notion: no token configured")

// ResultPage is one page of a paginated list endpoint.
type ResultPage struct {
	Results    []map[string]any
	NextCursor string
	HasMore    bool
}

// API is the subset of the Notion API the indexer reads. Every object is
// returned in its JSON wire form, as the normalisers consume it.
type API interface {
	Search(ctx context.Context, cursor string) (*ResultPage, error)
	RetrievePage(ctx context.Context, pageID string) (map[string]any, error)
	RetrieveDatabase(ctx context.Context, databaseID string) (map[string]any, error)
	QueryDatabase(ctx context.Context, databaseID, cursor string) (*ResultPage, error)
	BlockChildren(ctx context.Context, blockID, cursor string) (*ResultPage, error)
}

// Ensure Client implements the interface.
var _ API = (*Client)(nil)

// Config configures a Client.
type Config struct {
	// Token is a static integration token. Ignored when TokenSource is set.
	Token string

	// TokenSource supplies OAuth access tokens.
	TokenSource oauth2.TokenSource

	// RequestsPerSecond bounds the request rate (default 3).
	RequestsPerSecond float64

	// PageSize for paginated endpoints (default 100).
	PageSize int

	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration

	// BaseTransport sends requests after throttling and authentication.
	// Defaults to http.DefaultTransport.
	BaseTransport http.RoundTripper
}

// Client wraps the notionapi client with throttling and wire-form conversion.
type Client struct {
	api      *notionapi.Client
	limiter  *RateLimiter
	pageSize int
}

// NewClient creates a Notion client.
func NewClient(cfg Config) (*Client, error) {
	ts := cfg.TokenSource
	if ts == nil {
		if cfg.Token == "" {
			return nil, ErrNoToken
		}
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PageSize <= 0 || cfg.PageSize > DefaultPageSize {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.BaseTransport == nil {
		cfg.BaseTransport = http.DefaultTransport
	}

	limiter := NewRateLimiter(cfg.RequestsPerSecond)
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, ts),
			Base:   &transport{base: cfg.BaseTransport, limiter: limiter},
		},
	}

	return &Client{
		api:      notionapi.NewClient(notionapi.Token(cfg.Token), notionapi.WithHTTPClient(httpClient)),
		limiter:  limiter,
		pageSize: cfg.PageSize,
	}, nil
}

// RateLimiter returns the client's limiter.
func (c *Client) RateLimiter() *RateLimiter {
	return c.limiter
}

// Search lists every page and database shared with the integration.
func (c *Client) Search(ctx context.Context, cursor string) (*ResultPage, error) {
	resp, err := c.api.Search.Do(ctx, &notionapi.SearchRequest{
		StartCursor: notionapi.Cursor(cursor),
		PageSize:    c.pageSize,
	})
	if err != nil {
		return nil, wrapError("search", err)
	}
	return toResultPage(resp)
}

// RetrievePage fetches one page object.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (map[string]any, error) {
	page, err := c.api.Page.Get(ctx, notionapi.PageID(pageID))
	if err != nil {
		return nil, wrapError("retrieve page "+pageID, err)
	}
	return toPayload(page)
}

// RetrieveDatabase fetches one database object.
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (map[string]any, error) {
	db, err := c.api.Database.Get(ctx, notionapi.DatabaseID(databaseID))
	if err != nil {
		return nil, wrapError("retrieve database "+databaseID, err)
	}
	return toPayload(db)
}

// QueryDatabase lists one page of database rows.
func (c *Client) QueryDatabase(ctx context.Context, databaseID, cursor string) (*ResultPage, error) {
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{
		StartCursor: notionapi.Cursor(cursor),
		PageSize:    c.pageSize,
	})
	if err != nil {
		return nil, wrapError("query database "+databaseID, err)
	}
	return toResultPage(resp)
}

// BlockChildren lists one page of a block's children.
func (c *Client) BlockChildren(ctx context.Context, blockID, cursor string) (*ResultPage, error) {
	resp, err := c.api.Block.GetChildren(ctx, notionapi.BlockID(blockID), &notionapi.Pagination{
		StartCursor: notionapi.Cursor(cursor),
		PageSize:    c.pageSize,
	})
	if err != nil {
		return nil, wrapError("block children "+blockID, err)
	}
	return toResultPage(resp)
}

// wrapError maps a 404 onto domain.ErrNotFound.
func wrapError(op string, err error) error {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("notion: %s: %w: %w", op, domain.ErrNotFound, err)
	}
	return fmt.Errorf("notion: %s: %w", op, err)
}

// toPayload converts a typed API object back into its JSON wire form.
func toPayload(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("notion: encode payload: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("notion: decode payload: %w", err)
	}
	return payload, nil
}

func toResultPage(v any) (*ResultPage, error) {
	payload, err := toPayload(v)
	if err != nil {
		return nil, err
	}
	return resultPageFrom(payload), nil
}

// resultPageFrom reads a list response in wire form.
func resultPageFrom(payload map[string]any) *ResultPage {
	page := &ResultPage{}
	if items, ok := payload["results"].([]any); ok {
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				page.Results = append(page.Results, obj)
			}
		}
	}
	page.NextCursor, _ = payload["next_cursor"].(string)
	page.HasMore, _ = payload["has_more"].(bool)
	if page.NextCursor == "" {
		page.HasMore = false
	}
	return page
}
