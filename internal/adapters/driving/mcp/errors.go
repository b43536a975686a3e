// Package mcp provides an MCP (Model Context Protocol) server adapter for docsync.
// It lets AI assistants retrieve indexed Notion context and inspect the index.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
