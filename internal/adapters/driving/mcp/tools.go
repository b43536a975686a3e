package mcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// SearchInput is the input schema for the search_context tool.
type SearchInput struct {
	Query       string `json:"query" jsonschema:"natural-language question to find context for"`
	TeamID      int64  `json:"team_id,omitempty" jsonschema:"restrict results to one team"`
	SourceType  string `json:"source_type,omitempty" jsonschema:"restrict to one source type such as notion_page"`
	PageID      string `json:"page_id,omitempty" jsonschema:"restrict to one Notion page"`
	ParentID    string `json:"parent_id,omitempty" jsonschema:"restrict to children of one page, database or block"`
	EditedAfter string `json:"edited_after,omitempty" jsonschema:"RFC3339 time; keep content edited at or after it"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of chunks to return"`
}

// SearchOutput is the output schema for the search_context tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved chunk.
type SearchResultOutput struct {
	ChunkID        string  `json:"chunk_id"`
	Title          string  `json:"title,omitempty"`
	SourceType     string  `json:"source_type"`
	PageID         string  `json:"page_id,omitempty"`
	LastEditedTime string  `json:"last_edited_time,omitempty"`
	Score          float64 `json:"score"`
	Content        string  `json:"content"`
}

// StatusInput is the input schema for the index_status tool.
type StatusInput struct {
	TeamID int64 `json:"team_id,omitempty" jsonschema:"restrict to one team"`
}

// StatusOutput summarises what is indexed.
type StatusOutput struct {
	Documents    int            `json:"documents"`
	Chunks       int            `json:"chunks"`
	BySourceType map[string]int `json:"by_source_type"`
	LastUpdated  string         `json:"last_updated,omitempty"`
	Queue        *QueueOutput   `json:"queue,omitempty"`
}

// QueueOutput mirrors the dispatcher counters.
type QueueOutput struct {
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	Workers   int   `json:"workers"`
	Queued    int   `json:"queued"`
}

// RepairInput is the input schema for the repair_index tool.
type RepairInput struct{}

// RepairOutput mirrors a repair report.
type RepairOutput struct {
	Checked        int `json:"checked"`
	StatesReset    int `json:"states_reset"`
	OrphansRemoved int `json:"orphans_removed"`
	Errors         int `json:"errors"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_context",
		Description: "Retrieve the Notion content chunks most relevant to a question",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_status",
		Description: "Report how many Notion resources and chunks are indexed",
	}, s.handleStatus)

	if s.ports.Repair != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "repair_index",
			Description: "Verify the index against its state and remove stale chunks",
		}, s.handleRepair)
	}
}

// handleSearch handles the search_context tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.QueryOptions{
		Text:     input.Query,
		TopK:     input.Limit,
		TeamID:   input.TeamID,
		PageID:   input.PageID,
		ParentID: input.ParentID,
	}
	if input.SourceType != "" {
		st, err := domain.ParseSourceType(input.SourceType)
		if err != nil {
			return nil, SearchOutput{}, err
		}
		opts.SourceType = st
	}
	if input.EditedAfter != "" {
		after, err := time.Parse(time.RFC3339, input.EditedAfter)
		if err != nil {
			return nil, SearchOutput{}, fmt.Errorf("%w: edited_after: %w", domain.ErrInvalidInput, err)
		}
		opts.LastEditedAfter = after
	}

	results, err := s.ports.Search.Query(ctx, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i, hit := range results {
		meta := hit.Record.Metadata
		output.Results[i] = SearchResultOutput{
			ChunkID:        hit.Record.ID,
			Title:          meta[domain.MetaTitle],
			SourceType:     meta[domain.MetaSourceType],
			PageID:         meta[domain.MetaPageID],
			LastEditedTime: meta[domain.MetaLastEditedTime],
			Score:          hit.Score,
			Content:        hit.Record.Text,
		}
	}

	return nil, output, nil
}

// handleStatus handles the index_status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	states, err := s.ports.Search.States(ctx, input.TeamID)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	output := summarise(states)
	if s.ports.Dispatcher != nil {
		output.Queue = queueOutput(s.ports.Dispatcher.Stats())
	}
	return nil, output, nil
}

// handleRepair handles the repair_index tool invocation.
func (s *Server) handleRepair(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ RepairInput,
) (*mcp.CallToolResult, RepairOutput, error) {
	report, err := s.ports.Repair.Sweep(ctx)
	if err != nil {
		return nil, RepairOutput{}, err
	}
	return nil, RepairOutput{
		Checked:        report.Checked,
		StatesReset:    report.StatesReset,
		OrphansRemoved: report.OrphansRemoved,
		Errors:         report.Errors,
	}, nil
}

func summarise(states []domain.IndexingState) StatusOutput {
	out := StatusOutput{BySourceType: make(map[string]int)}
	var latest time.Time
	for _, st := range states {
		out.Documents++
		out.Chunks += st.ChunkCount
		out.BySourceType[string(st.SourceType)]++
		if st.UpdatedAt.After(latest) {
			latest = st.UpdatedAt
		}
	}
	if !latest.IsZero() {
		out.LastUpdated = latest.UTC().Format(time.RFC3339)
	}
	return out
}

func queueOutput(stats driving.DispatcherStats) *QueueOutput {
	return &QueueOutput{
		Submitted: stats.Submitted,
		Completed: stats.Completed,
		Failed:    stats.Failed,
		Dropped:   stats.Dropped,
		Workers:   stats.Workers,
		Queued:    stats.Queued,
	}
}

// sortedStates orders states by source key.
func sortedStates(states []domain.IndexingState) []domain.IndexingState {
	out := append([]domain.IndexingState(nil), states...)
	sort.Slice(out, func(i, j int) bool { return out[i].SourceKey < out[j].SourceKey })
	return out
}
