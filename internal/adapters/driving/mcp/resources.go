package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for docsync resources.
	uriScheme = "docsync://"
)

// stateInfo is the JSON shape of one indexing state.
type stateInfo struct {
	SourceKey  string `json:"source_key"`
	SourceType string `json:"source_type"`
	TeamID     int64  `json:"team_id"`
	ResourceID string `json:"resource_id,omitempty"`
	Chunks     int    `json:"chunks"`
	UpdatedAt  string `json:"updated_at"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "states",
		Name:        "states",
		Description: "Every indexed Notion resource",
		MIMEType:    "application/json",
	}, s.handleStatesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "teams/{teamId}/states",
		Name:        "team-states",
		Description: "Indexed Notion resources of one team",
		MIMEType:    "application/json",
	}, s.handleTeamStatesResource)
}

// handleStatesResource lists every indexing state.
func (s *Server) handleStatesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return s.statesResult(ctx, req.Params.URI, 0)
}

// handleTeamStatesResource lists one team's indexing states.
func (s *Server) handleTeamStatesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	teamID, ok := extractTeamID(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return s.statesResult(ctx, req.Params.URI, teamID)
}

func (s *Server) statesResult(ctx context.Context, uri string, teamID int64) (*mcp.ReadResourceResult, error) {
	states, err := s.ports.Search.States(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing states: %w", err)
	}

	infos := make([]stateInfo, 0, len(states))
	for _, st := range sortedStates(states) {
		infos = append(infos, stateInfo{
			SourceKey:  st.SourceKey,
			SourceType: string(st.SourceType),
			TeamID:     st.TeamID,
			ResourceID: st.ResourceID,
			Chunks:     st.ChunkCount,
			UpdatedAt:  st.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling states: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractTeamID extracts the team ID from a URI like docsync://teams/{teamId}/states.
func extractTeamID(uri string) (int64, bool) {
	const prefix = uriScheme + "teams/"
	const suffix = "/states"

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return 0, false
	}

	raw := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	teamID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || teamID <= 0 {
		return 0, false
	}
	return teamID, true
}
