package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// hashWidth is how much of a content hash the table shows.
const hashWidth = 12

var (
	stateTeamID int64
	stateJSON   bool
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "List indexing states",
	Long: `Lists the indexing state of every document: its source, chunk count,
content hash and last update. Use --team to show one team only.`,
	Args: cobra.NoArgs,
	RunE: runState,
}

func init() {
	stateCmd.Flags().Int64Var(&stateTeamID, "team", 0, "show only this team")
	stateCmd.Flags().BoolVar(&stateJSON, "json", false, "output states as JSON")
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, _ []string) error {
	svc, err := services(cmd)
	if err != nil {
		return err
	}
	if svc.Search == nil {
		return errors.New("search service not configured")
	}

	states, err := svc.Search.States(cmd.Context(), stateTeamID)
	if err != nil {
		return fmt.Errorf("listing states: %w", err)
	}

	if stateJSON {
		return outputStatesJSON(cmd, states)
	}
	outputStatesTable(cmd, states)
	return nil
}

// stateRow is the JSON form of one state.
type stateRow struct {
	SourceKey      string    `json:"source_key"`
	SourceType     string    `json:"source_type"`
	TeamID         int64     `json:"team_id"`
	APIPath        string    `json:"api_path"`
	ResourceID     string    `json:"resource_id,omitempty"`
	DocumentPrefix string    `json:"document_prefix"`
	ContentHash    string    `json:"content_hash"`
	ChunkCount     int       `json:"chunk_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func outputStatesJSON(cmd *cobra.Command, states []domain.IndexingState) error {
	rows := make([]stateRow, 0, len(states))
	for i := range states {
		s := &states[i]
		rows = append(rows, stateRow{
			SourceKey:      s.SourceKey,
			SourceType:     s.SourceType.String(),
			TeamID:         s.TeamID,
			APIPath:        s.APIPath,
			ResourceID:     s.ResourceID,
			DocumentPrefix: s.DocumentPrefix,
			ContentHash:    s.ContentHash,
			ChunkCount:     s.ChunkCount,
			UpdatedAt:      s.UpdatedAt,
		})
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal states: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputStatesTable(cmd *cobra.Command, states []domain.IndexingState) {
	if len(states) == 0 {
		cmd.Println("No documents indexed.")
		return
	}

	st := stylesFor(cmd.OutOrStdout())
	headers := []string{"TEAM", "SOURCE TYPE", "RESOURCE", "CHUNKS", "HASH", "UPDATED"}
	rows := make([][]string, 0, len(states))
	chunks := 0
	for i := range states {
		s := &states[i]
		chunks += s.ChunkCount
		resource := s.ResourceID
		if resource == "" {
			resource = "-"
		}
		hash := s.ContentHash
		if len(hash) > hashWidth {
			hash = hash[:hashWidth]
		}
		rows = append(rows, []string{
			strconv.FormatInt(s.TeamID, 10),
			s.SourceType.String(),
			resource,
			strconv.Itoa(s.ChunkCount),
			hash,
			s.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	line := ""
	for i, h := range headers {
		line += padRight(h, widths[i]+2)
	}
	cmd.Println(st.Header.Render(line))
	for _, row := range rows {
		line = ""
		for i, cell := range row {
			line += padRight(cell, widths[i]+2)
		}
		cmd.Println(line)
	}
	cmd.Println()
	cmd.Printf("%s %d documents, %d chunks\n", st.Label.Render("Total:"), len(states), chunks)
}
