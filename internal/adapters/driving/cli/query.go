package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// snippetLength bounds the chunk text shown per result.
const snippetLength = 200

var (
	queryLimit      int
	queryJSON       bool
	queryTeamID     int64
	querySourceType string
	queryAPIPath    string
	queryPageID     string
	queryParentID   string
	queryAfter      string
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search indexed chunks",
	Long: `Runs a similarity query over indexed chunks.
Results can be narrowed by team, source type, API path, page, parent and
last edit time.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 0, "maximum number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	queryCmd.Flags().Int64Var(&queryTeamID, "team", 0, "restrict to one team")
	queryCmd.Flags().StringVarP(&querySourceType, "type", "t", "", "restrict to one source type")
	queryCmd.Flags().StringVar(&queryAPIPath, "api-path", "", "restrict to one API path")
	queryCmd.Flags().StringVar(&queryPageID, "page", "", "restrict to one page")
	queryCmd.Flags().StringVar(&queryParentID, "parent", "", "restrict to children of a parent")
	queryCmd.Flags().StringVar(&queryAfter, "after", "", "only content edited after this RFC3339 time")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	opts, err := queryOptions(args[0])
	if err != nil {
		return err
	}

	svc, err := services(cmd)
	if err != nil {
		return err
	}
	if svc.Search == nil {
		return errors.New("search service not configured")
	}

	results, err := svc.Search.Query(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, results)
	}
	return outputQueryTable(cmd, results)
}

func queryOptions(text string) (domain.QueryOptions, error) {
	opts := domain.QueryOptions{
		Text:     text,
		TopK:     queryLimit,
		TeamID:   queryTeamID,
		APIPath:  queryAPIPath,
		PageID:   queryPageID,
		ParentID: queryParentID,
	}
	if querySourceType != "" {
		st, err := domain.ParseSourceType(querySourceType)
		if err != nil {
			return opts, err
		}
		opts.SourceType = st
	}
	if queryAfter != "" {
		after, err := time.Parse(time.RFC3339, queryAfter)
		if err != nil {
			return opts, fmt.Errorf("%w: --after must be RFC3339: %w", domain.ErrInvalidInput, err)
		}
		opts.LastEditedAfter = after
	}
	return opts, nil
}

// queryResult is the JSON form of one result.
type queryResult struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

func outputQueryJSON(cmd *cobra.Command, results []domain.ScoredRecord) error {
	out := make([]queryResult, 0, len(results))
	for _, r := range results {
		out = append(out, queryResult{
			ID:       r.Record.ID,
			Score:    r.Score,
			Text:     r.Record.Text,
			Metadata: r.Record.Metadata,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryTable(cmd *cobra.Command, results []domain.ScoredRecord) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	st := stylesFor(cmd.OutOrStdout())
	cmd.Println(st.Header.Render("Results:"))
	cmd.Println()
	for i, r := range results {
		meta := r.Record.Metadata
		title := meta[domain.MetaTitle]
		if title == "" {
			title = r.Record.ID
		}

		cmd.Printf("  [%d] %s %s\n", i+1, title, st.Dim.Render(fmt.Sprintf("(%.2f)", r.Score)))
		cmd.Printf("      %s %s, chunk %s/%s\n",
			st.Label.Render("Source:"), meta[domain.MetaSourceType], position(meta), meta[domain.MetaChunkCount])
		if snippet := strings.Join(strings.Fields(r.Record.Text), " "); snippet != "" {
			cmd.Printf("      %s\n", truncate(snippet, snippetLength))
		}
		cmd.Println()
	}
	return nil
}

// position renders the zero-based chunk position as one-based.
func position(meta map[string]string) string {
	pos, err := strconv.Atoi(meta[domain.MetaPosition])
	if err != nil {
		return "?"
	}
	return strconv.Itoa(pos + 1)
}
