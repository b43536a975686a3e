package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync/internal/adapters/driving/spool"
	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

var (
	indexSourceType string
	indexTeamID     int64
	indexAPIPath    string
	indexResourceID string
)

var indexCmd = &cobra.Command{
	Use:   "index <file>...",
	Short: "Index payload files",
	Long: `Runs the indexing pipeline on one or more payload files and waits for
each to finish.

A file is either a raw Notion API response (JSON or YAML), in which case
--type and --team are required, or an envelope carrying source_type,
team_id, api_path, resource_id and payload keys.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexSourceType, "type", "t", "", "source type of raw payload files")
	indexCmd.Flags().Int64Var(&indexTeamID, "team", 0, "owning team ID")
	indexCmd.Flags().StringVar(&indexAPIPath, "api-path", "", "logical API path (default per source type)")
	indexCmd.Flags().StringVar(&indexResourceID, "resource", "", "resource ID (default: payload id)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	svc, err := services(cmd)
	if err != nil {
		return err
	}
	if svc.Indexer == nil {
		return fmt.Errorf("indexer not configured")
	}

	st := stylesFor(cmd.OutOrStdout())
	defaults := domain.IndexJob{
		SourceType: domain.SourceType(indexSourceType),
		TeamID:     indexTeamID,
		APIPath:    indexAPIPath,
		ResourceID: indexResourceID,
	}

	failed := 0
	for _, path := range args {
		job, err := spool.ReadJob(path, defaults)
		if err != nil {
			failed++
			cmd.Printf("%s %s: %v\n", st.Error.Render(padRight("error", 9)), path, err)
			continue
		}

		result, err := svc.Indexer.Index(cmd.Context(), job)
		if err != nil {
			failed++
			cmd.Printf("%s %s: %v\n", st.Error.Render(padRight("failed", 9)), path, err)
			continue
		}
		cmd.Printf("%s %s %s\n", outcomeLabel(st, result.Outcome), path, st.Dim.Render(describeResult(result)))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func outcomeLabel(st styles, outcome driving.IndexOutcome) string {
	label := padRight(string(outcome), 9)
	switch outcome {
	case driving.OutcomeIndexed:
		return st.Success.Render(label)
	case driving.OutcomeEmpty:
		return st.Warning.Render(label)
	default:
		return st.Label.Render(label)
	}
}

func describeResult(r *driving.IndexResult) string {
	if r.Outcome != driving.OutcomeIndexed {
		return fmt.Sprintf("(%s)", r.SourceKey)
	}
	return fmt.Sprintf("(%s, %d chunks, +%d -%d)", r.SourceKey, r.ChunkCount, r.Added, r.Deleted)
}
