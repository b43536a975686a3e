package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var loadTeamID int64

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a Notion workspace into the index",
	Long: `Enumerates every page and database the integration can see, submits one
indexing job per resource and waits for the queue to drain.

Requires NOTION_TOKEN. Without --team every configured team is loaded.`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().Int64Var(&loadTeamID, "team", 0, "load only this team")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	svc, err := services(cmd)
	if err != nil {
		return err
	}
	if svc.Loader == nil {
		return errors.New("notion is not configured: set NOTION_TOKEN")
	}
	if svc.Dispatcher == nil {
		return errors.New("dispatcher not configured")
	}

	ctx := cmd.Context()
	svc.Dispatcher.Start(ctx)

	var submitted int
	if loadTeamID > 0 {
		cmd.Printf("Loading team %d...\n", loadTeamID)
		submitted, err = svc.Loader.LoadTeam(ctx, loadTeamID)
	} else {
		cmd.Println("Loading all teams...")
		submitted, err = svc.Loader.LoadAll(ctx)
	}

	// Drain what was queued even when enumeration stopped early.
	svc.Dispatcher.Stop()
	stats := svc.Dispatcher.Stats()

	st := stylesFor(cmd.OutOrStdout())
	cmd.Printf("%s %d submitted, %d completed, %d failed, %d dropped\n",
		st.Header.Render("Jobs:"), submitted, stats.Completed, stats.Failed, stats.Dropped)

	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	return nil
}
