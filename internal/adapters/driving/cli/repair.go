package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Verify the index against its states and repair drift",
	Long: `Checks that every indexed document still has all of its chunks in the
vector index. Documents with missing chunks are reset so the next trigger
re-indexes them, and chunks no document owns are removed.`,
	Args: cobra.NoArgs,
	RunE: runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, _ []string) error {
	svc, err := services(cmd)
	if err != nil {
		return err
	}
	if svc.Repairer == nil {
		return errors.New("repair service not configured")
	}

	cmd.Println("Verifying index...")
	report, err := svc.Repairer.Sweep(cmd.Context())
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	st := stylesFor(cmd.OutOrStdout())
	cmd.Printf("%s %d\n", st.Label.Render("Checked:        "), report.Checked)
	cmd.Printf("%s %d\n", st.Label.Render("States reset:   "), report.StatesReset)
	cmd.Printf("%s %d\n", st.Label.Render("Orphans removed:"), report.OrphansRemoved)
	if report.Errors > 0 {
		cmd.Printf("%s %s\n", st.Label.Render("Errors:         "), st.Error.Render(fmt.Sprint(report.Errors)))
	}
	return nil
}
