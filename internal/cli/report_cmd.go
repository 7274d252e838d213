package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mendloop/mendloop/internal/report"
	"github.com/mendloop/mendloop/internal/runstore"
)

var (
	reportPR   int
	reportJSON bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the final report of a stored run",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportPR <= 0 {
			return fmt.Errorf("--pr is required and must be positive")
		}

		store, err := runstore.DefaultStore()
		if err != nil {
			return err
		}
		state, err := store.Get(reportPR)
		if err != nil {
			return err
		}

		rep, err := report.Generate(state)
		if errors.Is(err, report.ErrRunning) {
			return fmt.Errorf("run for PR %d is still in progress (%d iteration(s) so far)", reportPR, state.Iterations)
		}
		if err != nil {
			return err
		}
		return printReport(cmd, rep, reportJSON)
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportPR, "pr", 0, "pull request number (required)")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the report as JSON")
}
