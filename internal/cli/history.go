package cli

import (
	"github.com/spf13/cobra"

	"github.com/mendloop/mendloop/internal/runstore"
)

var historyPR int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored runs, or show the event history for one PR",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyPR <= 0 {
			return listRuns(cmd)
		}
		return showHistory(cmd, historyPR)
	},
}

// listRuns prints one line per stored run.
func listRuns(cmd *cobra.Command) error {
	store, err := runstore.DefaultStore()
	if err != nil {
		return err
	}
	prs, err := store.List()
	if err != nil {
		return err
	}
	if len(prs) == 0 {
		cmd.Println("No stored runs.")
		return nil
	}
	for _, pr := range prs {
		state, err := store.Get(pr)
		if err != nil {
			cmd.Printf("  PR #%-6d (unreadable: %v)\n", pr, err)
			continue
		}
		cmd.Printf("  PR #%-6d %-12s %d iteration(s)  %s\n", pr, state.Status, state.Iterations, state.Repo)
	}
	return nil
}

// showHistory prints the event log and remediation rows for one PR.
func showHistory(cmd *cobra.Command, pr int) error {
	database, err := openEventLog()
	if err != nil {
		return err
	}
	defer database.Close()

	events, err := database.GetRunHistory(pr)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		cmd.Printf("No history for PR #%d.\n", pr)
		return nil
	}

	cmd.Printf("Events for PR #%d:\n", pr)
	for _, e := range events {
		if e.Detail != "" {
			cmd.Printf("  %s  iter %-3d %-20s %s\n", e.Timestamp, e.Iteration, e.Event, e.Detail)
		} else {
			cmd.Printf("  %s  iter %-3d %s\n", e.Timestamp, e.Iteration, e.Event)
		}
	}

	runs, err := database.GetRemediations(pr)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		cmd.Println("Remediations:")
		for _, r := range runs {
			cmd.Printf("  iter %-3d %-30s [%s] %s\n", r.Iteration, r.CheckName, r.Category, r.Outcome)
		}
	}
	return nil
}

func init() {
	historyCmd.Flags().IntVar(&historyPR, "pr", 0, "pull request number (omit to list all runs)")
}
