package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mendloop/mendloop/internal/github"
)

var (
	pollPR   int
	pollJSON bool
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Take a one-shot snapshot of a pull request's checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if pollPR <= 0 {
			return fmt.Errorf("--pr is required and must be positive")
		}

		client, err := github.NewClient(cmd.Context(), os.Getenv("GITHUB_TOKEN"), cfg.Repo)
		if err != nil {
			return err
		}

		snap, err := client.PRChecks(cmd.Context(), pollPR)
		if err != nil {
			return err
		}

		if pollJSON {
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal snapshot: %w", err)
			}
			cmd.Println(string(data))
			return nil
		}

		for _, name := range snap.Passed {
			cmd.Printf("  ✓ %s\n", name)
		}
		for _, f := range snap.Failed {
			if f.Detail != "" {
				cmd.Printf("  ✗ %s — %s\n", f.Name, f.Detail)
			} else {
				cmd.Printf("  ✗ %s\n", f.Name)
			}
		}
		for _, name := range snap.Pending {
			cmd.Printf("  ⧗ %s (pending)\n", name)
		}
		if snap.AllPassed {
			cmd.Println("All checks passed.")
		}
		return nil
	},
}

func init() {
	pollCmd.Flags().IntVar(&pollPR, "pr", 0, "pull request number (required)")
	pollCmd.Flags().BoolVar(&pollJSON, "json", false, "print the snapshot as JSON")
}
