package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mendloop/mendloop/internal/analytics"
)

var (
	statsSince string
	statsJSON  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate statistics across remediation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openEventLog()
		if err != nil {
			return err
		}
		defer database.Close()

		outcomes, err := analytics.QueryRunOutcomes(database, statsSince)
		if err != nil {
			return err
		}
		categories, err := analytics.QueryCategoryEffectiveness(database, statsSince)
		if err != nil {
			return err
		}
		durations, err := analytics.QueryStrategyDurations(database, statsSince)
		if err != nil {
			return err
		}
		iterations, err := analytics.QueryIterationStats(database, statsSince)
		if err != nil {
			return err
		}

		if statsJSON {
			out := map[string]interface{}{
				"run_outcomes": outcomes,
				"categories":   categories,
				"strategies":   durations,
				"iterations":   iterations,
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal stats: %w", err)
			}
			cmd.Println(string(data))
			return nil
		}

		cmd.Println("Run outcomes:")
		for _, o := range outcomes {
			cmd.Printf("  %-12s %4d (%.1f%%)\n", o.Status, o.Count, o.Pct)
		}
		if iterations.Runs > 0 {
			cmd.Printf("Iterations per run: avg %.1f  p50 %.1f  p95 %.1f (%d runs)\n",
				iterations.Avg, iterations.P50, iterations.P95, iterations.Runs)
		}
		if len(categories) > 0 {
			cmd.Println("Remediations by category:")
			for _, c := range categories {
				cmd.Printf("  %-12s %4d total  applied %d (%.1f%%)  errored %d  skipped %d  limit %d\n",
					c.Category, c.Total, c.Applied, c.AppliedPct, c.Errored, c.Skipped, c.AttemptLimit)
			}
		}
		if len(durations) > 0 {
			cmd.Println("Strategy durations (seconds):")
			for _, d := range durations {
				cmd.Printf("  %-12s runs %3d  avg %.1f  p50 %.1f  p95 %.1f\n",
					d.Strategy, d.Count, d.Avg, d.P50, d.P95)
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsSince, "since", "", "only include events at or after this timestamp (e.g. 2026-03-01)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print stats as JSON")
	rootCmd.AddCommand(statsCmd)
}
