package cli

import (
	"github.com/spf13/cobra"

	"github.com/mendloop/mendloop/internal/checks"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <check-name>...",
	Short: "Show how check names would be classified",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		classifier, err := buildClassifier(cfg)
		if err != nil {
			return err
		}

		var raw []checks.RawFailure
		for _, name := range args {
			raw = append(raw, checks.RawFailure{Name: name})
		}

		for _, f := range classifier.Classify(raw) {
			cmd.Printf("  %-40s %s (priority %d)\n", f.Name, f.Category, f.Priority)
		}
		return nil
	},
}
