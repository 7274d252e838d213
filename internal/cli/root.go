package cli

import (
	"github.com/spf13/cobra"

	"github.com/mendloop/mendloop/internal/config"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var configFile string

var rootCmd = &cobra.Command{
	Use:   "mendloop",
	Short: "mendloop — iterative pull request check remediation",
	Long: `mendloop polls a pull request's checks, classifies the failures, and runs
configured remediation commands until the checks pass, the iteration cap
is hit, or the deadline expires.

All state is stored in ~/.mendloop/ (SQLite for the event log, JSON for
run state). Configuration lives in mendloop.yaml.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "", "path to mendloop config file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
