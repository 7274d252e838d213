package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mendloop/mendloop/internal/config"
	"github.com/mendloop/mendloop/internal/db"
	"github.com/mendloop/mendloop/internal/github"
	"github.com/mendloop/mendloop/internal/loop"
	"github.com/mendloop/mendloop/internal/report"
	"github.com/mendloop/mendloop/internal/runstore"
)

// Exit codes for the run command, one per terminal status.
const (
	ExitSucceeded  = 0
	ExitCapReached = 2
	ExitTimedOut   = 3
	ExitFailed     = 4
)

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps a terminal run status to the process exit code.
func exitCodeFor(status loop.Status) int {
	switch status {
	case loop.StatusSucceeded:
		return ExitSucceeded
	case loop.StatusCapReached:
		return ExitCapReached
	case loop.StatusTimedOut:
		return ExitTimedOut
	default:
		return ExitFailed
	}
}

var (
	runPR            int
	runRepo          string
	runMaxIterations int
	runTimeoutFlag   string
	runParallel      bool
	runBackoffFlag   string
	runJSON          bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the remediation loop against a pull request",
	Long: `Polls the PR's checks, classifies failures, and dispatches the configured
remediation commands, repeating with backoff until the checks pass, the
iteration cap is hit, or the deadline expires.

Exit codes: 0 succeeded, 2 iteration cap reached, 3 timed out, 4 failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return &ExitError{Code: ExitFailed, Err: err}
		}
		applyRunFlags(cmd, cfg)

		if errs := config.Validate(cfg); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", e)
			}
			return &ExitError{Code: ExitFailed, Err: fmt.Errorf("config has %d validation error(s)", len(errs))}
		}
		if runPR <= 0 {
			return &ExitError{Code: ExitFailed, Err: fmt.Errorf("--pr is required and must be positive")}
		}

		controller, state, cleanup, err := buildRun(cmd, cfg)
		if err != nil {
			return &ExitError{Code: ExitFailed, Err: err}
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := controller.Run(ctx, state); err != nil {
			return &ExitError{Code: ExitFailed, Err: err}
		}

		rep, err := report.Generate(state)
		if err != nil {
			return &ExitError{Code: ExitFailed, Err: err}
		}
		if err := printReport(cmd, rep, runJSON); err != nil {
			return &ExitError{Code: ExitFailed, Err: err}
		}

		if code := exitCodeFor(state.Status); code != ExitSucceeded {
			return &ExitError{Code: code, Err: fmt.Errorf("run finished: %s", state.Status)}
		}
		return nil
	},
}

// applyRunFlags overlays explicitly-set flags on the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("repo") {
		cfg.Repo = runRepo
	}
	if cmd.Flags().Changed("max-iterations") {
		cfg.MaxIterations = runMaxIterations
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = runTimeoutFlag
	}
	if cmd.Flags().Changed("parallel") {
		cfg.Parallel = runParallel
	}
	if cmd.Flags().Changed("backoff") {
		cfg.Backoff.Strategy = runBackoffFlag
	}
}

// buildRun wires the full controller stack from config. The returned
// cleanup closes the event log.
func buildRun(cmd *cobra.Command, cfg *config.Config) (*loop.Controller, *loop.State, func(), error) {
	classifier, err := buildClassifier(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	strategies, err := buildStrategies(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	limits, err := buildLimits(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	bo, err := buildBackoff(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := github.NewClient(cmd.Context(), os.Getenv("GITHUB_TOKEN"), cfg.Repo)
	if err != nil {
		return nil, nil, nil, err
	}

	counters := remedyCounters(cfg, limits)
	dispatcher := remedyDispatcher(cfg, strategies)

	controller := loop.NewController(client, classifier, dispatcher, counters, bo)
	controller.SetProgress(cmd.ErrOrStderr())

	cleanup := func() {}
	if database, err := openEventLog(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: event log unavailable: %v\n", err)
	} else {
		controller.SetEvents(database)
		cleanup = func() { database.Close() }
	}

	store, err := runstore.DefaultStore()
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	controller.SetSaver(store)

	state := loop.NewState(cfg.Repo, runPR, cfg.MaxIterations, runTimeout(cfg), time.Now())
	return controller, state, cleanup, nil
}

// openEventLog opens and migrates the default database.
func openEventLog() (*db.DB, error) {
	path, err := db.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// printReport writes the report in the requested format.
func printReport(cmd *cobra.Command, rep *report.Report, asJSON bool) error {
	if asJSON {
		data, err := rep.JSON()
		if err != nil {
			return err
		}
		cmd.Print(string(data))
		return nil
	}
	cmd.Print(rep.Render())
	return nil
}

func init() {
	runCmd.Flags().IntVar(&runPR, "pr", 0, "pull request number (required)")
	runCmd.Flags().StringVar(&runRepo, "repo", "", "repository in owner/name form (overrides config)")
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "iteration cap (overrides config)")
	runCmd.Flags().StringVar(&runTimeoutFlag, "timeout", "", "run deadline, e.g. 30m (overrides config)")
	runCmd.Flags().BoolVar(&runParallel, "parallel", false, "dispatch category remediations concurrently")
	runCmd.Flags().StringVar(&runBackoffFlag, "backoff", "", "backoff strategy: exponential, linear, fixed")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the final report as JSON")
}
