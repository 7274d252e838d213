package cli

import (
	"fmt"
	"time"

	"github.com/mendloop/mendloop/internal/backoff"
	"github.com/mendloop/mendloop/internal/checks"
	"github.com/mendloop/mendloop/internal/config"
	"github.com/mendloop/mendloop/internal/remedy"
)

// buildClassifier compiles any custom rules from config ahead of the
// built-in table.
func buildClassifier(cfg *config.Config) (*checks.Classifier, error) {
	var rules []checks.Rule
	for _, cr := range cfg.ClassifyRules {
		cat, err := checks.ParseCategory(cr.Category)
		if err != nil {
			return nil, fmt.Errorf("classify rule %q: %w", cr.Pattern, err)
		}
		rule, err := checks.CompileRule(cr.Pattern, cat)
		if err != nil {
			return nil, fmt.Errorf("classify rule %q: %w", cr.Pattern, err)
		}
		rules = append(rules, rule)
	}
	return checks.NewClassifier(rules), nil
}

// buildStrategies turns configured remediation commands into per-category
// strategies.
func buildStrategies(cfg *config.Config) (map[checks.Category]remedy.Strategy, error) {
	strategies := make(map[checks.Category]remedy.Strategy, len(cfg.Strategies))
	runner := &remedy.ExecRunner{}
	for name, s := range cfg.Strategies {
		cat, err := checks.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("strategy %q: %w", name, err)
		}
		timeout := config.Duration(s.Timeout, 0)
		strategies[cat] = remedy.NewCommandStrategy(name, s.Command, s.Workdir, timeout, runner)
	}
	return strategies, nil
}

// buildLimits converts per-category attempt caps to typed keys.
func buildLimits(cfg *config.Config) (map[checks.Category]int, error) {
	limits := make(map[checks.Category]int, len(cfg.MaxAttempts))
	for name, n := range cfg.MaxAttempts {
		cat, err := checks.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("max_attempts %q: %w", name, err)
		}
		limits[cat] = n
	}
	return limits, nil
}

// buildBackoff resolves the backoff tuning from config.
func buildBackoff(cfg *config.Config) (backoff.Config, error) {
	def := backoff.DefaultConfig()
	strategy, err := backoff.ParseStrategy(cfg.Backoff.Strategy)
	if err != nil {
		return backoff.Config{}, fmt.Errorf("backoff: %w", err)
	}
	return backoff.Config{
		Strategy:     strategy,
		InitialDelay: config.Duration(cfg.Backoff.InitialDelay, def.InitialDelay),
		MaxDelay:     config.Duration(cfg.Backoff.MaxDelay, def.MaxDelay),
		Multiplier:   cfg.Backoff.Multiplier,
	}, nil
}

// runTimeout resolves the run deadline from config.
func runTimeout(cfg *config.Config) time.Duration {
	return config.Duration(cfg.Timeout, time.Hour)
}

func remedyCounters(cfg *config.Config, limits map[checks.Category]int) *remedy.Counters {
	return remedy.NewCounters(limits, cfg.PerFailureCounters)
}

func remedyDispatcher(cfg *config.Config, strategies map[checks.Category]remedy.Strategy) *remedy.Dispatcher {
	return remedy.NewDispatcher(strategies, cfg.Parallel)
}
