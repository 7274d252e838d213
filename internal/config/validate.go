package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedCategories is the set of valid category names for attempt
// limits, strategies, and classification rules.
var recognizedCategories = map[string]bool{
	"security":    true,
	"build":       true,
	"test":        true,
	"lint":        true,
	"performance": true,
	"unknown":     true,
}

// recognizedBackoffStrategies is the set of valid backoff strategy names.
var recognizedBackoffStrategies = map[string]bool{
	"exponential": true,
	"linear":      true,
	"fixed":       true,
}

// Validate checks a Config for structural and semantic errors. It returns
// a slice of all validation errors found (empty if valid). A non-empty
// result is fatal: the loop never starts on an invalid config.
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Repo != "" && !validRepo(cfg.Repo) {
		errs = append(errs, ValidationError{Field: "repo", Message: fmt.Sprintf("must be owner/name, got %q", cfg.Repo)})
	}
	if cfg.MaxIterations <= 0 {
		errs = append(errs, ValidationError{Field: "max_iterations", Message: "must be positive"})
	}
	if _, err := time.ParseDuration(cfg.Timeout); err != nil {
		errs = append(errs, ValidationError{Field: "timeout", Message: fmt.Sprintf("invalid duration %q", cfg.Timeout)})
	}

	if !recognizedBackoffStrategies[cfg.Backoff.Strategy] {
		errs = append(errs, ValidationError{
			Field:   "backoff.strategy",
			Message: fmt.Sprintf("unrecognized strategy %q (want exponential, linear, or fixed)", cfg.Backoff.Strategy),
		})
	}
	if _, err := time.ParseDuration(cfg.Backoff.InitialDelay); err != nil {
		errs = append(errs, ValidationError{Field: "backoff.initial_delay", Message: fmt.Sprintf("invalid duration %q", cfg.Backoff.InitialDelay)})
	}
	if _, err := time.ParseDuration(cfg.Backoff.MaxDelay); err != nil {
		errs = append(errs, ValidationError{Field: "backoff.max_delay", Message: fmt.Sprintf("invalid duration %q", cfg.Backoff.MaxDelay)})
	}
	if cfg.Backoff.Multiplier < 1 {
		errs = append(errs, ValidationError{Field: "backoff.multiplier", Message: "must be >= 1"})
	}

	for category, limit := range cfg.MaxAttempts {
		if !recognizedCategories[category] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("max_attempts.%s", category),
				Message: fmt.Sprintf("unrecognized category %q", category),
			})
		}
		if limit < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("max_attempts.%s", category),
				Message: "must not be negative",
			})
		}
	}

	for category, strategy := range cfg.Strategies {
		prefix := fmt.Sprintf("strategies.%s", category)
		if !recognizedCategories[category] {
			errs = append(errs, ValidationError{Field: prefix, Message: fmt.Sprintf("unrecognized category %q", category)})
		}
		if strategy.Command == "" {
			errs = append(errs, ValidationError{Field: prefix + ".command", Message: "is required"})
		}
		if strategy.Timeout != "" {
			if _, err := time.ParseDuration(strategy.Timeout); err != nil {
				errs = append(errs, ValidationError{Field: prefix + ".timeout", Message: fmt.Sprintf("invalid duration %q", strategy.Timeout)})
			}
		}
	}

	for i, rule := range cfg.ClassifyRules {
		prefix := fmt.Sprintf("classify_rules[%d]", i)
		if rule.Pattern == "" {
			errs = append(errs, ValidationError{Field: prefix + ".pattern", Message: "is required"})
		} else if _, err := regexp.Compile(rule.Pattern); err != nil {
			errs = append(errs, ValidationError{Field: prefix + ".pattern", Message: fmt.Sprintf("invalid pattern: %v", err)})
		}
		if !recognizedCategories[rule.Category] {
			errs = append(errs, ValidationError{Field: prefix + ".category", Message: fmt.Sprintf("unrecognized category %q", rule.Category)})
		}
	}

	return errs
}

// validRepo reports whether s has the owner/name shape.
func validRepo(s string) bool {
	parts := strings.Split(s, "/")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}
