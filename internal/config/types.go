package config

// Config is the top-level configuration parsed from mendloop YAML. It is
// constructed once at startup (file plus CLI flag overrides) and passed by
// reference into the components that need it; nothing reads ambient state.
type Config struct {
	// Repo is the GitHub repository in "owner/name" form.
	Repo string `yaml:"repo"`

	// MaxIterations caps the number of remediation passes per run.
	MaxIterations int `yaml:"max_iterations"`

	// Timeout is the wall-clock deadline for a whole run (Go duration string).
	Timeout string `yaml:"timeout"`

	// Parallel dispatches remediations for different categories concurrently.
	Parallel bool `yaml:"parallel"`

	// PerFailureCounters switches attempt counters from one-per-category to
	// one-per-failure-instance.
	PerFailureCounters bool `yaml:"per_failure_counters"`

	Backoff Backoff `yaml:"backoff"`

	// MaxAttempts caps remediation attempts per category, keyed by
	// category name.
	MaxAttempts map[string]int `yaml:"max_attempts"`

	// Strategies binds remediation commands to categories.
	Strategies map[string]Strategy `yaml:"strategies"`

	// ClassifyRules are custom classification rules consulted before the
	// built-in table.
	ClassifyRules []ClassifyRule `yaml:"classify_rules"`
}

// Backoff configures the delay between passes.
type Backoff struct {
	Strategy     string  `yaml:"strategy"`
	InitialDelay string  `yaml:"initial_delay"`
	MaxDelay     string  `yaml:"max_delay"`
	Multiplier   float64 `yaml:"multiplier"`
}

// Strategy defines the remediation command for one failure category.
type Strategy struct {
	Command string `yaml:"command"`
	Workdir string `yaml:"workdir"`
	Timeout string `yaml:"timeout"`
}

// ClassifyRule maps check names matching a regexp pattern to a category.
type ClassifyRule struct {
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"`
}
