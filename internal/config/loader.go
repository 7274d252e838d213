package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a mendloop configuration from the given YAML file
// path. After parsing, it fills in defaults for anything unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./mendloop.yaml, ~/.mendloop/config.yaml.
// If none exists, an all-defaults config is returned.
func LoadDefault() (*Config, error) {
	candidates := []string{"mendloop.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".mendloop", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &Config{}
	applyDefaults(cfg)
	return cfg, nil
}

// defaultMaxAttempts is the per-category attempt cap used when the config
// does not set one. Security gets a single attempt: a security fix that
// didn't take needs a human, not a loop.
var defaultMaxAttempts = map[string]int{
	"security":    1,
	"build":       2,
	"test":        3,
	"lint":        2,
	"performance": 3,
}

// applyDefaults fills unset fields with the documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 10
	}
	if cfg.Timeout == "" {
		cfg.Timeout = "1h"
	}

	if cfg.Backoff.Strategy == "" {
		cfg.Backoff.Strategy = "exponential"
	}
	if cfg.Backoff.InitialDelay == "" {
		cfg.Backoff.InitialDelay = "2s"
	}
	if cfg.Backoff.MaxDelay == "" {
		cfg.Backoff.MaxDelay = "5m"
	}
	if cfg.Backoff.Multiplier == 0 {
		cfg.Backoff.Multiplier = 2
	}

	if cfg.MaxAttempts == nil {
		cfg.MaxAttempts = make(map[string]int)
	}
	for category, limit := range defaultMaxAttempts {
		if _, ok := cfg.MaxAttempts[category]; !ok {
			cfg.MaxAttempts[category] = limit
		}
	}
}

// Duration parses a duration string, falling back to a default for empty
// or malformed values. Validation reports malformed values separately;
// runtime wiring uses the fallback so a run never stalls on a parse error.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
