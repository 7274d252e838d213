package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mendloop.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
repo: octocat/hello-world
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Repo != "octocat/hello-world" {
		t.Errorf("expected repo octocat/hello-world, got %q", cfg.Repo)
	}
	if cfg.MaxIterations != 10 {
		t.Errorf("expected default max_iterations 10, got %d", cfg.MaxIterations)
	}
	if cfg.Timeout != "1h" {
		t.Errorf("expected default timeout 1h, got %q", cfg.Timeout)
	}
	if cfg.Backoff.Strategy != "exponential" {
		t.Errorf("expected default backoff exponential, got %q", cfg.Backoff.Strategy)
	}
	if cfg.Backoff.Multiplier != 2 {
		t.Errorf("expected default multiplier 2, got %v", cfg.Backoff.Multiplier)
	}
	if cfg.MaxAttempts["security"] != 1 {
		t.Errorf("expected default security attempts 1, got %d", cfg.MaxAttempts["security"])
	}
	if cfg.MaxAttempts["test"] != 3 {
		t.Errorf("expected default test attempts 3, got %d", cfg.MaxAttempts["test"])
	}
}

func TestLoad_ExplicitValuesKept(t *testing.T) {
	path := writeConfig(t, `
repo: octocat/hello-world
max_iterations: 4
timeout: 30m
parallel: true
backoff:
  strategy: linear
  initial_delay: 5s
  max_delay: 1m
  multiplier: 3
max_attempts:
  test: 5
strategies:
  lint:
    command: npm run lint -- --fix
    timeout: 2m
classify_rules:
  - pattern: "^nightly-"
    category: performance
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.MaxIterations != 4 {
		t.Errorf("expected max_iterations 4, got %d", cfg.MaxIterations)
	}
	if !cfg.Parallel {
		t.Error("expected parallel true")
	}
	if cfg.Backoff.Strategy != "linear" {
		t.Errorf("expected linear backoff, got %q", cfg.Backoff.Strategy)
	}
	if cfg.MaxAttempts["test"] != 5 {
		t.Errorf("expected test attempts 5, got %d", cfg.MaxAttempts["test"])
	}
	// Unset categories still get defaults.
	if cfg.MaxAttempts["build"] != 2 {
		t.Errorf("expected default build attempts 2, got %d", cfg.MaxAttempts["build"])
	}
	if cfg.Strategies["lint"].Command != "npm run lint -- --fix" {
		t.Errorf("unexpected lint command %q", cfg.Strategies["lint"].Command)
	}
	if len(cfg.ClassifyRules) != 1 || cfg.ClassifyRules[0].Category != "performance" {
		t.Errorf("unexpected classify rules %+v", cfg.ClassifyRules)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "repo: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := &Config{Repo: "octocat/hello-world"}
	applyDefaults(cfg)

	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Repo:          "not-a-repo",
		MaxIterations: 0,
		Timeout:       "soon",
		Backoff: Backoff{
			Strategy:     "quadratic",
			InitialDelay: "2s",
			MaxDelay:     "never",
			Multiplier:   0.5,
		},
		MaxAttempts: map[string]int{"chaos": 1, "test": -1},
		Strategies: map[string]Strategy{
			"lint": {Command: ""},
		},
		ClassifyRules: []ClassifyRule{
			{Pattern: "(unclosed", Category: "test"},
			{Pattern: "ok", Category: "mystery"},
		},
	}

	errs := Validate(cfg)

	wantFields := []string{
		"repo",
		"max_iterations",
		"timeout",
		"backoff.strategy",
		"backoff.max_delay",
		"backoff.multiplier",
		"max_attempts.chaos",
		"max_attempts.test",
		"strategies.lint.command",
		"classify_rules[0].pattern",
		"classify_rules[1].category",
	}

	found := make(map[string]bool)
	for _, e := range errs {
		found[e.Field] = true
	}
	for _, f := range wantFields {
		if !found[f] {
			t.Errorf("expected validation error for %s, errors: %v", f, errs)
		}
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("90s", time.Minute); got != 90*time.Second {
		t.Errorf("expected 90s, got %s", got)
	}
	if got := Duration("", time.Minute); got != time.Minute {
		t.Errorf("expected fallback 1m, got %s", got)
	}
	if got := Duration("junk", time.Minute); got != time.Minute {
		t.Errorf("expected fallback for junk, got %s", got)
	}
}
