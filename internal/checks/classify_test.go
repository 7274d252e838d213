package checks

import (
	"testing"
)

func TestClassify_DefaultRules(t *testing.T) {
	c := NewClassifier(nil)

	cases := []struct {
		name string
		want Category
	}{
		{"security-scan", Security},
		{"CodeQL", Security},
		{"npm-audit", Security},
		{"build (ubuntu-latest)", Build},
		{"docker-image", Build},
		{"test-suite", Test},
		{"vitest", Test},
		{"eslint", Lint},
		{"go vet", Lint},
		{"lighthouse-ci", Performance},
		{"deploy-preview", Unknown},
	}

	for _, tc := range cases {
		got := c.Classify([]RawFailure{{Name: tc.name}})
		if len(got) != 1 {
			t.Fatalf("%s: expected 1 result, got %d", tc.name, len(got))
		}
		if got[0].Category != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got[0].Category)
		}
		if got[0].Priority != tc.want.Priority() {
			t.Errorf("%s: expected priority %d, got %d", tc.name, tc.want.Priority(), got[0].Priority)
		}
	}
}

func TestClassify_PriorityOrdering(t *testing.T) {
	c := NewClassifier(nil)

	// Input deliberately in reverse-priority order.
	raw := []RawFailure{
		{Name: "lighthouse-ci"},
		{Name: "eslint"},
		{Name: "test-suite"},
		{Name: "build"},
		{Name: "security-scan"},
	}

	got := c.Classify(raw)
	want := []Category{Security, Build, Test, Lint, Performance}
	for i, cat := range want {
		if got[i].Category != cat {
			t.Errorf("position %d: expected %s, got %s", i, cat, got[i].Category)
		}
	}
}

func TestClassify_StableForEqualPriority(t *testing.T) {
	c := NewClassifier(nil)

	raw := []RawFailure{
		{Name: "test-suite", Detail: "first"},
		{Name: "security-scan"},
		{Name: "vitest", Detail: "second"},
	}

	got := c.Classify(raw)
	if got[0].Category != Security {
		t.Fatalf("expected security first, got %s", got[0].Category)
	}
	// The two Test failures must keep their input order.
	if got[1].Name != "test-suite" || got[2].Name != "vitest" {
		t.Errorf("expected stable order [test-suite vitest], got [%s %s]", got[1].Name, got[2].Name)
	}
}

func TestClassify_CustomRulesWinOverBuiltins(t *testing.T) {
	rule, err := CompileRule(`^nightly-test$`, Performance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := NewClassifier([]Rule{rule})

	got := c.Classify([]RawFailure{{Name: "nightly-test"}})
	if got[0].Category != Performance {
		t.Errorf("expected custom rule to win, got %s", got[0].Category)
	}
}

func TestClassify_Empty(t *testing.T) {
	c := NewClassifier(nil)
	got := c.Classify(nil)
	if len(got) != 0 {
		t.Errorf("expected empty output, got %d", len(got))
	}
}

func TestParseCategory(t *testing.T) {
	for _, cat := range Categories() {
		parsed, err := ParseCategory(cat.String())
		if err != nil {
			t.Fatalf("parse %q: %v", cat.String(), err)
		}
		if parsed != cat {
			t.Errorf("round-trip %s: got %s", cat, parsed)
		}
	}

	if _, err := ParseCategory("bogus"); err == nil {
		t.Error("expected error for unrecognized category")
	}
}

func TestCompileRule_BadPattern(t *testing.T) {
	if _, err := CompileRule(`(unclosed`, Lint); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
