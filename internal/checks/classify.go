package checks

import (
	"fmt"
	"regexp"
	"sort"
)

// Category is the closed classification of a failing check. The numeric
// value doubles as remediation priority: lower is more urgent.
type Category int

const (
	Security Category = iota + 1
	Build
	Test
	Lint
	Performance
	Unknown
)

// categoryNames maps categories to their canonical config/JSON names.
var categoryNames = map[Category]string{
	Security:    "security",
	Build:       "build",
	Test:        "test",
	Lint:        "lint",
	Performance: "performance",
	Unknown:     "unknown",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Priority returns the remediation priority for the category (1 = highest).
func (c Category) Priority() int {
	return int(c)
}

// MarshalText implements encoding.TextMarshaler so categories serialize
// by name in JSON records.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Categories lists all categories in priority order.
func Categories() []Category {
	return []Category{Security, Build, Test, Lint, Performance, Unknown}
}

// ParseCategory resolves a category by its canonical name.
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unrecognized category %q", name)
}

// ClassifiedFailure is a RawFailure with its category and priority assigned.
type ClassifiedFailure struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Priority int      `json:"priority"`
	Detail   string   `json:"detail,omitempty"`
}

// Rule maps check names matching a pattern to a category. Rules are
// evaluated in order; the first match wins.
type Rule struct {
	Pattern  *regexp.Regexp
	Category Category
}

// MustRule compiles a rule, panicking on a bad pattern. For the built-in
// rule table only; config-supplied patterns go through CompileRule.
func MustRule(pattern string, category Category) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Category: category}
}

// CompileRule compiles a config-supplied rule.
func CompileRule(pattern string, category Category) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compile rule pattern %q: %w", pattern, err)
	}
	return Rule{Pattern: re, Category: category}, nil
}

// DefaultRules returns the built-in classification table. Patterns match
// the check names CI systems commonly use; anything unmatched falls
// through to Unknown.
func DefaultRules() []Rule {
	return []Rule{
		MustRule(`(?i)security|codeql|audit|vulnerab|snyk|trivy|gitleaks`, Security),
		MustRule(`(?i)build|compile|docker|bundle`, Build),
		MustRule(`(?i)test|spec|vitest|jest|pytest|coverage`, Test),
		MustRule(`(?i)lint|eslint|prettier|format|fmt|style|vet`, Lint),
		MustRule(`(?i)perf|benchmark|lighthouse|load`, Performance),
	}
}

// Classifier assigns categories to raw failures using an ordered rule list.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a Classifier. Custom rules are consulted before the
// built-in table, preserving first-match-wins semantics.
func NewClassifier(custom []Rule) *Classifier {
	return &Classifier{rules: append(append([]Rule{}, custom...), DefaultRules()...)}
}

// Classify maps raw failures to classified failures sorted by priority.
// The sort is stable: equal-priority failures keep their input order so
// remediation is deterministic.
func (c *Classifier) Classify(raw []RawFailure) []ClassifiedFailure {
	out := make([]ClassifiedFailure, 0, len(raw))
	for _, f := range raw {
		cat := c.categoryFor(f.Name)
		out = append(out, ClassifiedFailure{
			Name:     f.Name,
			Category: cat,
			Priority: cat.Priority(),
			Detail:   f.Detail,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// categoryFor returns the category of the first matching rule, or Unknown.
func (c *Classifier) categoryFor(name string) Category {
	for _, r := range c.rules {
		if r.Pattern.MatchString(name) {
			return r.Category
		}
	}
	return Unknown
}
