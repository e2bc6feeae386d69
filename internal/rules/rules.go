// Package rules holds the pattern rule catalog and the engine that applies it.
//
// Every rule is a pure function from file text to findings. Rules never look
// at a syntax tree and never see each other's output, so each one can be
// tested in isolation and the order they run in does not matter.
package rules

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/steveyegge/webcheck/internal/types"
)

// Target is a named set of globs a rule applies to.
// Globs are matched against slash-separated paths relative to the project root.
type Target struct {
	Name  string
	Globs []string
}

// Matches reports whether path falls under any of the target's globs
func (t Target) Matches(path string) bool {
	clean := filepath.ToSlash(strings.TrimPrefix(path, "./"))
	for _, g := range t.Globs {
		if ok, _ := doublestar.Match(g, clean); ok {
			return true
		}
	}
	return false
}

// Detector inspects one file and returns the problems it sees.
// Only Line, Column and Message need to be set; the engine fills in the
// rule identity, file path and fix suggestion.
type Detector func(content, path string) []types.Finding

// Rule is one entry of the catalog
type Rule struct {
	ID          string
	Category    types.Category
	Severity    types.Severity
	Target      Target
	Description string
	Detect      Detector
	Fix         func() string // Optional: static fix snippet
}

// Validate checks the rule definition is complete
func (r Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if !r.Category.IsValid() {
		return fmt.Errorf("rule %s: invalid category %q", r.ID, r.Category)
	}
	if !r.Severity.IsValid() {
		return fmt.Errorf("rule %s: invalid severity %q", r.ID, r.Severity)
	}
	if len(r.Target.Globs) == 0 {
		return fmt.Errorf("rule %s: target has no globs", r.ID)
	}
	for _, g := range r.Target.Globs {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("rule %s: invalid glob %q", r.ID, g)
		}
	}
	if r.Detect == nil {
		return fmt.Errorf("rule %s: detector is required", r.ID)
	}
	return nil
}

// Engine applies a fixed set of rules. It is immutable once built and safe
// for concurrent use.
type Engine struct {
	rules []Rule
}

// NewEngine builds an engine from rules, rejecting invalid or duplicate entries
func NewEngine(rules []Rule) (*Engine, error) {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("rule %q already registered", r.ID)
		}
		seen[r.ID] = true
	}

	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &Engine{rules: copied}, nil
}

// Default returns an engine loaded with the built-in catalog
func Default() *Engine {
	e, err := NewEngine(Catalog())
	if err != nil {
		panic(fmt.Sprintf("built-in rule catalog is invalid: %v", err))
	}
	return e
}

// Rules returns the rules in catalog order
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Rule looks up a rule by id
func (e *Engine) Rule(id string) (Rule, bool) {
	for _, r := range e.rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// Globs returns the distinct globs targeted by rules in category
func (e *Engine) Globs(category types.Category) []string {
	var globs []string
	seen := make(map[string]bool)
	for _, r := range e.rules {
		if r.Category != category {
			continue
		}
		for _, g := range r.Target.Globs {
			if !seen[g] {
				seen[g] = true
				globs = append(globs, g)
			}
		}
	}
	return globs
}

// Categories returns the categories with at least one rule targeting path
func (e *Engine) Categories(path string) []types.Category {
	var out []types.Category
	for _, c := range types.AllCategories {
		for _, r := range e.rules {
			if r.Category == c && r.Target.Matches(path) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Run applies every rule of category whose target matches filePath.
// Findings come back in catalog order, then detector order.
func (e *Engine) Run(category types.Category, filePath, content string) []types.Finding {
	path := filepath.ToSlash(filePath)

	var findings []types.Finding
	for _, r := range e.rules {
		if r.Category != category || !r.Target.Matches(path) {
			continue
		}

		for _, f := range r.Detect(content, path) {
			f.RuleID = r.ID
			f.Category = r.Category
			f.Severity = r.Severity
			f.FilePath = path
			if r.Fix != nil {
				f.FixSuggestion = r.Fix()
			}
			if err := f.Validate(); err != nil {
				log.Printf("Warning: rule %s produced an invalid finding for %s: %v", r.ID, path, err)
				continue
			}
			findings = append(findings, f)
		}
	}
	return findings
}
