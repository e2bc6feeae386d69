package types

import (
	"fmt"
	"strings"
)

// Category groups findings by the part of the project they concern
type Category string

const (
	CategoryJSX            Category = "jsx-correctness"
	CategoryEdgeFunction   Category = "edge-function-security"
	CategoryDatabase       Category = "database-security"
	CategoryFrontend       Category = "frontend-security"
	CategoryConfigSecurity Category = "config-security"
)

// AllCategories lists categories in the order a full run evaluates them
var AllCategories = []Category{
	CategoryJSX,
	CategoryEdgeFunction,
	CategoryDatabase,
	CategoryFrontend,
	CategoryConfigSecurity,
}

// IsValid checks if the category value is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryJSX, CategoryEdgeFunction, CategoryDatabase, CategoryFrontend, CategoryConfigSecurity:
		return true
	}
	return false
}

// Severity of a finding. Only errors fail a run.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// IsValid checks if the severity value is valid
func (s Severity) IsValid() bool {
	return s == SeverityError || s == SeverityWarning
}

// Finding is one detected issue in the analyzed project.
//
// SeverityError is reserved for build-breaking or exploitable conditions;
// heuristic and stylistic issues are always warnings.
type Finding struct {
	RuleID        string   `json:"rule_id"`
	Category      Category `json:"category"`
	Severity      Severity `json:"severity"`
	FilePath      string   `json:"file_path"`
	Line          int      `json:"line,omitempty"`
	Column        int      `json:"column,omitempty"`
	Message       string   `json:"message"`
	FixSuggestion string   `json:"fix_suggestion,omitempty"`
}

// Validate checks if the finding has valid field values
func (f *Finding) Validate() error {
	if f.RuleID == "" {
		return fmt.Errorf("rule_id is required")
	}
	if !f.Category.IsValid() {
		return fmt.Errorf("invalid category: %s", f.Category)
	}
	if !f.Severity.IsValid() {
		return fmt.Errorf("invalid severity: %s", f.Severity)
	}
	if f.Line < 0 || f.Column < 0 {
		return fmt.Errorf("line and column cannot be negative")
	}
	return nil
}

// IsError reports whether the finding fails a run
func (f *Finding) IsError() bool {
	return f.Severity == SeverityError
}

// String renders the finding as "file:line:col - message".
// Location parts that are unknown are left out. This is the form stored in
// the persisted report, so it must stay stable across runs.
func (f Finding) String() string {
	var loc strings.Builder
	loc.WriteString(f.FilePath)
	if f.Line > 0 {
		fmt.Fprintf(&loc, ":%d", f.Line)
		if f.Column > 0 {
			fmt.Fprintf(&loc, ":%d", f.Column)
		}
	}
	if loc.Len() == 0 {
		return f.Message
	}
	return loc.String() + " - " + f.Message
}
