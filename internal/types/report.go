package types

import (
	"time"

	"github.com/google/uuid"
)

// RunMode identifies how a validation run was scoped
type RunMode string

const (
	RunFull     RunMode = "full"
	RunTargeted RunMode = "targeted"
)

// Report is the aggregated, immutable result of one validation run.
// Success holds exactly when no finding has SeverityError.
type Report struct {
	RunID        string        `json:"run_id"`
	Mode         RunMode       `json:"mode"`
	Target       string        `json:"target,omitempty"` // path validated by a targeted run
	Timestamp    time.Time     `json:"timestamp"`
	Duration     time.Duration `json:"duration"`
	FilesChecked int           `json:"files_checked"`
	Findings     []Finding     `json:"findings"`
	Success      bool          `json:"success"`
}

// NewReport assembles a report and derives Success from the findings.
// The findings slice is copied so later mutation by the caller cannot leak in.
func NewReport(mode RunMode, target string, started time.Time, filesChecked int, findings []Finding) *Report {
	copied := make([]Finding, len(findings))
	copy(copied, findings)

	return &Report{
		RunID:        uuid.New().String(),
		Mode:         mode,
		Target:       target,
		Timestamp:    started.UTC(),
		Duration:     time.Since(started),
		FilesChecked: filesChecked,
		Findings:     copied,
		Success:      !hasErrors(copied),
	}
}

// Errors returns the error-severity findings in report order
func (r *Report) Errors() []Finding {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity findings in report order
func (r *Report) Warnings() []Finding {
	return r.filter(SeverityWarning)
}

func (r *Report) filter(sev Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

func hasErrors(findings []Finding) bool {
	for i := range findings {
		if findings[i].IsError() {
			return true
		}
	}
	return false
}
