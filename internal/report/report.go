// Package report delivers finished validation runs: it persists the latest
// report to disk, notifies about newly introduced errors, records run
// history and renders a console summary.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/steveyegge/webcheck/internal/types"
)

// Persisted is the on-disk report format. Findings are stored in their
// rendered "file:line:col - message" form.
type Persisted struct {
	Timestamp    string   `json:"timestamp"`
	FilesChecked int      `json:"filesChecked"`
	RealErrors   []string `json:"realErrors"`
	Warnings     []string `json:"warnings"`
	Success      bool     `json:"success"`
}

// FromReport converts a report to its persisted form
func FromReport(r *types.Report) *Persisted {
	p := &Persisted{
		Timestamp:    r.Timestamp.UTC().Format(time.RFC3339Nano),
		FilesChecked: r.FilesChecked,
		RealErrors:   []string{},
		Warnings:     []string{},
		Success:      r.Success,
	}
	for _, f := range r.Findings {
		if f.IsError() {
			p.RealErrors = append(p.RealErrors, f.String())
		} else {
			p.Warnings = append(p.Warnings, f.String())
		}
	}
	return p
}

// Load reads a persisted report. The error wraps os.ErrNotExist when no
// report has been written yet.
func Load(path string) (*Persisted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &p, nil
}

// Recorder stores run summaries
type Recorder interface {
	RecordRun(ctx context.Context, report *types.Report) error
}

// Options configures a Sink. Only Path is required.
type Options struct {
	Path      string    // Report file, overwritten on every run
	Notifier  Notifier  // Nil disables notifications
	History   Recorder  // Nil disables run history
	Out       io.Writer // Summary destination; nil disables rendering
	ShowFixes bool
}

// Sink is the single consumer of finished reports
type Sink struct {
	path      string
	notifier  Notifier
	history   Recorder
	out       io.Writer
	showFixes bool

	mu      sync.Mutex // serializes Handle
	handled time.Time  // start time of the newest handled run
}

// NewSink creates a sink from opts
func NewSink(opts Options) (*Sink, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("report path is required")
	}
	return &Sink{
		path:      opts.Path,
		notifier:  opts.Notifier,
		history:   opts.History,
		out:       opts.Out,
		showFixes: opts.ShowFixes,
	}, nil
}

// Path returns the report file location
func (s *Sink) Path() string {
	return s.path
}

// Persist atomically replaces the report file with r
func (s *Sink) Persist(r *types.Report) error {
	data, err := json.MarshalIndent(FromReport(r), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return writeFileAtomic(s.path, append(data, '\n'))
}

// Notify sends one notification summarizing newErrors.
// Delivery failures are logged and otherwise ignored.
func (s *Sink) Notify(ctx context.Context, newErrors []types.Finding) {
	if s.notifier == nil || len(newErrors) == 0 {
		return
	}

	title := "webcheck: new error detected"
	message := newErrors[0].String()
	if len(newErrors) > 1 {
		title = fmt.Sprintf("webcheck: %d new errors detected", len(newErrors))
		message = fmt.Sprintf("%s (and %d more)", message, len(newErrors)-1)
	}

	if err := s.notifier.Notify(ctx, title, message); err != nil {
		log.Printf("Warning: notification failed: %v", err)
	}
}

// Handle delivers a finished run: persist, notify, record history, render.
// Every step is best effort; none of them fail the run. Calls are
// serialized, and a run that started before the newest handled run is
// dropped so it never replaces a newer report.
func (s *Sink) Handle(ctx context.Context, r *types.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Timestamp.Before(s.handled) {
		log.Printf("Warning: dropping report of run %s: a newer run was already reported", r.RunID)
		return
	}
	s.handled = r.Timestamp

	previous, err := Load(s.path)
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: ignoring previous report: %v", err)
	}

	if err := s.Persist(r); err != nil {
		log.Printf("Warning: failed to persist report to %s: %v", s.path, err)
	}

	s.Notify(ctx, NewErrors(previous, r))

	if s.history != nil {
		if err := s.history.RecordRun(ctx, r); err != nil {
			log.Printf("Warning: failed to record run history: %v", err)
		}
	}

	if s.out != nil {
		RenderSummary(s.out, r, s.showFixes)
	}
}

// NewErrors returns the error findings of r whose rendered form is absent
// from previous. With no previous report every error is new.
func NewErrors(previous *Persisted, r *types.Report) []types.Finding {
	seen := make(map[string]bool)
	if previous != nil {
		for _, e := range previous.RealErrors {
			seen[e] = true
		}
	}

	var out []types.Finding
	for _, f := range r.Errors() {
		if !seen[f.String()] {
			out = append(out, f)
		}
	}
	return out
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over path, so readers never see a partial report.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod report: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace report: %w", err)
	}
	return nil
}
