// Package watcher turns file system activity into validation runs.
//
// Events from an EventSource are filtered by glob, then debounced through a
// single shared timer: when it fires, only the most recently touched file is
// validated. A separate ticker requests a full run at a fixed period.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/steveyegge/webcheck/internal/gates"
	"github.com/steveyegge/webcheck/internal/types"
	"github.com/steveyegge/webcheck/internal/validator"
)

// EventKind classifies a file system event
type EventKind string

const (
	EventAdd    EventKind = "add"
	EventChange EventKind = "change"
	EventUnlink EventKind = "unlink"
)

// Event is a change to one file. Path is slash-separated and relative to
// the watched root.
type Event struct {
	Kind EventKind
	Path string
}

// EventSource produces events until ctx is cancelled.
// Run must not close events.
type EventSource interface {
	Run(ctx context.Context, events chan<- Event) error
}

// Runner executes validation runs. *validator.Validator implements it.
type Runner interface {
	RunFull(ctx context.Context) (*types.Report, error)
	RunTargeted(ctx context.Context, path string) (*types.Report, error)
}

// ReportHandler receives every completed report
type ReportHandler func(ctx context.Context, report *types.Report)

// WatchState is the scheduler's mutable state. It is owned by the loop
// goroutine and never shared.
type WatchState struct {
	PendingFile string
	LastFullRun time.Time
}

// Config holds scheduler configuration
type Config struct {
	Source          EventSource   // Required
	Runner          Runner        // Required
	OnReport        ReportHandler // Optional
	WatchGlobs      []string      // Events outside these are ignored
	ExcludeGlobs    []string      // Events inside these are ignored
	Debounce        time.Duration // Quiet period before a targeted run
	FullRunInterval time.Duration // Period of unconditional full runs
}

// Scheduler debounces file events into targeted runs and triggers periodic
// full runs
type Scheduler struct {
	source          EventSource
	runner          Runner
	onReport        ReportHandler
	watchGlobs      []string
	excludeGlobs    []string
	debounce        time.Duration
	fullRunInterval time.Duration

	state WatchState

	// busy covers a run and the handling of its report
	busy atomic.Bool
}

// NewScheduler creates a scheduler
func NewScheduler(cfg *Config) (*Scheduler, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("event source is required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if len(cfg.WatchGlobs) == 0 {
		return nil, fmt.Errorf("at least one watch glob is required")
	}
	for _, g := range append(append([]string{}, cfg.WatchGlobs...), cfg.ExcludeGlobs...) {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid glob %q", g)
		}
	}
	if cfg.Debounce <= 0 {
		return nil, fmt.Errorf("debounce must be positive (got %v)", cfg.Debounce)
	}
	if cfg.FullRunInterval <= 0 {
		return nil, fmt.Errorf("full run interval must be positive (got %v)", cfg.FullRunInterval)
	}

	return &Scheduler{
		source:          cfg.Source,
		runner:          cfg.Runner,
		onReport:        cfg.OnReport,
		watchGlobs:      cfg.WatchGlobs,
		excludeGlobs:    cfg.ExcludeGlobs,
		debounce:        cfg.Debounce,
		fullRunInterval: cfg.FullRunInterval,
	}, nil
}

// Run drives the scheduler until ctx is cancelled or the event source fails.
// It returns without waiting for a run that is still executing.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan Event, 64)
	sourceErr := make(chan error, 1)
	go func() {
		sourceErr <- s.source.Run(ctx, events)
	}()

	ticker := time.NewTicker(s.fullRunInterval)
	defer ticker.Stop()

	debounce := time.NewTimer(s.debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-sourceErr:
			if ctx.Err() != nil {
				return nil
			}
			if err == nil {
				err = errors.New("stopped unexpectedly")
			}
			return fmt.Errorf("event source: %w", err)

		case ev := <-events:
			rel, ok := s.accepts(ev)
			if !ok {
				continue
			}
			s.state.PendingFile = rel
			debounce.Reset(s.debounce)

		case <-debounce.C:
			path := s.state.PendingFile
			s.state.PendingFile = ""
			if path == "" {
				continue
			}
			s.launch(ctx, "targeted run of "+path, func(ctx context.Context) (*types.Report, error) {
				return s.runner.RunTargeted(ctx, path)
			})

		case now := <-ticker.C:
			s.state.LastFullRun = now
			s.launch(ctx, "full run", s.runner.RunFull)
		}
	}
}

// accepts reports whether ev should schedule a targeted run, returning the
// normalized path
func (s *Scheduler) accepts(ev Event) (string, bool) {
	if ev.Kind == EventUnlink {
		return "", false
	}
	rel := filepath.ToSlash(strings.TrimPrefix(ev.Path, "./"))
	if matchAny(s.excludeGlobs, rel) || !matchAny(s.watchGlobs, rel) {
		return "", false
	}
	return rel, true
}

// launch starts a run off the loop goroutine so event intake continues.
// A trigger arriving before the previous report has been handled is
// dropped, so report handlers never overlap.
func (s *Scheduler) launch(ctx context.Context, what string, run func(context.Context) (*types.Report, error)) {
	if !s.busy.CompareAndSwap(false, true) {
		log.Printf("Warning: skipped %s: another run is in progress", what)
		return
	}
	go func() {
		defer s.busy.Store(false)
		report, err := run(ctx)
		switch {
		case err == nil:
			if s.onReport != nil {
				s.onReport(ctx, report)
			}
		case errors.Is(err, validator.ErrRunInProgress):
			log.Printf("Warning: skipped %s: another run is in progress", what)
		case ctx.Err() != nil:
			// Shutting down
		case gates.IsInfrastructure(err):
			log.Printf("Warning: %s aborted: %v", what, err)
		default:
			log.Printf("Warning: %s failed: %v", what, err)
		}
	}()
}

func matchAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// excludedDir reports whether a directory lies inside an exclude glob.
// Globs are written for files, so a placeholder file name inside dir is matched.
func excludedDir(excludeGlobs []string, rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	return matchAny(excludeGlobs, rel+"/_")
}
