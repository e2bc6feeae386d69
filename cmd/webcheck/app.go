package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/steveyegge/webcheck/internal/config"
	"github.com/steveyegge/webcheck/internal/gates"
	"github.com/steveyegge/webcheck/internal/report"
	"github.com/steveyegge/webcheck/internal/storage"
	"github.com/steveyegge/webcheck/internal/validator"
)

// historyFile is the run history database inside the state directory
const historyFile = "history.db"

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	root       string
	configPath string
	fix        bool
}

func readGlobalOptions(cmd *cobra.Command) globalOptions {
	root, _ := cmd.Flags().GetString("root")
	configPath, _ := cmd.Flags().GetString("config")
	fix, _ := cmd.Flags().GetBool("fix")
	return globalOptions{root: root, configPath: configPath, fix: fix}
}

// app wires the configured components for one command invocation
type app struct {
	root      string
	cfg       config.Config
	validator *validator.Validator
	sink      *report.Sink
	history   *storage.History
}

type appOptions struct {
	globalOptions
	noBuild bool
	out     io.Writer // Summary destination; nil disables the summary
}

func newApp(opts appOptions) (*app, error) {
	root, err := filepath.Abs(opts.root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	cfg, err := config.Load(root, opts.configPath)
	if err != nil {
		return nil, err
	}

	runner, err := gates.NewRunner(&gates.Config{
		WorkingDir:       root,
		TypeCheckCommand: cfg.TypeCheckCommand,
		BuildCommand:     cfg.BuildCommand,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gate runner: %w", err)
	}

	v, err := validator.New(&validator.Config{
		Root:         root,
		Gates:        runner,
		ExcludeGlobs: cfg.ExcludeGlobs,
		SkipBuild:    opts.noBuild,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	a := &app{root: root, cfg: cfg, validator: v}

	sinkOpts := report.Options{
		Path:      filepath.Join(root, filepath.FromSlash(cfg.ReportPath)),
		Out:       opts.out,
		ShowFixes: opts.fix,
	}
	if cfg.Notifications {
		sinkOpts.Notifier = report.NewNotifier(os.Stdout)
	}

	history, err := storage.Open(filepath.Join(root, config.StateDir, historyFile))
	if err != nil {
		// History is informational; validation works without it
		log.Printf("Warning: run history disabled: %v", err)
	} else {
		a.history = history
		sinkOpts.History = history
	}

	a.sink, err = report.NewSink(sinkOpts)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *app) stateDir() string {
	return filepath.Join(a.root, config.StateDir)
}

// Close releases the history database
func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			log.Printf("Warning: failed to close run history: %v", err)
		}
	}
}
