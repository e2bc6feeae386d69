package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/webcheck/internal/config"
	"github.com/steveyegge/webcheck/internal/gates"
	"github.com/steveyegge/webcheck/internal/report"
	"github.com/steveyegge/webcheck/internal/storage"
	"github.com/steveyegge/webcheck/internal/types"
	"github.com/steveyegge/webcheck/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-validate the project continuously as files change",
}

var watchStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the watcher in the foreground",
	Long: `Start watching the project. A full validation runs first; after that every
change triggers a targeted run of the most recently changed file once edits
pause for the debounce delay, and a full run happens periodically.

Only one watcher can run per project; it holds .webcheck/watch.lock.

Example:
  $ webcheck watch start
  ✓ Watcher started (version 0.1.0)
    Debounce: 2s, full run every 30m0s
    Press Ctrl+C to stop`,
	Run: func(cmd *cobra.Command, args []string) {
		poll, _ := cmd.Flags().GetBool("poll")

		if err := startWatcher(readGlobalOptions(cmd), poll); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var watchStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the watcher state and recent runs",
	Run: func(cmd *cobra.Command, args []string) {
		if err := showWatchStatus(readGlobalOptions(cmd), os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var watchStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Gracefully stop a running watcher",
	Long: `Stop the watcher holding the project's lock file.

SIGINT is sent first; if the watcher has not exited when the timeout expires
it is killed with SIGKILL. A lock left behind by a dead watcher is removed.`,
	Run: func(cmd *cobra.Command, args []string) {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if err := stopWatcher(readGlobalOptions(cmd), timeout, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	watchStartCmd.Flags().Bool("poll", false, "Poll the file tree instead of using file system notifications")
	watchStopCmd.Flags().Duration("timeout", 30*time.Second, "Timeout for graceful shutdown before force kill")

	watchCmd.AddCommand(watchStartCmd, watchStatusCmd, watchStopCmd)
	rootCmd.AddCommand(watchCmd)
}

func startWatcher(opts globalOptions, poll bool) error {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	a, err := newApp(appOptions{globalOptions: opts, out: os.Stdout})
	if err != nil {
		return err
	}
	defer a.Close()

	lockPath, err := storage.AcquireWatchLock(a.stateDir(), version)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.ReleaseWatchLock(lockPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}()

	if a.history != nil {
		if _, err := a.history.PruneRuns(context.Background(), a.cfg.HistoryKeep); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to prune run history: %v\n", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Println("\n\nShutting down watcher...")
			cancel()
		case <-ctx.Done():
		}
	}()

	source, sourceName := eventSource(a, poll)

	scheduler, err := watcher.NewScheduler(&watcher.Config{
		Source:          source,
		Runner:          a.validator,
		OnReport:        a.sink.Handle,
		WatchGlobs:      a.cfg.WatchGlobs,
		ExcludeGlobs:    a.cfg.ExcludeGlobs,
		Debounce:        a.cfg.Debounce(),
		FullRunInterval: a.cfg.FullRunInterval(),
	})
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	printWatchBanner(os.Stdout, a, sourceName)

	// Initial full run; a failure here is reported but does not stop the watcher
	if r, err := a.validator.RunFull(ctx); err != nil {
		if ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "%s Initial validation failed: %v\n", yellow("⚠"), err)
			if gates.IsInfrastructure(err) {
				fmt.Fprintf(os.Stderr, "  Check typeCheckCommand and buildCommand in %s\n", config.DefaultFileName)
			}
		}
	} else {
		a.sink.Handle(ctx, r)
	}

	if err := scheduler.Run(ctx); err != nil {
		return err
	}

	fmt.Printf("%s Watcher stopped\n", green("✓"))
	return nil
}

func printWatchBanner(w io.Writer, a *app, sourceName string) {
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(w, "%s Watcher started (version %s)\n", green("✓"), cyan(version))
	fmt.Fprintf(w, "  Root: %s\n", a.root)
	fmt.Fprintf(w, "  Events: %s\n", sourceName)
	fmt.Fprintf(w, "  Debounce: %v, full run every %v\n", a.cfg.Debounce(), a.cfg.FullRunInterval())
	fmt.Fprintf(w, "  Report: %s\n", a.sink.Path())
	fmt.Fprintf(w, "  %s\n", a.cfg)
	fmt.Fprintf(w, "  Press Ctrl+C to stop\n")
}

// eventSource prefers file system notifications and falls back to polling
func eventSource(a *app, poll bool) (watcher.EventSource, string) {
	if !poll {
		src, err := watcher.NewFSNotifySource(a.root, a.cfg.ExcludeGlobs)
		if err == nil {
			return src, "file system notifications"
		}
		fmt.Fprintf(os.Stderr, "Warning: %v; falling back to polling\n", err)
	}
	interval := a.cfg.PollInterval()
	return watcher.NewPollSource(a.root, a.cfg.ExcludeGlobs, interval), fmt.Sprintf("polling every %v", interval)
}

func showWatchStatus(opts globalOptions, w io.Writer) error {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	root, err := filepath.Abs(opts.root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	cfg, err := config.Load(root, opts.configPath)
	if err != nil {
		return err
	}
	stateDir := filepath.Join(root, config.StateDir)

	fmt.Fprintf(w, "%s Watcher\n", cyan("▶"))
	lock, err := storage.ReadWatchLock(stateDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(w, "  %s Not running\n", yellow("ℹ"))
	case err != nil:
		return err
	case storage.IsProcessAlive(lock.PID, lock.Hostname):
		fmt.Fprintf(w, "  %s Running (PID %d on %s, version %s)\n", green("✓"), lock.PID, lock.Hostname, lock.Version)
		fmt.Fprintf(w, "  Started: %s ago\n", formatDuration(time.Since(lock.StartedAt)))
	default:
		fmt.Fprintf(w, "  %s Not running (stale lock from PID %d)\n", yellow("⚠"), lock.PID)
	}

	fmt.Fprintf(w, "\n%s Last report\n", cyan("▶"))
	reportPath := filepath.Join(root, filepath.FromSlash(cfg.ReportPath))
	last, err := report.Load(reportPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(w, "  No report yet (%s)\n", cfg.ReportPath)
	case err != nil:
		fmt.Fprintf(w, "  %s %v\n", red("✗"), err)
	default:
		status := green("passed")
		if !last.Success {
			status = red("failed")
		}
		fmt.Fprintf(w, "  %s at %s: %d file(s), %d real error(s), %d warning(s)\n",
			status, last.Timestamp, last.FilesChecked, len(last.RealErrors), len(last.Warnings))
	}

	historyPath := filepath.Join(stateDir, historyFile)
	if _, err := os.Stat(historyPath); err != nil {
		return nil
	}
	history, err := storage.Open(historyPath)
	if err != nil {
		return err
	}
	defer history.Close()

	runs, err := history.RecentRuns(context.Background(), 5)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\n%s Recent runs\n", cyan("▶"))
	for _, r := range runs {
		mark := green("✓")
		if !r.Success {
			mark = red("✗")
		}
		scope := string(r.Mode)
		if r.Mode == types.RunTargeted {
			scope = fmt.Sprintf("%s %s", r.Mode, r.Target)
		}
		fmt.Fprintf(w, "  %s %s ago  %-40s %d error(s), %d warning(s)\n",
			mark, formatDuration(time.Since(r.StartedAt)), scope, r.ErrorCount, r.WarningCount)
	}
	return nil
}

func stopWatcher(opts globalOptions, timeout time.Duration, w io.Writer) error {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	root, err := filepath.Abs(opts.root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	stateDir := filepath.Join(root, config.StateDir)

	lock, err := storage.ReadWatchLock(stateDir)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(w, "%s No running watcher found\n", yellow("ℹ"))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s Watcher\n", cyan("→"))
	fmt.Fprintf(w, "  PID: %d\n", lock.PID)
	fmt.Fprintf(w, "  Host: %s\n", lock.Hostname)
	fmt.Fprintf(w, "  Started: %s ago\n", formatDuration(time.Since(lock.StartedAt)))

	hostname, _ := os.Hostname()
	if !strings.EqualFold(hostname, lock.Hostname) {
		return fmt.Errorf("watcher runs on %s; stop it from that host", lock.Hostname)
	}
	if !storage.IsProcessAlive(lock.PID, lock.Hostname) {
		fmt.Fprintf(w, "%s Process not running (stale lock)\n", yellow("⚠"))
		if err := storage.ReleaseWatchLock(filepath.Join(stateDir, storage.WatchLockFile)); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s Stale lock removed\n", green("✓"))
		return nil
	}

	fmt.Fprintf(w, "Sending graceful shutdown signal (SIGINT)...\n")
	if err := syscall.Kill(lock.PID, syscall.SIGINT); err != nil {
		return fmt.Errorf("failed to send SIGINT: %w", err)
	}

	if err := waitForProcessExit(lock.PID, timeout); err != nil {
		fmt.Fprintf(w, "%s Graceful shutdown timeout after %s\n", yellow("⚠"), timeout)
		fmt.Fprintf(w, "Sending force kill signal (SIGKILL)...\n")
		if killErr := syscall.Kill(lock.PID, syscall.SIGKILL); killErr != nil {
			return fmt.Errorf("failed to send SIGKILL after timeout: %w", killErr)
		}
		if killWaitErr := waitForProcessExit(lock.PID, 5*time.Second); killWaitErr != nil {
			return fmt.Errorf("process did not exit even after SIGKILL: %w", killWaitErr)
		}
		// A killed watcher cannot clean up after itself
		if err := storage.ReleaseWatchLock(filepath.Join(stateDir, storage.WatchLockFile)); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "%s Watcher stopped\n", green("✓"))
	return nil
}

// waitForProcessExit waits for a process to exit, with timeout
func waitForProcessExit(pid int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	pollInterval := 100 * time.Millisecond
	hostname, _ := os.Hostname()

	for time.Now().Before(deadline) {
		if !storage.IsProcessAlive(pid, hostname) {
			return nil
		}
		time.Sleep(pollInterval)
	}

	return fmt.Errorf("timeout waiting for process %d to exit", pid)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%.1fd", d.Hours()/24)
}
