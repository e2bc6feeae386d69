// Package storage keeps local state for the watcher: the sqlite run history
// and the PID lock file that marks a running watch process.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/steveyegge/webcheck/internal/types"
)

// timeLayout is fixed width so started_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RunRecord is the summary of one validation run kept in the history database
type RunRecord struct {
	RunID        string
	Mode         types.RunMode
	Target       string
	StartedAt    time.Time
	Duration     time.Duration
	FilesChecked int
	ErrorCount   int
	WarningCount int
	Success      bool
}

// History stores run records in SQLite
type History struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := "file:" + filepath.ToSlash(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the database
func (h *History) Close() error {
	return h.db.Close()
}

// RecordRun stores the summary of report. Recording the same run twice
// replaces the earlier row.
func (h *History) RecordRun(ctx context.Context, report *types.Report) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	success := 0
	if report.Success {
		success = 1
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			run_id, mode, target, started_at, duration_ms,
			files_checked, error_count, warning_count, success
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID,
		string(report.Mode),
		report.Target,
		report.Timestamp.UTC().Format(timeLayout),
		report.Duration.Milliseconds(),
		report.FilesChecked,
		len(report.Errors()),
		len(report.Warnings()),
		success,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", report.RunID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first
func (h *History) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive (got %d)", limit)
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT run_id, mode, target, started_at, duration_ms,
		       files_checked, error_count, warning_count, success
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			r          RunRecord
			mode       string
			startedAt  string
			durationMs int64
			success    int
		)
		if err := rows.Scan(&r.RunID, &mode, &r.Target, &startedAt, &durationMs,
			&r.FilesChecked, &r.ErrorCount, &r.WarningCount, &success); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		r.Mode = types.RunMode(mode)
		r.StartedAt, err = time.Parse(timeLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("run %s has invalid started_at %q: %w", r.RunID, startedAt, err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.Success = success == 1
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// PruneRuns deletes all but the newest keep runs and returns how many were removed
func (h *History) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must be non-negative (got %d)", keep)
	}

	result, err := h.db.ExecContext(ctx, `
		DELETE FROM runs
		WHERE run_id NOT IN (
			SELECT run_id FROM runs
			ORDER BY started_at DESC, rowid DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
