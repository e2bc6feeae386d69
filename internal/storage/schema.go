package storage

const schema = `
-- One row per completed validation run
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    mode TEXT NOT NULL CHECK(mode IN ('full', 'targeted')),
    target TEXT NOT NULL DEFAULT '',
    started_at TEXT NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    files_checked INTEGER NOT NULL DEFAULT 0,
    error_count INTEGER NOT NULL DEFAULT 0,
    warning_count INTEGER NOT NULL DEFAULT 0,
    success INTEGER NOT NULL CHECK(success IN (0, 1))
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
