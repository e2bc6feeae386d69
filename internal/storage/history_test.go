package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/webcheck/internal/types"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), ".webcheck", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func testReport(mode types.RunMode, started time.Time, findings ...types.Finding) *types.Report {
	r := types.NewReport(mode, "", started, 3, findings)
	r.Duration = 1500 * time.Millisecond
	return r
}

func TestRecordAndRecentRuns(t *testing.T) {
	ctx := context.Background()
	h := openTestHistory(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	failing := testReport(types.RunFull, base, types.Finding{
		RuleID: "missing-auth-check", Category: types.CategoryEdgeFunction,
		Severity: types.SeverityError, FilePath: "supabase/functions/a/index.ts", Message: "x",
	}, types.Finding{
		RuleID: "missing-cors-headers", Category: types.CategoryEdgeFunction,
		Severity: types.SeverityWarning, FilePath: "supabase/functions/a/index.ts", Message: "y",
	})
	passing := testReport(types.RunTargeted, base.Add(time.Minute))
	passing.Target = "src/App.tsx"

	require.NoError(t, h.RecordRun(ctx, failing))
	require.NoError(t, h.RecordRun(ctx, passing))

	runs, err := h.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, passing.RunID, runs[0].RunID)
	assert.Equal(t, types.RunTargeted, runs[0].Mode)
	assert.Equal(t, "src/App.tsx", runs[0].Target)
	assert.True(t, runs[0].Success)
	assert.True(t, runs[0].StartedAt.Equal(base.Add(time.Minute)))

	assert.Equal(t, failing.RunID, runs[1].RunID)
	assert.False(t, runs[1].Success)
	assert.Equal(t, 1, runs[1].ErrorCount)
	assert.Equal(t, 1, runs[1].WarningCount)
	assert.Equal(t, 3, runs[1].FilesChecked)
	assert.Equal(t, 1500*time.Millisecond, runs[1].Duration)
}

func TestRecentRunsLimit(t *testing.T) {
	ctx := context.Background()
	h := openTestHistory(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, h.RecordRun(ctx, testReport(types.RunFull, base.Add(time.Duration(i)*time.Second))))
	}

	runs, err := h.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))

	_, err = h.RecentRuns(ctx, 0)
	assert.Error(t, err)
}

func TestRecordRunReplacesSameID(t *testing.T) {
	ctx := context.Background()
	h := openTestHistory(t)

	r := testReport(types.RunFull, time.Now())
	require.NoError(t, h.RecordRun(ctx, r))
	require.NoError(t, h.RecordRun(ctx, r))

	runs, err := h.RecentRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	assert.Error(t, h.RecordRun(ctx, nil))
}

func TestPruneRuns(t *testing.T) {
	ctx := context.Background()
	h := openTestHistory(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var newest string
	for i := 0; i < 4; i++ {
		r := testReport(types.RunFull, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, h.RecordRun(ctx, r))
		newest = r.RunID
	}

	deleted, err := h.PruneRuns(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	runs, err := h.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, newest, runs[0].RunID)

	_, err = h.PruneRuns(ctx, -1)
	assert.Error(t, err)
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	h, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, h.RecordRun(ctx, testReport(types.RunFull, time.Now())))
	require.NoError(t, h.Close())

	h, err = Open(path)
	require.NoError(t, err)
	defer h.Close()

	runs, err := h.RecentRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
