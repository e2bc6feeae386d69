package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/steveyegge/webcheck/internal/types"
)

func TestRenderSummaryGroupsBySeverity(t *testing.T) {
	var buf bytes.Buffer
	r := types.NewReport(types.RunFull, "", time.Now(), 12, []types.Finding{corsWarning, authError})

	RenderSummary(&buf, r, false)
	out := buf.String()

	assert.Contains(t, out, "full run: 12 file(s) checked")
	assert.Contains(t, out, "REAL ERRORS")
	assert.Contains(t, out, "WARNINGS")
	assert.Contains(t, out, authError.String()+" [missing-auth-check]")
	assert.Contains(t, out, "1 real error(s), 1 warning(s)")
	assert.NotContains(t, out, "Fix:")

	// Errors are listed before warnings regardless of report order
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("missing-auth-check")), bytes.Index(buf.Bytes(), []byte("missing-cors-headers")))
}

func TestRenderSummaryShowFixes(t *testing.T) {
	var buf bytes.Buffer
	r := types.NewReport(types.RunTargeted, "supabase/functions/scrape/index.ts", time.Now(), 1, []types.Finding{authError})

	RenderSummary(&buf, r, true)
	out := buf.String()

	assert.Contains(t, out, "targeted run (supabase/functions/scrape/index.ts)")
	assert.Contains(t, out, "Fix:")
	assert.Contains(t, out, "await supabase.auth.getUser();")
}

func TestRenderSummaryClean(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, types.NewReport(types.RunFull, "", time.Now(), 3, nil), true)

	assert.Contains(t, buf.String(), "All checks passed")
	assert.NotContains(t, buf.String(), "REAL ERRORS")
	assert.NotContains(t, buf.String(), "WARNINGS")
}

func TestRenderSummaryWarningsOnly(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, types.NewReport(types.RunFull, "", time.Now(), 3, []types.Finding{corsWarning}), false)

	assert.Contains(t, buf.String(), "No real errors, 1 warning(s)")
}
