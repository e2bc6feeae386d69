package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/webcheck/internal/rules"
	"github.com/steveyegge/webcheck/internal/types"
)

func TestPrintRulesListsCatalog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRules(&buf, "", false))

	for _, r := range rules.Catalog() {
		assert.Contains(t, buf.String(), r.ID)
	}
	assert.NotContains(t, buf.String(), "fix:")
}

func TestPrintRulesCategoryFilter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRules(&buf, types.CategoryDatabase, true))

	out := buf.String()
	assert.Contains(t, out, "missing-row-level-security")
	assert.Contains(t, out, "fix: ALTER TABLE <table_name> ENABLE ROW LEVEL SECURITY;")
	assert.NotContains(t, out, "missing-auth-check")

	assert.Error(t, printRules(&buf, "style", false))
}

func TestPrintRule(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRule(&buf, "unprotected-fetch"))

	out := buf.String()
	assert.Contains(t, out, "Category: edge-function-security")
	assert.Contains(t, out, "Severity: error")
	assert.Contains(t, out, "supabase/functions/**/index.ts")
	assert.Contains(t, out, "    const ALLOWED_DOMAINS = ['example.com'];")

	assert.ErrorContains(t, printRule(&buf, "nope"), "unknown rule")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "one", firstLine("one"))
	assert.Equal(t, "one ...", firstLine("one\ntwo"))
}
