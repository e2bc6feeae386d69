package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/webcheck/internal/types"
)

func TestCatalogIsValid(t *testing.T) {
	engine, err := NewEngine(Catalog())
	require.NoError(t, err)

	ids := make([]string, 0)
	for _, r := range engine.Rules() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{
		"void-not-self-closed",
		"unkeyed-mapped-render",
		"dangerous-class-binding",
		"missing-auth-check",
		"missing-cors-headers",
		"missing-input-validation",
		"sensitive-logging",
		"unprotected-fetch",
		"missing-image-size-check",
		"missing-row-level-security",
		"direct-identity-table-reference",
		"missing-role-table",
		"unsafe-html-injection",
		"hardcoded-secret",
		"client-side-role-check",
		"fetch-without-timeout",
		"jwt-verification-disabled",
		"missing-validation-dependency",
	}, ids)
}

func TestCatalogSeverities(t *testing.T) {
	errorRules := map[string]bool{
		"missing-auth-check":              true,
		"sensitive-logging":               true,
		"unprotected-fetch":               true,
		"direct-identity-table-reference": true,
		"unsafe-html-injection":           true,
		"hardcoded-secret":                true,
		"jwt-verification-disabled":       true,
	}

	for _, r := range Catalog() {
		if errorRules[r.ID] {
			assert.Equal(t, types.SeverityError, r.Severity, r.ID)
			require.NotNil(t, r.Fix, "error rule %s should carry a fix", r.ID)
			assert.NotEmpty(t, r.Fix(), r.ID)
		} else {
			assert.Equal(t, types.SeverityWarning, r.Severity, r.ID)
		}
	}
}

func TestNewEngineRejectsBadRules(t *testing.T) {
	noop := func(string, string) []types.Finding { return nil }
	good := Rule{ID: "a", Category: types.CategoryJSX, Severity: types.SeverityWarning, Target: ComponentFiles, Detect: noop}

	_, err := NewEngine([]Rule{good, good})
	assert.ErrorContains(t, err, "already registered")

	missingDetector := good
	missingDetector.Detect = nil
	_, err = NewEngine([]Rule{missingDetector})
	assert.Error(t, err)

	badGlob := good
	badGlob.Target = Target{Name: "bad", Globs: []string{"src/[x"}}
	_, err = NewEngine([]Rule{badGlob})
	assert.Error(t, err)

	badCategory := good
	badCategory.Category = "style"
	_, err = NewEngine([]Rule{badCategory})
	assert.Error(t, err)
}

func TestEngineRunDropsInvalidFindings(t *testing.T) {
	detect := func(string, string) []types.Finding {
		return []types.Finding{{Line: -1, Message: "bad"}, {Line: 2, Message: "good"}}
	}
	engine, err := NewEngine([]Rule{{
		ID: "a", Category: types.CategoryJSX, Severity: types.SeverityWarning, Target: ComponentFiles, Detect: detect,
	}})
	require.NoError(t, err)

	findings := engine.Run(types.CategoryJSX, "src/App.tsx", "")
	require.Len(t, findings, 1)
	assert.Equal(t, "good", findings[0].Message)
}

func TestTargetMatches(t *testing.T) {
	tests := []struct {
		target Target
		path   string
		want   bool
	}{
		{ComponentFiles, "src/App.tsx", true},
		{ComponentFiles, "src/pages/deep/Profile.jsx", true},
		{ComponentFiles, "src/lib/api.ts", false},
		{ComponentFiles, "lib/App.tsx", false},
		{ServerHandlers, "supabase/functions/scrape/index.ts", true},
		{ServerHandlers, "supabase/functions/_shared/cors.ts", false},
		{MigrationFiles, "supabase/migrations/20240101_init.sql", true},
		{MigrationFiles, "supabase/migrations/old/x.sql", false},
		{SourceFiles, "src/lib/api.ts", true},
		{SourceFiles, "./src/App.tsx", true},
		{SourceFiles, "src/App.jsx", false},
		{ConfigFiles, "supabase/config.toml", true},
		{DependencyManifest, "package.json", true},
		{DependencyManifest, "web/package.json", false},
	}

	for _, tt := range tests {
		t.Run(tt.target.Name+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.Matches(tt.path))
		})
	}
}

func TestEngineRunStampsFindings(t *testing.T) {
	engine := Default()

	findings := engine.Run(types.CategoryEdgeFunction, "supabase/functions/scrape/index.ts", "serve(async (req) => {})")
	require.NotEmpty(t, findings)

	auth := findings[0]
	assert.Equal(t, "missing-auth-check", auth.RuleID)
	assert.Equal(t, types.CategoryEdgeFunction, auth.Category)
	assert.Equal(t, types.SeverityError, auth.Severity)
	assert.Equal(t, "supabase/functions/scrape/index.ts", auth.FilePath)
	assert.Equal(t, 1, auth.Line)
	assert.Contains(t, auth.Message, "'scrape'")
	assert.Contains(t, auth.FixSuggestion, "supabase.auth.getUser()")

	for _, f := range findings {
		assert.NoError(t, f.Validate())
	}
}

func TestEngineRunIgnoresOtherCategoriesAndTargets(t *testing.T) {
	engine := Default()

	// A component file is not a handler, so edge rules never fire on it
	assert.Empty(t, engine.Run(types.CategoryEdgeFunction, "src/App.tsx", "fetch(url)"))

	// Category filter: jsx rules only
	findings := engine.Run(types.CategoryJSX, "src/App.tsx", "<br>\nfetch(url)")
	require.Len(t, findings, 1)
	assert.Equal(t, "void-not-self-closed", findings[0].RuleID)
}

func TestEngineRulesAreIndependent(t *testing.T) {
	engine := Default()
	content := "serve(async (req) => {\n  const { url } = await req.json();\n  console.log(req.body);\n  const r = await fetch(url);\n  const imageBase64 = x;\n})"

	findings := engine.Run(types.CategoryEdgeFunction, "supabase/functions/a/index.ts", content)

	var ids []string
	for _, f := range findings {
		ids = append(ids, f.RuleID)
	}
	assert.Equal(t, []string{
		"missing-auth-check",
		"missing-cors-headers",
		"missing-input-validation",
		"sensitive-logging",
		"unprotected-fetch",
		"missing-image-size-check",
	}, ids)
}

func TestEngineCategoriesAndGlobs(t *testing.T) {
	engine := Default()

	assert.Equal(t, []types.Category{types.CategoryJSX, types.CategoryFrontend}, engine.Categories("src/App.tsx"))
	assert.Equal(t, []types.Category{types.CategoryFrontend}, engine.Categories("src/lib/api.ts"))
	assert.Equal(t, []types.Category{types.CategoryEdgeFunction}, engine.Categories("supabase/functions/a/index.ts"))
	assert.Equal(t, []types.Category{types.CategoryConfigSecurity}, engine.Categories("package.json"))
	assert.Empty(t, engine.Categories("README.md"))

	assert.Equal(t, []string{"src/**/*.{tsx,jsx}"}, engine.Globs(types.CategoryJSX))
	assert.Equal(t, []string{"supabase/config.toml", "package.json"}, engine.Globs(types.CategoryConfigSecurity))
}

func TestEngineRuleLookup(t *testing.T) {
	engine := Default()

	r, ok := engine.Rule("hardcoded-secret")
	require.True(t, ok)
	assert.Equal(t, types.CategoryFrontend, r.Category)

	_, ok = engine.Rule("nope")
	assert.False(t, ok)
}

func TestLineHelpers(t *testing.T) {
	content := "a\nb\nc fetch(\n"
	assert.Equal(t, 3, lineOf(content, "fetch("))
	assert.Equal(t, 0, lineOf(content, "missing"))
	assert.Equal(t, 1, lineAt(content, 0))
	assert.Equal(t, 2, lineAt(content, 2))

	assert.Equal(t, "scrape-recipe", handlerName("supabase/functions/scrape-recipe/index.ts"))
	assert.Equal(t, "nested", handlerName("supabase/functions/nested/v2/index.ts"))
	assert.Equal(t, "x", handlerName("other/x/index.ts"))
}
