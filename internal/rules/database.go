package rules

import (
	"fmt"
	"regexp"

	"github.com/steveyegge/webcheck/internal/types"
)

var (
	createTable        = regexp.MustCompile(`(?i)\bCREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?((?:\w+\.)?\w+)`)
	authUsersMention   = regexp.MustCompile(`(?i)\bauth\.users\b`)
	authUsersForeign   = regexp.MustCompile(`(?i)\bREFERENCES\s+auth\.users\b`)
	userRolesTable     = regexp.MustCompile(`(?i)\buser_roles\b`)
	createTableKeyword = regexp.MustCompile(`(?i)\bCREATE\s+TABLE\b`)
)

// enableRLS matches the statement enabling row level security on exactly table
func enableRLS(table string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\bALTER\s+TABLE\s+(?:IF\s+EXISTS\s+)?(?:ONLY\s+)?` +
		regexp.QuoteMeta(table) + `\s+ENABLE\s+ROW\s+LEVEL\s+SECURITY\b`)
}

// detectMissingRLS reports each created table that never has row level
// security enabled in the same migration. Table names must match exactly,
// so public.recipes and recipes are different tables here.
func detectMissingRLS(content, _ string) []types.Finding {
	var findings []types.Finding
	seen := make(map[string]bool)

	for _, m := range createTable.FindAllStringSubmatchIndex(content, -1) {
		table := content[m[2]:m[3]]
		if seen[table] {
			continue
		}
		seen[table] = true

		if enableRLS(table).MatchString(content) {
			continue
		}
		findings = append(findings, types.Finding{
			Line:    lineAt(content, m[0]),
			Message: fmt.Sprintf("Table '%s' may lack RLS policies", table),
		})
	}

	return findings
}

// detectDirectAuthUsers flags auth.users mentions that are not the target of
// a REFERENCES clause.
func detectDirectAuthUsers(content, _ string) []types.Finding {
	foreign := authUsersForeign.FindAllStringIndex(content, -1)

	for _, m := range authUsersMention.FindAllStringIndex(content, -1) {
		if insideAny(m[0], foreign) {
			continue
		}
		return []types.Finding{{
			Line:    lineAt(content, m[0]),
			Message: "Direct reference to auth.users table found",
		}}
	}
	return nil
}

func insideAny(idx int, spans [][]int) bool {
	for _, s := range spans {
		if idx >= s[0] && idx < s[1] {
			return true
		}
	}
	return false
}

func detectMissingRoleTable(content, _ string) []types.Finding {
	if !createTableKeyword.MatchString(content) || userRolesTable.MatchString(content) {
		return nil
	}
	return []types.Finding{{
		Message: "user_roles table not found - role management may be insecure",
	}}
}
