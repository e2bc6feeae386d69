package rules

import (
	"path"
	"strings"
)

// lineAt returns the 1-based line number of byte offset idx in content
func lineAt(content string, idx int) int {
	if idx < 0 {
		return 0
	}
	if idx > len(content) {
		idx = len(content)
	}
	return strings.Count(content[:idx], "\n") + 1
}

// lineOf returns the line of the first occurrence of substr, or 0 if absent
func lineOf(content, substr string) int {
	idx := strings.Index(content, substr)
	if idx < 0 {
		return 0
	}
	return lineAt(content, idx)
}

// containsAny reports whether content contains at least one of the needles
func containsAny(content string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(content, n) {
			return true
		}
	}
	return false
}

// handlerName derives an edge function name from its path,
// e.g. supabase/functions/scrape-recipe/index.ts -> scrape-recipe
func handlerName(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if part == "functions" && i+1 < len(parts)-1 {
			return parts[i+1]
		}
	}
	return path.Base(path.Dir(p))
}
