package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/steveyegge/webcheck/internal/types"
)

var voidElements = []string{"br", "hr", "img", "input"}

// voidTagPatterns match an opening tag up to its first '>'.
// RE2 has no lookbehind, so self-closing is checked on the match itself.
var voidTagPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(voidElements))
	for _, el := range voidElements {
		m[el] = regexp.MustCompile(`<` + el + `(?:\s[^>]*)?>`)
	}
	return m
}()

// detectUnclosedVoidElements reports each line that opens a void element
// without "/>", once per element per line.
func detectUnclosedVoidElements(content, _ string) []types.Finding {
	var findings []types.Finding

	for i, line := range strings.Split(content, "\n") {
		for _, el := range voidElements {
			for _, tag := range voidTagPatterns[el].FindAllString(line, -1) {
				if strings.HasSuffix(tag, "/>") {
					continue
				}
				findings = append(findings, types.Finding{
					Line:    i + 1,
					Message: fmt.Sprintf("<%s> should be self-closing: <%s />", el, el),
				})
				break
			}
		}
	}

	return findings
}

// detectUnkeyedMap is a whole-file check: any key= anywhere suppresses it
func detectUnkeyedMap(content, _ string) []types.Finding {
	if !strings.Contains(content, ".map(") ||
		!strings.Contains(content, "return") ||
		strings.Contains(content, "key=") {
		return nil
	}
	return []types.Finding{{
		Line:    lineOf(content, ".map("),
		Message: "Missing 'key' prop in mapped elements",
	}}
}

var undefinedClassName = regexp.MustCompile(`className=\{[^}]*undefined[^}]*\}`)

func detectUndefinedClassName(content, _ string) []types.Finding {
	loc := undefinedClassName.FindStringIndex(content)
	if loc == nil {
		return nil
	}
	return []types.Finding{{
		Line:    lineAt(content, loc[0]),
		Message: "className contains undefined - will cause runtime error",
	}}
}
