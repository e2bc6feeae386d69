package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/steveyegge/webcheck/internal/types"
)

func detectUnsafeHTML(content, _ string) []types.Finding {
	const sink = "dangerouslySetInnerHTML"
	if !strings.Contains(content, sink) || containsAny(content, "DOMPurify", "sanitize-html", "sanitizeHtml") {
		return nil
	}
	return []types.Finding{{
		Line:    lineOf(content, sink),
		Message: "dangerouslySetInnerHTML used without sanitization (XSS risk)",
	}}
}

// secretPatterns are tried in order; the first hit is reported.
//
// The generic 32+ character run also matches hashes, long identifiers and
// base64 fragments. It is kept on purpose and its findings should be
// reviewed rather than trusted blindly.
var secretPatterns = []struct {
	kind    string
	pattern *regexp.Regexp
}{
	{"secret key prefix sk-", regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`)},
	{"publishable key prefix pk_", regexp.MustCompile(`pk_[a-zA-Z0-9]{20,}`)},
	{"32+ character alphanumeric string", regexp.MustCompile(`[a-zA-Z0-9]{32,}`)},
}

func detectHardcodedSecret(content, _ string) []types.Finding {
	for _, sp := range secretPatterns {
		loc := sp.pattern.FindStringIndex(content)
		if loc == nil {
			continue
		}
		return []types.Finding{{
			Line:    lineAt(content, loc[0]),
			Message: fmt.Sprintf("Potential hardcoded secret found (%s)", sp.kind),
		}}
	}
	return nil
}

var clientRoleRead = regexp.MustCompile("(?:localStorage|sessionStorage)\\.getItem\\(\\s*['\"`]role['\"`]\\s*\\)")

func detectClientRoleCheck(content, _ string) []types.Finding {
	loc := clientRoleRead.FindStringIndex(content)
	if loc == nil {
		return nil
	}
	return []types.Finding{{
		Line:    lineAt(content, loc[0]),
		Message: "Client-side role validation detected - use server-side validation for access control",
	}}
}

func detectFetchWithoutTimeout(content, _ string) []types.Finding {
	if !strings.Contains(content, "fetch(") || containsAny(content, "AbortController", "AbortSignal", "signal:") {
		return nil
	}
	return []types.Finding{{
		Line:    lineOf(content, "fetch("),
		Message: "fetch() call without timeout detected",
	}}
}
