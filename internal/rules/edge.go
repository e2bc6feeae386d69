package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/steveyegge/webcheck/internal/types"
)

// authUserCall matches supabase.auth.getUser() and client variants such as
// supabaseClient.auth.getUser(token)
var authUserCall = regexp.MustCompile(`\bauth\.getUser\(`)

func detectMissingAuth(content, path string) []types.Finding {
	if authUserCall.MatchString(content) {
		return nil
	}
	line := lineOf(content, "serve(")
	if line == 0 {
		line = 1
	}
	return []types.Finding{{
		Line:    line,
		Message: fmt.Sprintf("Edge Function '%s' lacks authentication check", handlerName(path)),
	}}
}

func detectMissingCORS(content, path string) []types.Finding {
	if containsAny(content, "corsHeaders", "Access-Control-Allow-Origin") {
		return nil
	}
	return []types.Finding{{
		Message: fmt.Sprintf("Edge Function '%s' may lack proper CORS headers", handlerName(path)),
	}}
}

func detectMissingInputValidation(content, path string) []types.Finding {
	const parseBody = "await req.json()"
	if !strings.Contains(content, parseBody) || containsAny(content, "if (!", "throw new Error") {
		return nil
	}
	return []types.Finding{{
		Line:    lineOf(content, parseBody),
		Message: fmt.Sprintf("Edge Function '%s' may lack input validation", handlerName(path)),
	}}
}

func detectSensitiveLogging(content, path string) []types.Finding {
	if !strings.Contains(content, "console.log") || !strings.Contains(content, "req.body") {
		return nil
	}
	return []types.Finding{{
		Line:    lineOf(content, "req.body"),
		Message: fmt.Sprintf("Edge Function '%s' may log sensitive data", handlerName(path)),
	}}
}

func detectUnprotectedFetch(content, path string) []types.Finding {
	if !strings.Contains(content, "fetch(") || containsAny(content, "ALLOWED_DOMAINS", "isAllowedDomain") {
		return nil
	}
	return []types.Finding{{
		Line:    lineOf(content, "fetch("),
		Message: fmt.Sprintf("Edge Function '%s' has unprotected fetch calls (SSRF risk)", handlerName(path)),
	}}
}

func detectMissingImageSizeCheck(content, path string) []types.Finding {
	if !strings.Contains(content, "imageBase64") || containsAny(content, "MAX_IMAGE_SIZE", "length >") {
		return nil
	}
	return []types.Finding{{
		Line:    lineOf(content, "imageBase64"),
		Message: fmt.Sprintf("Edge Function '%s' lacks image size validation", handlerName(path)),
	}}
}
