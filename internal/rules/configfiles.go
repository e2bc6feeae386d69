package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"

	"github.com/steveyegge/webcheck/internal/types"
)

var verifyJWTFalse = regexp.MustCompile(`(?m)^\s*verify_jwt\s*=\s*false\b`)

// detectJWTDisabled decodes the TOML so inline tables are seen too, and
// falls back to a line match when the file does not parse.
func detectJWTDisabled(content, _ string) []types.Finding {
	loc := verifyJWTFalse.FindStringIndex(content)
	line := 0
	if loc != nil {
		line = lineAt(content, loc[0])
	}

	var doc map[string]any
	if err := toml.Unmarshal([]byte(content), &doc); err != nil {
		if loc == nil {
			return nil
		}
		return []types.Finding{{Line: line, Message: "JWT verification disabled in config"}}
	}

	tables := jwtDisabledTables(doc, "")
	if len(tables) == 0 {
		if loc == nil {
			return nil
		}
		// The line match is authoritative when the walk misses a shape
		return []types.Finding{{Line: line, Message: "JWT verification disabled in config"}}
	}
	sort.Strings(tables)
	return []types.Finding{{
		Line:    line,
		Message: fmt.Sprintf("JWT verification disabled in config (%s)", strings.Join(tables, ", ")),
	}}
}

// jwtDisabledTables returns the dotted names of tables with verify_jwt = false.
// Elements of arrays of tables are named name[i].
func jwtDisabledTables(table map[string]any, prefix string) []string {
	var out []string
	for key, value := range table {
		if b, ok := value.(bool); ok {
			if key == "verify_jwt" && !b {
				name := prefix
				if name == "" {
					name = "root"
				}
				out = append(out, name)
			}
			continue
		}
		child := key
		if prefix != "" {
			child = prefix + "." + key
		}
		out = append(out, jwtDisabledIn(value, child)...)
	}
	return out
}

func jwtDisabledIn(value any, name string) []string {
	var out []string
	switch v := value.(type) {
	case map[string]any:
		out = append(out, jwtDisabledTables(v, name)...)
	case []map[string]any:
		for i, t := range v {
			out = append(out, jwtDisabledTables(t, fmt.Sprintf("%s[%d]", name, i))...)
		}
	case []any:
		for i, elem := range v {
			out = append(out, jwtDisabledIn(elem, fmt.Sprintf("%s[%d]", name, i))...)
		}
	}
	return out
}

// validationLibraries are runtime schema validators accepted in package.json
var validationLibraries = []string{"zod", "valibot", "yup"}

func detectMissingValidationDependency(content, _ string) []types.Finding {
	if !gjson.Valid(content) {
		return []types.Finding{{
			Message: "package.json could not be parsed - Zod validation library not found",
		}}
	}

	for _, section := range []string{"dependencies", "devDependencies"} {
		deps := gjson.Get(content, section)
		for _, lib := range validationLibraries {
			if deps.Get(lib).Exists() {
				return nil
			}
		}
	}

	return []types.Finding{{
		Message: "Zod validation library not found",
	}}
}
