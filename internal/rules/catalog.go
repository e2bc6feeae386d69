package rules

import "github.com/steveyegge/webcheck/internal/types"

// Targets the catalog is written against
var (
	ComponentFiles = Target{
		Name:  "component files",
		Globs: []string{"src/**/*.{tsx,jsx}"},
	}
	ServerHandlers = Target{
		Name:  "server handlers",
		Globs: []string{"supabase/functions/**/index.ts"},
	}
	MigrationFiles = Target{
		Name:  "migration files",
		Globs: []string{"supabase/migrations/*.sql"},
	}
	SourceFiles = Target{
		Name:  "all source files",
		Globs: []string{"src/**/*.{ts,tsx}"},
	}
	ConfigFiles = Target{
		Name:  "config files",
		Globs: []string{"supabase/config.toml"},
	}
	DependencyManifest = Target{
		Name:  "dependency manifest",
		Globs: []string{"package.json"},
	}
)

// Catalog returns the built-in rules in evaluation order
func Catalog() []Rule {
	return []Rule{
		// jsx-correctness
		{
			ID:          "void-not-self-closed",
			Category:    types.CategoryJSX,
			Severity:    types.SeverityWarning,
			Target:      ComponentFiles,
			Description: "br/hr/img/input opening tag that is not self-closed",
			Detect:      detectUnclosedVoidElements,
			Fix:         fixVoidElement,
		},
		{
			ID:          "unkeyed-mapped-render",
			Category:    types.CategoryJSX,
			Severity:    types.SeverityWarning,
			Target:      ComponentFiles,
			Description: "file maps a sequence to elements but never sets key=",
			Detect:      detectUnkeyedMap,
			Fix:         fixMissingKey,
		},
		{
			ID:          "dangerous-class-binding",
			Category:    types.CategoryJSX,
			Severity:    types.SeverityWarning,
			Target:      ComponentFiles,
			Description: "className expression contains undefined",
			Detect:      detectUndefinedClassName,
		},

		// edge-function-security
		{
			ID:          "missing-auth-check",
			Category:    types.CategoryEdgeFunction,
			Severity:    types.SeverityError,
			Target:      ServerHandlers,
			Description: "handler never retrieves the authenticated user",
			Detect:      detectMissingAuth,
			Fix:         fixAuth,
		},
		{
			ID:          "missing-cors-headers",
			Category:    types.CategoryEdgeFunction,
			Severity:    types.SeverityWarning,
			Target:      ServerHandlers,
			Description: "handler has neither shared corsHeaders nor an allow-origin header",
			Detect:      detectMissingCORS,
			Fix:         fixCORS,
		},
		{
			ID:          "missing-input-validation",
			Category:    types.CategoryEdgeFunction,
			Severity:    types.SeverityWarning,
			Target:      ServerHandlers,
			Description: "handler parses a JSON body without validating it",
			Detect:      detectMissingInputValidation,
			Fix:         fixInputValidation,
		},
		{
			ID:          "sensitive-logging",
			Category:    types.CategoryEdgeFunction,
			Severity:    types.SeverityError,
			Target:      ServerHandlers,
			Description: "handler logs to console and touches the raw request body",
			Detect:      detectSensitiveLogging,
			Fix:         fixSensitiveLogging,
		},
		{
			ID:          "unprotected-fetch",
			Category:    types.CategoryEdgeFunction,
			Severity:    types.SeverityError,
			Target:      ServerHandlers,
			Description: "outbound fetch without a domain allow-list (SSRF)",
			Detect:      detectUnprotectedFetch,
			Fix:         fixSSRF,
		},
		{
			ID:          "missing-image-size-check",
			Category:    types.CategoryEdgeFunction,
			Severity:    types.SeverityWarning,
			Target:      ServerHandlers,
			Description: "image payload accepted without a size limit",
			Detect:      detectMissingImageSizeCheck,
			Fix:         fixImageSize,
		},

		// database-security
		{
			ID:          "missing-row-level-security",
			Category:    types.CategoryDatabase,
			Severity:    types.SeverityWarning,
			Target:      MigrationFiles,
			Description: "table created without enabling row level security",
			Detect:      detectMissingRLS,
			Fix:         fixRLS,
		},
		{
			ID:          "direct-identity-table-reference",
			Category:    types.CategoryDatabase,
			Severity:    types.SeverityError,
			Target:      MigrationFiles,
			Description: "auth.users referenced outside a foreign-key clause",
			Detect:      detectDirectAuthUsers,
			Fix:         fixAuthUsers,
		},
		{
			ID:          "missing-role-table",
			Category:    types.CategoryDatabase,
			Severity:    types.SeverityWarning,
			Target:      MigrationFiles,
			Description: "migration creates tables but no user_roles table",
			Detect:      detectMissingRoleTable,
			Fix:         fixRoleTable,
		},

		// frontend-security
		{
			ID:          "unsafe-html-injection",
			Category:    types.CategoryFrontend,
			Severity:    types.SeverityError,
			Target:      SourceFiles,
			Description: "dangerouslySetInnerHTML without a sanitizer",
			Detect:      detectUnsafeHTML,
			Fix:         fixUnsafeHTML,
		},
		{
			ID:          "hardcoded-secret",
			Category:    types.CategoryFrontend,
			Severity:    types.SeverityError,
			Target:      SourceFiles,
			Description: "vendor key prefix or 32+ character alphanumeric run",
			Detect:      detectHardcodedSecret,
			Fix:         fixHardcodedSecret,
		},
		{
			ID:          "client-side-role-check",
			Category:    types.CategoryFrontend,
			Severity:    types.SeverityWarning,
			Target:      SourceFiles,
			Description: "role read from localStorage/sessionStorage",
			Detect:      detectClientRoleCheck,
			Fix:         fixClientRoleCheck,
		},
		{
			ID:          "fetch-without-timeout",
			Category:    types.CategoryFrontend,
			Severity:    types.SeverityWarning,
			Target:      SourceFiles,
			Description: "fetch without an abort signal or timeout",
			Detect:      detectFetchWithoutTimeout,
			Fix:         fixFetchTimeout,
		},

		// config-security
		{
			ID:          "jwt-verification-disabled",
			Category:    types.CategoryConfigSecurity,
			Severity:    types.SeverityError,
			Target:      ConfigFiles,
			Description: "verify_jwt = false in supabase config",
			Detect:      detectJWTDisabled,
			Fix:         fixJWT,
		},
		{
			ID:          "missing-validation-dependency",
			Category:    types.CategoryConfigSecurity,
			Severity:    types.SeverityWarning,
			Target:      DependencyManifest,
			Description: "no runtime schema-validation library declared",
			Detect:      detectMissingValidationDependency,
			Fix:         fixValidationDependency,
		},
	}
}
