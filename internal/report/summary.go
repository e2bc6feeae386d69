package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/steveyegge/webcheck/internal/types"
)

// RenderSummary writes a human readable summary of r to w. With showFixes,
// each finding is followed by its fix suggestion.
func RenderSummary(w io.Writer, r *types.Report, showFixes bool) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	scope := string(r.Mode) + " run"
	if r.Target != "" {
		scope = fmt.Sprintf("%s (%s)", scope, r.Target)
	}
	fmt.Fprintf(w, "\n%s %s: %d file(s) checked in %v\n",
		cyan("▶"), scope, r.FilesChecked, r.Duration.Round(time.Millisecond))

	errs := r.Errors()
	warnings := r.Warnings()

	if len(errs) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold(red("REAL ERRORS")))
		for _, f := range errs {
			renderFinding(w, red("✗"), f, showFixes)
		}
	}

	if len(warnings) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold(yellow("WARNINGS")))
		for _, f := range warnings {
			renderFinding(w, yellow("!"), f, showFixes)
		}
	}

	fmt.Fprintln(w, strings.Repeat("─", 60))
	switch {
	case len(errs) > 0:
		fmt.Fprintf(w, "%s %d real error(s), %d warning(s)\n", red("✗"), len(errs), len(warnings))
	case len(warnings) > 0:
		fmt.Fprintf(w, "%s No real errors, %d warning(s)\n", green("✓"), len(warnings))
	default:
		fmt.Fprintf(w, "%s All checks passed\n", green("✓"))
	}
}

func renderFinding(w io.Writer, marker string, f types.Finding, showFixes bool) {
	fmt.Fprintf(w, "  %s %s [%s]\n", marker, f.String(), f.RuleID)
	if !showFixes || f.FixSuggestion == "" {
		return
	}
	fmt.Fprintln(w, "     Fix:")
	for _, line := range strings.Split(f.FixSuggestion, "\n") {
		fmt.Fprintf(w, "       %s\n", line)
	}
}
