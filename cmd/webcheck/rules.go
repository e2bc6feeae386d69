package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/webcheck/internal/rules"
	"github.com/steveyegge/webcheck/internal/types"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [rule-id]",
	Short: "List the pattern rule catalog, or describe one rule",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		category, _ := cmd.Flags().GetString("category")
		fix, _ := cmd.Flags().GetBool("fix")

		var err error
		if len(args) == 1 {
			err = printRule(os.Stdout, args[0])
		} else {
			err = printRules(os.Stdout, types.Category(category), fix)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rulesCmd.Flags().String("category", "", "Only list rules of this category")
	rootCmd.AddCommand(rulesCmd)
}

func printRules(w io.Writer, category types.Category, showFixes bool) error {
	if category != "" && !category.IsValid() {
		return fmt.Errorf("unknown category %q", category)
	}

	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	engine := rules.Default()
	for _, c := range types.AllCategories {
		if category != "" && c != category {
			continue
		}
		fmt.Fprintf(w, "\n%s %s\n", cyan("▶"), c)
		for _, r := range engine.Rules() {
			if r.Category != c {
				continue
			}
			sev := yellow(string(r.Severity))
			if r.Severity == types.SeverityError {
				sev = red(string(r.Severity))
			}
			fmt.Fprintf(w, "  %-32s %-8s %s\n", r.ID, sev, r.Description)
			fmt.Fprintf(w, "  %-32s applies to %s\n", "", r.Target.Name)
			if showFixes && r.Fix != nil {
				fmt.Fprintf(w, "  %-32s fix: %s\n", "", firstLine(r.Fix()))
			}
		}
	}
	return nil
}

// printRule describes a single rule with its full fix snippet
func printRule(w io.Writer, id string) error {
	r, ok := rules.Default().Rule(id)
	if !ok {
		return fmt.Errorf("unknown rule %q (run 'webcheck rules' for the catalog)", id)
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(w, "%s %s\n", cyan("▶"), r.ID)
	fmt.Fprintf(w, "  Category: %s\n", r.Category)
	fmt.Fprintf(w, "  Severity: %s\n", r.Severity)
	fmt.Fprintf(w, "  Applies to: %s (%s)\n", r.Target.Name, strings.Join(r.Target.Globs, ", "))
	fmt.Fprintf(w, "  %s\n", r.Description)
	if r.Fix != nil {
		fmt.Fprintf(w, "\n  Fix:\n")
		for _, line := range strings.Split(r.Fix(), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
	return nil
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i] + " ..."
		}
	}
	return s
}
