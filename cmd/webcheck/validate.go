package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/webcheck/internal/gates"
	"github.com/steveyegge/webcheck/internal/types"
)

// Exit codes of the validate command
const (
	exitOK             = 0
	exitFindings       = 1
	exitInfrastructure = 2
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run a validation and report findings",
	Long: `Run the type checker, the development build and every pattern rule over the
project, then write the report file and print a summary.

The build only runs when the type check reports no errors. With --file only
that file is checked against the pattern rules and the build is skipped.

Exit status:
  0  no error-severity findings
  1  at least one error-severity finding
  2  a checker could not be run (e.g. tsc is not installed)

Example:
  $ webcheck validate --fix
  $ webcheck validate --file src/components/Card.tsx`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		noBuild, _ := cmd.Flags().GetBool("no-build")
		asJSON, _ := cmd.Flags().GetBool("json")

		opts := validateOptions{
			globalOptions: readGlobalOptions(cmd),
			file:          file,
			noBuild:       noBuild,
			json:          asJSON,
		}
		os.Exit(runValidate(cmd.Context(), opts, os.Stdout, os.Stderr))
	},
}

func init() {
	validateCmd.Flags().String("file", "", "Validate a single file (targeted run)")
	validateCmd.Flags().Bool("no-build", false, "Skip the development build")
	validateCmd.Flags().Bool("json", false, "Print the report as JSON instead of a summary")
	rootCmd.AddCommand(validateCmd)
}

type validateOptions struct {
	globalOptions
	file    string
	noBuild bool
	json    bool
}

// runValidate performs one run and returns the process exit code
func runValidate(ctx context.Context, opts validateOptions, stdout, stderr io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}
	red := color.New(color.FgRed).SprintFunc()

	summary := stdout
	if opts.json {
		summary = nil
	}

	a, err := newApp(appOptions{globalOptions: opts.globalOptions, noBuild: opts.noBuild, out: summary})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInfrastructure
	}
	defer a.Close()

	var r *types.Report
	if opts.file != "" {
		r, err = a.validator.RunTargeted(ctx, opts.file)
	} else {
		r, err = a.validator.RunFull(ctx)
	}
	if err != nil {
		if gates.IsInfrastructure(err) {
			fmt.Fprintf(stderr, "%s Validation aborted: %v\n", red("✗"), err)
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return exitInfrastructure
	}

	a.sink.Handle(ctx, r)

	if opts.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			fmt.Fprintf(stderr, "Error: failed to encode report: %v\n", err)
			return exitInfrastructure
		}
	}

	if !r.Success {
		return exitFindings
	}
	return exitOK
}
