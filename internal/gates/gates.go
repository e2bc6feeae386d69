package gates

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/steveyegge/webcheck/internal/types"
)

// GateType identifies the compiler-side checks
type GateType string

const (
	GateTypeCheck GateType = "type-check"
	GateBuild     GateType = "build"
)

// Rule IDs for compiler-verified findings
const (
	RuleTypeError   = "type-error"
	RuleBuildFailed = "build-failed"
)

// maxBuildOutput caps how much build output is copied into a finding
const maxBuildOutput = 500

// Result represents the outcome of a compiler gate
type Result struct {
	Gate     GateType
	Passed   bool // tool exited with status 0
	ExitCode int
	Output   string
	Findings []types.Finding
	Duration time.Duration
}

// InfrastructureError reports that a gate tool could not be run at all.
// Unlike a failing exit status, it aborts the validation run.
type InfrastructureError struct {
	Gate    GateType
	Command string
	Err     error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: cannot run %q: %v", e.Gate, e.Command, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// IsInfrastructure reports whether err is (or wraps) an InfrastructureError
func IsInfrastructure(err error) bool {
	var infra *InfrastructureError
	return errors.As(err, &infra)
}

// CommandRunner runs an external program and returns its combined output.
// A non-zero exit is reported through exitCode with a nil error; err is
// reserved for failures to start or finish the program.
type CommandRunner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (output string, exitCode int, err error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err == nil {
		return string(output), 0, nil
	}

	// A killed process surfaces as an ExitError too, so check the context first
	if ctxErr := ctx.Err(); ctxErr != nil {
		return string(output), -1, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(output), exitErr.ExitCode(), nil
	}

	return string(output), -1, err
}

// Runner executes the type-check and build gates for a project
type Runner struct {
	workingDir       string
	typeCheckCommand []string
	buildCommand     []string
	cmd              CommandRunner
}

// Config holds compiler gate configuration
type Config struct {
	WorkingDir       string        // Directory where gate commands are executed
	TypeCheckCommand []string      // e.g. npx tsc --noEmit --skipLibCheck
	BuildCommand     []string      // e.g. npm run build:check
	Runner           CommandRunner // Optional: defaults to ExecRunner
}

// NewRunner creates a new compiler gate runner
func NewRunner(cfg *Config) (*Runner, error) {
	if len(cfg.TypeCheckCommand) == 0 {
		return nil, fmt.Errorf("type-check command is required")
	}
	if len(cfg.BuildCommand) == 0 {
		return nil, fmt.Errorf("build command is required")
	}
	if cfg.WorkingDir == "" {
		cfg.WorkingDir = "."
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}

	return &Runner{
		workingDir:       cfg.WorkingDir,
		typeCheckCommand: cfg.TypeCheckCommand,
		buildCommand:     cfg.BuildCommand,
		cmd:              cfg.Runner,
	}, nil
}

// TypeCheck runs the type-checker over the whole project. Diagnostics on
// component files (.tsx, .jsx) become error findings; other diagnostics are
// ignored.
func (r *Runner) TypeCheck(ctx context.Context) (*Result, error) {
	result, err := r.run(ctx, GateTypeCheck, r.typeCheckCommand)
	if err != nil {
		return nil, err
	}
	if !result.Passed {
		result.Findings = ParseTypeErrors(result.Output)
	}
	return result, nil
}

// BuildCheck runs a development build. A failing build yields exactly one
// finding, and only when the output actually mentions an error.
func (r *Runner) BuildCheck(ctx context.Context) (*Result, error) {
	result, err := r.run(ctx, GateBuild, r.buildCommand)
	if err != nil {
		return nil, err
	}
	if !result.Passed {
		if f, ok := BuildFailure(result.Output); ok {
			result.Findings = []types.Finding{f}
		}
	}
	return result, nil
}

func (r *Runner) run(ctx context.Context, gate GateType, command []string) (*Result, error) {
	start := time.Now()
	output, code, err := r.cmd.Run(ctx, r.workingDir, command[0], command[1:]...)
	if err != nil {
		return nil, &InfrastructureError{
			Gate:    gate,
			Command: strings.Join(command, " "),
			Err:     err,
		}
	}

	return &Result{
		Gate:     gate,
		Passed:   code == 0,
		ExitCode: code,
		Output:   output,
		Duration: time.Since(start),
	}, nil
}

// typeErrorPattern matches "<file>(<line>,<col>): error <CODE>: <message>"
var typeErrorPattern = regexp.MustCompile(`^\s*(.+?)\((\d+),(\d+)\):\s*error\s+([A-Za-z]*\d+):\s*(.+?)\s*$`)

// componentExtensions are the file types type errors are reported for
var componentExtensions = map[string]bool{
	".tsx": true,
	".jsx": true,
}

// ParseTypeErrors extracts findings from type-checker output.
// Lines that do not have the diagnostic shape, or that point at non-component
// files, are skipped.
func ParseTypeErrors(output string) []types.Finding {
	var findings []types.Finding

	for _, line := range strings.Split(output, "\n") {
		m := typeErrorPattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}

		file := filepath.ToSlash(strings.TrimSpace(m[1]))
		if !componentExtensions[strings.ToLower(filepath.Ext(file))] {
			continue
		}

		lineNum, _ := strconv.Atoi(m[2])
		colNum, _ := strconv.Atoi(m[3])

		findings = append(findings, types.Finding{
			RuleID:   RuleTypeError,
			Category: types.CategoryJSX,
			Severity: types.SeverityError,
			FilePath: file,
			Line:     lineNum,
			Column:   colNum,
			Message:  fmt.Sprintf("%s: %s", m[4], m[5]),
		})
	}

	return findings
}

// BuildFailure turns failing build output into the aggregate build finding.
// It returns false when the output never mentions an error, since a
// non-zero exit alone is not a reliable signal.
func BuildFailure(output string) (types.Finding, bool) {
	if !strings.Contains(strings.ToLower(output), "error") {
		return types.Finding{}, false
	}

	excerpt := output
	if runes := []rune(output); len(runes) > maxBuildOutput {
		excerpt = string(runes[:maxBuildOutput]) + "..."
	}

	return types.Finding{
		RuleID:   RuleBuildFailed,
		Category: types.CategoryJSX,
		Severity: types.SeverityError,
		Message:  "Build failed: " + excerpt,
	}, true
}
