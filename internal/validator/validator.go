// Package validator orchestrates validation runs. A run combines the
// compiler gates with the pattern rule catalog and produces one Report.
package validator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/webcheck/internal/gates"
	"github.com/steveyegge/webcheck/internal/rules"
	"github.com/steveyegge/webcheck/internal/types"
)

// ErrRunInProgress is returned when a run is requested while another one
// is still executing. The request is dropped, not queued.
var ErrRunInProgress = errors.New("validation run already in progress")

// defaultReadConcurrency bounds parallel file reads during a full run
const defaultReadConcurrency = 8

// GateRunner runs the compiler-side checks. *gates.Runner implements it.
type GateRunner interface {
	TypeCheck(ctx context.Context) (*gates.Result, error)
	BuildCheck(ctx context.Context) (*gates.Result, error)
}

// Config holds validator configuration
type Config struct {
	Root            string        // Project root; rule globs are relative to it
	Gates           GateRunner    // Required
	Engine          *rules.Engine // Optional: defaults to the built-in catalog
	ExcludeGlobs    []string      // Paths never analyzed
	SkipBuild       bool          // Skip the build gate on full runs
	ReadConcurrency int           // Optional: defaults to 8
}

// Validator runs full and targeted validations. At most one run executes at
// a time; it is safe to call from multiple goroutines.
type Validator struct {
	root            string
	gates           GateRunner
	engine          *rules.Engine
	exclude         []string
	skipBuild       bool
	readConcurrency int

	running atomic.Bool
}

// New creates a validator
func New(cfg *Config) (*Validator, error) {
	if cfg.Gates == nil {
		return nil, fmt.Errorf("gate runner is required")
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	for _, g := range cfg.ExcludeGlobs {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid exclude glob %q", g)
		}
	}

	engine := cfg.Engine
	if engine == nil {
		engine = rules.Default()
	}
	concurrency := cfg.ReadConcurrency
	if concurrency <= 0 {
		concurrency = defaultReadConcurrency
	}

	return &Validator{
		root:            cfg.Root,
		gates:           cfg.Gates,
		engine:          engine,
		exclude:         cfg.ExcludeGlobs,
		skipBuild:       cfg.SkipBuild,
		readConcurrency: concurrency,
	}, nil
}

// RunFull type-checks the project, builds it when the type check is clean,
// and applies every rule to every matching file.
//
// A gate that cannot be run returns a *gates.InfrastructureError and no report.
func (v *Validator) RunFull(ctx context.Context) (*types.Report, error) {
	if !v.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer v.running.Store(false)

	started := time.Now()

	findings, err := v.compilerFindings(ctx, !v.skipBuild)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[types.Category][]string, len(types.AllCategories))
	var all []string
	seen := make(map[string]bool)
	for _, category := range types.AllCategories {
		paths, err := v.enumerate(v.engine.Globs(category))
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate %s files: %w", category, err)
		}
		byCategory[category] = paths
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				all = append(all, p)
			}
		}
	}

	contents, err := v.load(ctx, all)
	if err != nil {
		return nil, err
	}

	for _, category := range types.AllCategories {
		for _, p := range byCategory[category] {
			content, ok := contents[p]
			if !ok {
				continue
			}
			findings = append(findings, v.engine.Run(category, p, content)...)
		}
	}

	return types.NewReport(types.RunFull, "", started, len(contents), findings), nil
}

// RunTargeted type-checks the project and applies the rules matching path
// to that file only. The build gate is skipped. A missing or excluded file
// yields no pattern findings.
func (v *Validator) RunTargeted(ctx context.Context, path string) (*types.Report, error) {
	rel, err := v.relative(path)
	if err != nil {
		return nil, err
	}

	if !v.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer v.running.Store(false)

	started := time.Now()

	findings, err := v.compilerFindings(ctx, false)
	if err != nil {
		return nil, err
	}

	filesChecked := 0
	if !v.excluded(rel) {
		data, err := os.ReadFile(filepath.Join(v.root, filepath.FromSlash(rel)))
		switch {
		case err == nil:
			filesChecked = 1
			for _, category := range v.engine.Categories(rel) {
				findings = append(findings, v.engine.Run(category, rel, string(data))...)
			}
		case errors.Is(err, fs.ErrNotExist):
			// Deleted or renamed before the run started
		default:
			log.Printf("Warning: skipping unreadable file %s: %v", rel, err)
		}
	}

	return types.NewReport(types.RunTargeted, rel, started, filesChecked, findings), nil
}

// compilerFindings runs the type check and, when requested and the type
// check is clean, the build.
func (v *Validator) compilerFindings(ctx context.Context, build bool) ([]types.Finding, error) {
	tc, err := v.gates.TypeCheck(ctx)
	if err != nil {
		return nil, err
	}

	findings := append([]types.Finding(nil), tc.Findings...)
	if !build || len(tc.Findings) > 0 {
		return findings, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bc, err := v.gates.BuildCheck(ctx)
	if err != nil {
		return nil, err
	}
	return append(findings, bc.Findings...), nil
}

// enumerate expands globs under the root and returns the sorted, distinct,
// non-excluded regular files they match.
func (v *Validator) enumerate(globs []string) ([]string, error) {
	fsys := os.DirFS(v.root)
	seen := make(map[string]bool)
	var out []string

	for _, g := range globs {
		matches, err := doublestar.Glob(fsys, g)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", g, err)
		}
		for _, m := range matches {
			if seen[m] || v.excluded(m) {
				continue
			}
			info, err := fs.Stat(fsys, m)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}

	sort.Strings(out)
	return out, nil
}

// load reads files concurrently. Unreadable files are logged and left out
// of the result.
func (v *Validator) load(ctx context.Context, paths []string) (map[string]string, error) {
	var mu sync.Mutex
	contents := make(map[string]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.readConcurrency)

	for _, p := range paths {
		p := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(v.root, filepath.FromSlash(p)))
			if err != nil {
				log.Printf("Warning: skipping unreadable file %s: %v", p, err)
				return nil
			}
			mu.Lock()
			contents[p] = string(data)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading files: %w", err)
	}
	return contents, nil
}

func (v *Validator) excluded(rel string) bool {
	for _, g := range v.exclude {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// relative converts path to a slash-separated path relative to the root
func (v *Validator) relative(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}

	if filepath.IsAbs(path) {
		root, err := filepath.Abs(v.root)
		if err != nil {
			return "", fmt.Errorf("resolving root: %w", err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return "", fmt.Errorf("path %s is not under %s: %w", path, root, err)
		}
		path = rel
	}

	rel := filepath.ToSlash(filepath.Clean(path))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside the project root", path)
	}
	return rel, nil
}
