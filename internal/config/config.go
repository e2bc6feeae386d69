package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the project root
const DefaultFileName = ".webcheck.json"

// StateDir holds the watch lock and run history, relative to the project root
const StateDir = ".webcheck"

// Config holds settings for validation runs and the watch scheduler.
//
// The file format is JSON; YAML is accepted too since it is decoded with a
// YAML parser. Only WatchGlobs, ExcludeGlobs and PollIntervalMs are part of
// the documented file format, the rest are optional extensions.
type Config struct {
	// WatchGlobs select which changed files trigger a targeted run
	WatchGlobs []string `yaml:"watchGlobs"`

	// ExcludeGlobs are never watched or analyzed
	ExcludeGlobs []string `yaml:"excludeGlobs"`

	// PollIntervalMs is the scan interval used by the polling event source
	// Default: 1000, Range: 100-60000
	PollIntervalMs int `yaml:"pollIntervalMs"`

	// DebounceMs is how long events must pause before a targeted run fires
	// Default: 2000, Range: 50-60000
	DebounceMs int `yaml:"debounceMs"`

	// FullRunIntervalMinutes is the period of unconditional full runs in watch mode
	// Default: 30, Range: 1-1440
	FullRunIntervalMinutes int `yaml:"fullRunIntervalMinutes"`

	// TypeCheckCommand is the project's type-checker invocation
	TypeCheckCommand []string `yaml:"typeCheckCommand"`

	// BuildCommand runs a development-mode build
	BuildCommand []string `yaml:"buildCommand"`

	// ReportPath is where the latest report is persisted, relative to the root
	ReportPath string `yaml:"reportPath"`

	// Notifications enables desktop notifications for new errors
	Notifications bool `yaml:"notifications"`

	// HistoryKeep is how many runs the history database retains; older runs
	// are pruned when a watcher starts
	// Default: 500, Range: 10-100000
	HistoryKeep int `yaml:"historyKeep"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		WatchGlobs: []string{
			"src/**/*.{ts,tsx,js,jsx}",
			"supabase/functions/**/*.ts",
			"supabase/migrations/*.sql",
			"supabase/config.toml",
			"package.json",
		},
		ExcludeGlobs: []string{
			"**/node_modules/**",
			"**/dist/**",
			"**/.git/**",
			StateDir + "/**",
		},
		PollIntervalMs:         1000,
		DebounceMs:             2000,
		FullRunIntervalMinutes: 30,
		TypeCheckCommand:       []string{"npx", "tsc", "--noEmit", "--skipLibCheck"},
		BuildCommand:           []string{"npm", "run", "build:check"},
		ReportPath:             "smart-jsx-report.json",
		Notifications:          true,
		HistoryKeep:            500,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if len(c.WatchGlobs) == 0 {
		return fmt.Errorf("watchGlobs must not be empty")
	}
	for _, g := range append(append([]string{}, c.WatchGlobs...), c.ExcludeGlobs...) {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("invalid glob pattern %q", g)
		}
	}

	if c.PollIntervalMs < 100 || c.PollIntervalMs > 60000 {
		return fmt.Errorf("pollIntervalMs must be between 100 and 60000 (got %d)", c.PollIntervalMs)
	}
	if c.DebounceMs < 50 || c.DebounceMs > 60000 {
		return fmt.Errorf("debounceMs must be between 50 and 60000 (got %d)", c.DebounceMs)
	}
	if c.FullRunIntervalMinutes < 1 || c.FullRunIntervalMinutes > 1440 {
		return fmt.Errorf("fullRunIntervalMinutes must be between 1 and 1440 (got %d)",
			c.FullRunIntervalMinutes)
	}

	if len(c.TypeCheckCommand) == 0 || strings.TrimSpace(c.TypeCheckCommand[0]) == "" {
		return fmt.Errorf("typeCheckCommand must name a program")
	}
	if len(c.BuildCommand) == 0 || strings.TrimSpace(c.BuildCommand[0]) == "" {
		return fmt.Errorf("buildCommand must name a program")
	}
	if strings.TrimSpace(c.ReportPath) == "" {
		return fmt.Errorf("reportPath must not be empty")
	}
	if filepath.IsAbs(c.ReportPath) {
		return fmt.Errorf("reportPath must be relative to the project root (got %q)", c.ReportPath)
	}
	if c.HistoryKeep < 10 || c.HistoryKeep > 100000 {
		return fmt.Errorf("historyKeep must be between 10 and 100000 (got %d)", c.HistoryKeep)
	}

	return nil
}

// PollInterval returns PollIntervalMs as a duration
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Debounce returns DebounceMs as a duration
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// FullRunInterval returns FullRunIntervalMinutes as a duration
func (c Config) FullRunInterval() time.Duration {
	return time.Duration(c.FullRunIntervalMinutes) * time.Minute
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{WatchGlobs: %v, ExcludeGlobs: %v, PollInterval: %dms, "+
			"Debounce: %dms, FullRunInterval: %dm, Report: %s, Notifications: %t, HistoryKeep: %d}",
		c.WatchGlobs, c.ExcludeGlobs, c.PollIntervalMs, c.DebounceMs,
		c.FullRunIntervalMinutes, c.ReportPath, c.Notifications, c.HistoryKeep,
	)
}

// Load reads the config file at path on top of the defaults, then applies
// environment overrides and validates the result.
//
// If path is empty, DefaultFileName in root is used when it exists; a
// missing default file is not an error. An explicitly named file must exist.
func Load(root, path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, DefaultFileName)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file - defaults apply
	default:
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// decode overlays the file contents on cfg. Keys absent from the file keep
// their default values.
func decode(data []byte, cfg *Config) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return yaml.Unmarshal(data, cfg)
}
