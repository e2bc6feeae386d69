package config

import (
	"fmt"
	"os"
	"strconv"
)

// applyEnv overrides cfg from environment variables
//
// Environment variables:
//   - WEBCHECK_POLL_INTERVAL_MS: Polling source scan interval (default: 1000)
//   - WEBCHECK_DEBOUNCE_MS: Debounce delay for targeted runs (default: 2000)
//   - WEBCHECK_FULL_RUN_INTERVAL_MINUTES: Period of full runs in watch mode (default: 30)
//   - WEBCHECK_REPORT_PATH: Persisted report location (default: smart-jsx-report.json)
//   - WEBCHECK_NOTIFICATIONS: Enable desktop notifications (default: true)
//   - WEBCHECK_HISTORY_KEEP: Runs retained in the history database (default: 500)
func applyEnv(cfg *Config) error {
	if err := parseEnvInt("WEBCHECK_POLL_INTERVAL_MS", &cfg.PollIntervalMs); err != nil {
		return err
	}
	if err := parseEnvInt("WEBCHECK_DEBOUNCE_MS", &cfg.DebounceMs); err != nil {
		return err
	}
	if err := parseEnvInt("WEBCHECK_FULL_RUN_INTERVAL_MINUTES", &cfg.FullRunIntervalMinutes); err != nil {
		return err
	}
	if err := parseEnvString("WEBCHECK_REPORT_PATH", &cfg.ReportPath); err != nil {
		return err
	}
	if err := parseEnvBool("WEBCHECK_NOTIFICATIONS", &cfg.Notifications); err != nil {
		return err
	}
	if err := parseEnvInt("WEBCHECK_HISTORY_KEEP", &cfg.HistoryKeep); err != nil {
		return err
	}
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}
