package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is stamped into the watch lock
var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "webcheck",
	Short: "Continuous static analysis for React + Supabase projects",
	Long: `webcheck combines the TypeScript compiler with a catalog of pattern rules
covering JSX correctness and the security of edge functions, migrations,
frontend code and configuration.

Run it once with "webcheck validate", or keep it running with
"webcheck watch start" to re-validate files as they change.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: <root>/.webcheck.json)")
	rootCmd.PersistentFlags().Bool("fix", false, "Show fix suggestions for each finding")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
