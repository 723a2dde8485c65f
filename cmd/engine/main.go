// Package main is the internhub engine: an HTTP service that ingests
// internship postings from curated upstream lists, plus one-shot and
// maintenance commands.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dataDir     string
	cfgPath     string
	sourcesPath string

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Internship posting ingestion engine",
	Long: `engine fetches the upstream internship lists, parses and probes every
posting, drops duplicates and keeps the result as the active snapshot.

Examples:
  # Serve the API with the default data dir
  engine serve

  # Run one ingestion pass and print the summary
  engine run --data-dir /var/lib/internhub`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	defDir := os.Getenv("INTERNHUB_DATA_DIR")
	if defDir == "" {
		defDir = "."
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defDir, "directory holding config.yml, the sqlite database and the run lock")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default <data-dir>/config.yml, created on first start)")
	rootCmd.PersistentFlags().StringVar(&sourcesPath, "sources", "", "optional sources overlay file (default <data-dir>/sources.yml)")

	rootCmd.AddCommand(serveCmd, runCmd, migrateCmd, cronCmd, secretCmd)
}
