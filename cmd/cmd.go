// Package cmd defines the command-line interface for packlint.
package cmd

import (
	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().IntP("workers", "p", contract.DefaultWorkers, "Number of packages linted concurrently")
	rootCmd.PersistentFlags().String("timeout", "", "Per-tool timeout such as 10m (empty = no timeout)")
	rootCmd.PersistentFlags().String("log-path", "", "Write JSON logs to this file with rotation instead of stderr")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Image cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", "", "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for run history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of lintCmd to Viper
	lintCmd.Flags().StringP("input", "i", "", "Comma-separated package directories to lint")
	lintCmd.Flags().BoolP("all-packages", "a", false, "Lint every package in the repository")
	lintCmd.Flags().BoolP("git", "g", false, "Lint packages touched by untracked, staged or upstream-diff files")
	lintCmd.Flags().Bool("no-flake8", false, "Do not run flake8")
	lintCmd.Flags().Bool("no-bandit", false, "Do not run bandit")
	lintCmd.Flags().Bool("no-mypy", false, "Do not run mypy")
	lintCmd.Flags().Bool("no-vulture", false, "Do not run vulture")
	lintCmd.Flags().Bool("no-pylint", false, "Do not run pylint")
	lintCmd.Flags().Bool("no-test", false, "Do not run unit tests")
	lintCmd.Flags().Bool("no-pwsh-analyze", false, "Do not run the powershell analyzer")
	lintCmd.Flags().Bool("no-pwsh-test", false, "Do not run powershell tests")
	lintCmd.Flags().Bool("keep-container", false, "Keep test containers after they exit")
	lintCmd.Flags().String("test-xml", "", "Directory to save JUnit XML test reports to")
	lintCmd.Flags().String("json-report", "", "Directory to write lint_report.json to")
	lintCmd.Flags().BoolP("verbose", "v", false, "List passed tests in the unit-test summary")
	if err := viper.BindPFlags(lintCmd.Flags()); err != nil {
		contract.LogFatal("Error binding lint flags", err)
	}

	// Bind all flags of historyExportCmd to Viper
	historyExportCmd.Flags().String("output-file", "", "Prefix for the exported Parquet files")
	if err := viper.BindPFlags(historyExportCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history export flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
