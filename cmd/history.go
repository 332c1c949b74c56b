package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/internal/iocache"
	"github.com/huangsam/packlint/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyBackendConfig reads and validates the run history backend settings.
func historyBackendConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	// Empty backend is treated as NoneBackend
	backend, err := contract.ParseBackend(viper.GetString("history-backend"))
	if err != nil {
		return "", "", fmt.Errorf("history backend: %w", err)
	}
	connStr := viper.GetString("history-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup loads minimal configuration needed for history operations.
// This is used by commands that need history access without full shared setup.
func historySetup() error {
	backend, connStr, err := historyBackendConfig()
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no image cache for history commands)
	if err := iocache.InitStores(schema.NoneBackend, "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize run history: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup()
}

// historyMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func historyMigrateSetup() error {
	backend, connStr, err := historyBackendConfig()
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = iocache.GetHistoryDBFilePath()
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historyMigrateSetupWrapper wraps historyMigrateSetup to provide PreRunE for migrate command.
func historyMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return historyMigrateSetup()
}

// historyCmd focused on run history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage lint run history and exports",
	Long: `Manage the history of lint runs.

When enabled, packlint records every lint run, storing:
- Run metadata (start and end time, exit code, package count, flags)
- One outcome per package, tool and image with its failure bit and duration

Supported backends: SQLite, MySQL, PostgreSQL, or None (default, disabled)

Subcommands:
  status  - Show run history statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all run history
  migrate - Run database schema migrations

Examples:
  # Enable history for a run
  PACKLINT_HISTORY_BACKEND=sqlite packlint lint --all-packages

  # Export for analysis in pandas/DuckDB
  packlint history export --output-file packlint-history`,
}

// historyClearCmd clears the run history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all lint run history",
	Long: `Delete all stored lint runs and tool outcomes.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  packlint history export --output-file backup
  packlint history clear`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearHistory(cfg.HistoryBackend, iocache.GetHistoryDBFilePath(), cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// historyStatusCmd shows run history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run history statistics and connection details",
	Long: `Show detailed information about the lint run history.

Displays:
- Backend type and connection status
- Total number of runs stored
- Last and oldest run timestamps
- Total outcomes recorded
- Database table sizes

Examples:
  # Check run history status
  PACKLINT_HISTORY_BACKEND=sqlite packlint history status`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetRunStore()
		if store == nil {
			fmt.Println("Run history is disabled. Set --history-backend to enable it.")
			return
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyExportCmd exports run history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet for BI tools and analytics",
	Long: `Export all stored run history to Parquet format.

Exports two datasets:
- <prefix>.runs.parquet     - one row per lint run
- <prefix>.outcomes.parquet - one row per package, tool and image

Requires: --output-file parameter

Examples:
  # Export all data
  packlint history export --output-file packlint

  # Use with DuckDB for analysis
  duckdb -c "SELECT tool, count(*) FROM read_parquet('packlint.outcomes.parquet') WHERE failed GROUP BY tool"`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		outputFile := viper.GetString("output-file")
		if err := iocache.ExecuteHistoryExport(os.Stdout, iocache.Manager.GetRunStore(), outputFile); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the run history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  PACKLINT_HISTORY_BACKEND=sqlite packlint history migrate

  # Migrate to specific version
  packlint history migrate --target-version 1

  # Rollback to initial state
  packlint history migrate --target-version 0`,
	PreRunE: historyMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateHistory(os.Stdout, cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
