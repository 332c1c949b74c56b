package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/internal/iocache"
	"github.com/huangsam/packlint/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get cache-related config values
	backend, err := contract.ParseBackend(viper.GetString("cache-backend"))
	if err != nil {
		return fmt.Errorf("cache backend: %w", err)
	}
	connStr := viper.GetString("cache-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// Initialize the image cache with the loaded config (no run history for cache commands)
	if err := iocache.InitStores(backend, connStr, schema.NoneBackend, ""); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr

	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// cacheCmd focused on image cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup used by the lint command. This avoids package selection
// checks for simple cache operations.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the test image cache",
	Long: `Manage the cache of built package test images.

Packlint records every image it builds, keyed by a hash of the package path,
runtime version, base image and requirements. A later run with the same inputs
reuses the image instead of building it again.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cache entries

Examples:
  # Check cache status
  packlint cache status

  # Force every image to be rebuilt
  packlint cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all image cache entries",
	Long: `Delete all image cache entries from the configured backend.
The images themselves stay in the local Docker engine.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  # Clear SQLite cache (default)
  packlint cache clear

  # Clear MySQL cache (set connection string via env variable)
  PACKLINT_CACHE_BACKEND=mysql PACKLINT_CACHE_DB_CONNECT="..." packlint cache clear`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearImageCache(cfg.CacheBackend, iocache.GetDBFilePath(), cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show detailed information about the image cache.

Displays:
- Backend type and connection status
- Total number of cached images
- Newest and oldest build timestamps
- Cache database size

Examples:
  # Check cache status
  packlint cache status`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetImageStore()
		if store == nil {
			contract.LogFatal("Failed to get cache status", errors.New("image cache is disabled"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(os.Stdout, status)
	},
}
