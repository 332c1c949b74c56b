package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/huangsam/packlint/core"
	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/internal/docker"
	"github.com/huangsam/packlint/internal/iocache"
	"github.com/huangsam/packlint/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations. Execute replaces it with a
// context that is cancelled on SIGINT and SIGTERM.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// cacheManager is the global persistence manager instance.
var cacheManager contract.CacheManager

// logger is the per-invocation logger built from --log-level and --log-path.
var (
	logger    = contract.NewDiscardLogger()
	logCloser io.Closer
)

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "packlint",
	Short: "Lint and test content packs in parallel.",
	Long: `Packlint runs the lint and unit-test battery over the integration and script
packages of a content repository and reports failures per tool.

The process exit code is a bitmap of the tools that failed.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Set config file name and paths
		viper.SetConfigName(".packlint") // Name of config file (without extension)
		viper.SetConfigType("yaml")      // We'll use YAML format
		viper.AddConfigPath(".")         // Look in the current directory
		viper.AddConfigPath("$HOME")     // Look in the home directory
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("PACKLINT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("cache-backend", schema.SQLiteBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("history-backend", "")
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("color", "yes")
	viper.SetDefault("git-remote", contract.DefaultGitRemote)
	viper.SetDefault("network-probe-url", contract.DefaultNetworkProbeURL)
	viper.SetDefault("docker-user-gid", contract.DefaultDockerGID)
	viper.SetDefault("vulture-confidence", contract.DefaultVultureConfidence)
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(ctx context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. The working directory anchors repository detection.
	input.WorkDirStr = "."

	// 4. Run all validation and complex parsing.
	// This function populates the global 'cfg' from 'input'.
	if err := contract.ProcessAndValidate(ctx, cfg, input); err != nil {
		return err
	}

	// 5. Wire the ambient stack
	if !cfg.UseColors {
		color.NoColor = true
	}
	logger, logCloser = contract.NewLogger(cfg.LogLevel, cfg.LogPath)

	// 6. Initialize persistence layer with validated config
	if err := iocache.InitStores(cfg.CacheBackend, cfg.CacheDBConnect, cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	cacheManager = iocache.Manager

	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	// Handle config file
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".packlint")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	// Load config file if present
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// newDependencies builds the collaborators of a lint run. A missing Docker
// client is not an error here; the probe records it as a degradation.
func newDependencies() (core.Dependencies, func()) {
	deps := core.Dependencies{
		Git:    contract.NewLocalGitClient(),
		Exec:   contract.NewLocalExecutor(cfg.Timeout),
		Logger: logger,
	}
	if cacheManager != nil {
		deps.Images = cacheManager.GetImageStore()
		deps.Runs = cacheManager.GetRunStore()
	}

	cleanup := func() {}
	rt, err := docker.NewRuntime(logger)
	if err != nil {
		logger.Debug("docker client unavailable", "error", err)
		return deps, cleanup
	}
	deps.Docker = rt
	cleanup = func() {
		if err := rt.Close(); err != nil {
			logger.Debug("could not close docker client", "error", err)
		}
	}
	return deps, cleanup
}

// shutdown releases the stores and the log file.
func shutdown() {
	iocache.CloseStores()
	if logCloser != nil {
		_ = logCloser.Close()
	}
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCtx = ctx
	defer shutdown()
	return rootCmd.ExecuteContext(ctx)
}

// SetCacheManager sets the global cache manager.
func SetCacheManager(mgr contract.CacheManager) {
	cacheManager = mgr
}
