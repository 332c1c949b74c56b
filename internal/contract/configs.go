package contract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/packlint/schema"
)

// Default values for configuration.
const (
	DefaultGitRemote         = "origin"
	DefaultNetworkProbeURL   = "https://pypi.org"
	DefaultDockerGID         = 4000
	DefaultVultureConfidence = 100
	DefaultLogLevel          = "info"
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// Config holds the runtime configuration for a lint run.
// This struct remains the "final, validated" config.
type Config struct {
	WorkDir     string
	Inputs      []string
	AllPackages bool
	GitOnly     bool
	Workers     int

	NoFlake8      bool
	NoBandit      bool
	NoMypy        bool
	NoVulture     bool
	NoPylint      bool
	NoTest        bool
	NoPwshAnalyze bool
	NoPwshTest    bool

	KeepContainer bool
	TestXMLDir    string
	JSONReportDir string
	Verbose       bool
	Timeout       time.Duration

	LogPath  string
	LogLevel string

	LockDir           string
	NetworkProbeURL   string
	GitRemote         string
	DockerGID         int
	VultureConfidence int

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	UseColors bool
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from the working directory, so no tag
	WorkDirStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
	Color            string `mapstructure:"color"`
	LogPath          string `mapstructure:"log-path"`
	LogLevel         string `mapstructure:"log-level"`

	// --- Fields from lintCmd.Flags() ---
	Input         string `mapstructure:"input"`
	AllPackages   bool   `mapstructure:"all-packages"`
	Git           bool   `mapstructure:"git"`
	Workers       int    `mapstructure:"workers"`
	NoFlake8      bool   `mapstructure:"no-flake8"`
	NoBandit      bool   `mapstructure:"no-bandit"`
	NoMypy        bool   `mapstructure:"no-mypy"`
	NoVulture     bool   `mapstructure:"no-vulture"`
	NoPylint      bool   `mapstructure:"no-pylint"`
	NoTest        bool   `mapstructure:"no-test"`
	NoPwshAnalyze bool   `mapstructure:"no-pwsh-analyze"`
	NoPwshTest    bool   `mapstructure:"no-pwsh-test"`
	KeepContainer bool   `mapstructure:"keep-container"`
	TestXML       string `mapstructure:"test-xml"`
	JSONReport    string `mapstructure:"json-report"`
	Verbose       bool   `mapstructure:"verbose"`
	Timeout       string `mapstructure:"timeout"`

	// --- Config-file only settings ---
	LockDir           string `mapstructure:"lock-dir"`
	NetworkProbeURL   string `mapstructure:"network-probe-url"`
	GitRemote         string `mapstructure:"git-remote"`
	DockerGID         int    `mapstructure:"docker-user-gid"`
	VultureConfidence int    `mapstructure:"vulture-confidence"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Inputs != nil {
		clone.Inputs = make([]string, len(c.Inputs))
		copy(clone.Inputs, c.Inputs)
	}
	return &clone
}

// DisabledTools returns the bits of every tool turned off by a flag.
func (c *Config) DisabledTools() schema.FailureBits {
	bits := schema.NoFailures
	flags := map[schema.ToolName]bool{
		schema.Flake8Tool:      c.NoFlake8,
		schema.BanditTool:      c.NoBandit,
		schema.MypyTool:        c.NoMypy,
		schema.VultureTool:     c.NoVulture,
		schema.PylintTool:      c.NoPylint,
		schema.PytestTool:      c.NoTest,
		schema.PwshAnalyzeTool: c.NoPwshAnalyze,
		schema.PwshTestTool:    c.NoPwshTest,
	}
	for tool, off := range flags {
		if off {
			bits = bits.Set(tool)
		}
	}
	return bits
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(_ context.Context, cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processTargets(cfg, input); err != nil {
		return err
	}
	if err := processReportDirs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return nil
}

// validateSimpleInputs copies flags and validates numeric and enum values.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Workers = input.Workers
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", input.Workers)
	}

	cfg.NoFlake8 = input.NoFlake8
	cfg.NoBandit = input.NoBandit
	cfg.NoMypy = input.NoMypy
	cfg.NoVulture = input.NoVulture
	cfg.NoPylint = input.NoPylint
	cfg.NoTest = input.NoTest
	cfg.NoPwshAnalyze = input.NoPwshAnalyze
	cfg.NoPwshTest = input.NoPwshTest
	cfg.KeepContainer = input.KeepContainer
	cfg.Verbose = input.Verbose
	cfg.LogPath = input.LogPath

	cfg.LogLevel = strings.ToLower(input.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if _, ok := schema.ValidLogLevels[cfg.LogLevel]; !ok {
		return fmt.Errorf("invalid log level '%s'. must be debug, info, warn, error", input.LogLevel)
	}

	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", input.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("timeout must not be negative, got %s", d)
		}
		cfg.Timeout = d
	}

	cfg.LockDir = input.LockDir
	cfg.NetworkProbeURL = input.NetworkProbeURL
	if cfg.NetworkProbeURL == "" {
		cfg.NetworkProbeURL = DefaultNetworkProbeURL
	}
	cfg.GitRemote = input.GitRemote
	if cfg.GitRemote == "" {
		cfg.GitRemote = DefaultGitRemote
	}
	cfg.DockerGID = input.DockerGID
	if cfg.DockerGID <= 0 {
		cfg.DockerGID = DefaultDockerGID
	}
	cfg.VultureConfidence = input.VultureConfidence
	if cfg.VultureConfidence <= 0 || cfg.VultureConfidence > 100 {
		cfg.VultureConfidence = DefaultVultureConfidence
	}

	useColors := true
	if input.Color != "" {
		v, err := ParseBoolString(input.Color)
		if err != nil {
			return fmt.Errorf("invalid color value: %w", err)
		}
		useColors = v
	}
	cfg.UseColors = useColors
	return nil
}

// processTargets resolves the working directory and the package selection mode.
func processTargets(cfg *Config, input *ConfigRawInput) error {
	workDir := input.WorkDirStr
	if workDir == "" {
		workDir = "."
	}
	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return fmt.Errorf("could not resolve working directory %q: %w", workDir, err)
	}
	cfg.WorkDir = absWorkDir

	cfg.Inputs = SplitCSV(input.Input)
	cfg.AllPackages = input.AllPackages
	cfg.GitOnly = input.Git

	if len(cfg.Inputs) > 0 && (cfg.AllPackages || cfg.GitOnly) {
		return fmt.Errorf("--input cannot be combined with --all-packages or --git")
	}
	if len(cfg.Inputs) == 0 && !cfg.AllPackages && !cfg.GitOnly {
		return fmt.Errorf("no packages selected: pass --input, --all-packages or --git")
	}
	return nil
}

// processReportDirs validates that report output locations are existing directories.
func processReportDirs(cfg *Config, input *ConfigRawInput) error {
	for _, entry := range []struct {
		flag  string
		value string
		dst   *string
	}{
		{"--test-xml", input.TestXML, &cfg.TestXMLDir},
		{"--json-report", input.JSONReport, &cfg.JSONReportDir},
	} {
		if entry.value == "" {
			*entry.dst = ""
			continue
		}
		info, err := os.Stat(entry.value)
		if err != nil {
			return fmt.Errorf("%s directory %q: %w", entry.flag, entry.value, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s must point to a directory, got %q", entry.flag, entry.value)
		}
		abs, err := filepath.Abs(entry.value)
		if err != nil {
			return fmt.Errorf("could not resolve %s path: %w", entry.flag, err)
		}
		*entry.dst = abs
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseBackend normalizes a backend name, treating empty as none.
func ParseBackend(raw string) (schema.DatabaseBackend, error) {
	if raw == "" {
		return schema.NoneBackend, nil
	}
	backend := schema.DatabaseBackend(strings.ToLower(raw))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql, none", raw)
	}
	return backend, nil
}

// validateBackendConfigs validates image cache and run history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Image Cache Backend Validation ---
	cacheBackend, err := ParseBackend(input.CacheBackend)
	if err != nil {
		return fmt.Errorf("cache backend: %w", err)
	}
	cfg.CacheBackend = cacheBackend
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- Run History Backend Validation ---
	historyBackend, err := ParseBackend(input.HistoryBackend)
	if err != nil {
		return fmt.Errorf("history backend: %w", err)
	}
	cfg.HistoryBackend = historyBackend
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// Validate that both stores do not share one SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if cachePath == historyPath {
			return fmt.Errorf("image cache and run history must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}
	return nil
}
