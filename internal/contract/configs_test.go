package contract

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/packlint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		WorkDirStr: ".",
		Input:      "Packs/HelloWorld/Integrations/HelloWorld",
		Workers:    2,
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
	}{
		{
			name:   "valid minimal config",
			mutate: func(*ConfigRawInput) {},
		},
		{
			name:        "zero workers",
			mutate:      func(in *ConfigRawInput) { in.Workers = 0 },
			expectError: true,
		},
		{
			name:        "nothing selected",
			mutate:      func(in *ConfigRawInput) { in.Input = "" },
			expectError: true,
		},
		{
			name: "input combined with all packages",
			mutate: func(in *ConfigRawInput) {
				in.AllPackages = true
			},
			expectError: true,
		},
		{
			name: "git mode alone",
			mutate: func(in *ConfigRawInput) {
				in.Input = ""
				in.Git = true
			},
		},
		{
			name:        "invalid log level",
			mutate:      func(in *ConfigRawInput) { in.LogLevel = "chatty" },
			expectError: true,
		},
		{
			name:        "invalid timeout",
			mutate:      func(in *ConfigRawInput) { in.Timeout = "soon" },
			expectError: true,
		},
		{
			name:        "invalid color",
			mutate:      func(in *ConfigRawInput) { in.Color = "maybe" },
			expectError: true,
		},
		{
			name:        "test xml dir does not exist",
			mutate:      func(in *ConfigRawInput) { in.TestXML = "/does/not/exist/packlint" },
			expectError: true,
		},
		{
			name:        "invalid cache backend",
			mutate:      func(in *ConfigRawInput) { in.CacheBackend = "redis" },
			expectError: true,
		},
		{
			name: "mysql without connection string",
			mutate: func(in *ConfigRawInput) {
				in.HistoryBackend = "mysql"
			},
			expectError: true,
		},
		{
			name: "both sqlite on default paths",
			mutate: func(in *ConfigRawInput) {
				in.CacheBackend = "sqlite"
				in.HistoryBackend = "sqlite"
			},
		},
		{
			name: "both sqlite on same file",
			mutate: func(in *ConfigRawInput) {
				in.CacheBackend = "sqlite"
				in.CacheDBConnect = "/tmp/same.db"
				in.HistoryBackend = "sqlite"
				in.HistoryDBConnect = "/tmp/same.db"
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(context.Background(), cfg, input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(cfg.WorkDir))
		})
	}
}

func TestProcessAndValidate_Defaults(t *testing.T) {
	cfg := &Config{}
	input := validInput()
	input.Timeout = "90s"
	input.TestXML = t.TempDir()
	require.NoError(t, ProcessAndValidate(context.Background(), cfg, input))

	assert.Equal(t, DefaultGitRemote, cfg.GitRemote)
	assert.Equal(t, DefaultNetworkProbeURL, cfg.NetworkProbeURL)
	assert.Equal(t, DefaultDockerGID, cfg.DockerGID)
	assert.Equal(t, DefaultVultureConfidence, cfg.VultureConfidence)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, schema.NoneBackend, cfg.CacheBackend)
	assert.Equal(t, schema.NoneBackend, cfg.HistoryBackend)
	assert.True(t, cfg.UseColors)
	assert.NotEmpty(t, cfg.TestXMLDir)
	assert.Empty(t, cfg.JSONReportDir)
	assert.Equal(t, []string{"Packs/HelloWorld/Integrations/HelloWorld"}, cfg.Inputs)
}

func TestConfig_DisabledTools(t *testing.T) {
	cfg := &Config{NoFlake8: true, NoTest: true, NoPwshTest: true}
	bits := cfg.DisabledTools()

	assert.True(t, bits.Has(schema.Flake8Tool))
	assert.True(t, bits.Has(schema.PytestTool))
	assert.True(t, bits.Has(schema.PwshTestTool))
	assert.False(t, bits.Has(schema.MypyTool))
	assert.Equal(t, 1+8+256, bits.Int())
}

func TestConfig_Clone(t *testing.T) {
	cfg := &Config{Inputs: []string{"a"}, Workers: 3}
	clone := cfg.Clone()
	clone.Inputs[0] = "b"
	assert.Equal(t, "a", cfg.Inputs[0])
	assert.Equal(t, 3, clone.Workers)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{"sqlite needs nothing", schema.SQLiteBackend, "", false},
		{"none needs nothing", schema.NoneBackend, "", false},
		{"valid mysql", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/packlint", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/packlint", true},
		{"valid postgres", schema.PostgreSQLBackend, "host=localhost dbname=packlint", false},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
