//go:build integration

// Package integration contains integration tests for packlint.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
// Database and Docker tests use the database and docker tags.
package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/packlint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolatedEnv keeps the stores out of the user's home directory and skips slow probes.
func isolatedEnv(t *testing.T) []string {
	home := t.TempDir()
	return []string{
		"HOME=" + home,
		"PACKLINT_NETWORK_PROBE_URL=http://127.0.0.1:1",
		"PACKLINT_CACHE_BACKEND=none",
		"PACKLINT_HISTORY_BACKEND=sqlite",
		"PACKLINT_HISTORY_DB_CONNECT=" + filepath.Join(home, "history.db"),
	}
}

// TestVersion checks the version command.
func TestVersion(t *testing.T) {
	out := requireSuccess(t, t.TempDir(), nil, "version")
	assert.Contains(t, out, "packlint CLI")
	assert.Contains(t, out, "Runtime:")
}

// TestLintWithoutSelection checks that a lint without targets is rejected.
func TestLintWithoutSelection(t *testing.T) {
	out, code := runPacklint(t, t.TempDir(), isolatedEnv(t), "lint")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "no packages selected")
}

// TestLintEmptyPackage lints a directory without a package manifest and checks
// the exit code, the JSON report and the recorded history.
func TestLintEmptyPackage(t *testing.T) {
	work := t.TempDir()
	pkgDir := filepath.Join(work, "Empty")
	reportDir := filepath.Join(work, "reports")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.MkdirAll(reportDir, 0o755))
	env := isolatedEnv(t)

	out := requireSuccess(t, work, env, "lint", "-i", "Empty", "--json-report", reportDir, "--color", "no")
	assert.Contains(t, out, "Lint Summary")
	assert.Contains(t, out, "Exit code: 0 (none)")

	data, err := os.ReadFile(filepath.Join(reportDir, "lint_report.json"))
	require.NoError(t, err)
	var packages map[string]schema.PackageResult
	require.NoError(t, json.Unmarshal(data, &packages))
	require.Contains(t, packages, "Empty")
	assert.True(t, packages["Empty"].Skipped)

	status := requireSuccess(t, work, env, "history", "status")
	assert.Contains(t, status, "Total Runs: 1")

	prefix := filepath.Join(work, "export")
	requireSuccess(t, work, env, "history", "export", "--output-file", prefix)
	assert.FileExists(t, prefix+".runs.parquet")
	assert.FileExists(t, prefix+".outcomes.parquet")
}

// TestLintBadReportDir checks that a missing --json-report directory fails validation.
func TestLintBadReportDir(t *testing.T) {
	work := t.TempDir()
	out, code := runPacklint(t, work, isolatedEnv(t), "lint", "-i", ".", "--json-report", filepath.Join(work, "missing"))
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "--json-report")
}
