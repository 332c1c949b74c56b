package iocache

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/huangsam/packlint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTableName(t *testing.T) {
	for _, name := range []string{"image_cache", "_t", "T1"} {
		assert.NoError(t, validateTableName(name), name)
	}
	for _, name := range []string{"", "1abc", "a-b", "a b", "x;DROP TABLE y"} {
		assert.Error(t, validateTableName(name), name)
	}
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`runs`", quoteTableName("runs", schema.MySQLBackend))
	assert.Equal(t, `"runs"`, quoteTableName("runs", schema.PostgreSQLBackend))
	assert.Equal(t, `"runs"`, quoteTableName("runs", schema.SQLiteBackend))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"$1", "$2"}, placeholders(schema.PostgreSQLBackend, 2))
	assert.Equal(t, []string{"?", "?", "?"}, placeholders(schema.MySQLBackend, 3))
}

func TestClearImageCache_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewImageStore(imageTable, schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.FileExists(t, path)

	require.NoError(t, ClearImageCache(schema.SQLiteBackend, path, ""))
	assert.NoFileExists(t, path)
	// Clearing twice is fine
	assert.NoError(t, ClearImageCache(schema.SQLiteBackend, path, ""))
	assert.Error(t, ClearHistory(schema.SQLiteBackend, "", ""))
	assert.NoError(t, ClearHistory(schema.NoneBackend, "", ""))
}

func TestMigrateHistory_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	var out bytes.Buffer

	require.NoError(t, MigrateHistory(&out, schema.SQLiteBackend, path, -1))
	assert.Contains(t, out.String(), "to version 2")

	out.Reset()
	require.NoError(t, MigrateHistory(&out, schema.SQLiteBackend, path, -1))
	assert.Contains(t, out.String(), "No migration needed")

	out.Reset()
	require.NoError(t, MigrateHistory(&out, schema.SQLiteBackend, path, 1))
	assert.Contains(t, out.String(), "from version 2 to version 1")

	// The store still opens on a migrated database
	store, err := NewRunStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	assert.NoError(t, store.Close())

	assert.Error(t, MigrateHistory(&out, schema.NoneBackend, "", -1))
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	PrintCacheStatus(&out, schema.CacheStatus{Backend: "none"})
	assert.Equal(t, "Cache Backend: none\nConnected: false\n", out.String())

	out.Reset()
	PrintHistoryStatus(&out, schema.HistoryStatus{
		Backend:    "sqlite",
		Connected:  true,
		TableSizes: map[string]int64{outcomesTable: 5, runsTable: 1},
	})
	assert.Contains(t, out.String(), "Total Runs: 0")
	assert.Contains(t, out.String(), "  packlint_outcomes: 5 rows\n  packlint_runs: 1 rows\n")
}
