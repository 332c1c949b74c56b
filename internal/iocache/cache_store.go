package iocache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
)

// imageTable is the name of the table for the image build cache.
const imageTable = "image_cache"

// ImageStoreImpl maps image cache keys to built tags on a SQL backend.
type ImageStoreImpl struct {
	db        *sql.DB
	tableName string
	backend   schema.DatabaseBackend
	connStr   string
}

var _ contract.ImageCacheStore = &ImageStoreImpl{} // Compile-time check

// NewImageStore initializes and returns a new image cache store for the backend.
func NewImageStore(tableName string, backend schema.DatabaseBackend, connStr string) (*ImageStoreImpl, error) {
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}
	if backend == schema.NoneBackend {
		return &ImageStoreImpl{tableName: tableName, backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetDBFilePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image cache: %w", err)
	}
	if _, err := db.Exec(getCreateImageTableQuery(tableName, backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	return &ImageStoreImpl{db: db, tableName: tableName, backend: backend, connStr: connStr}, nil
}

// getCreateImageTableQuery returns the CREATE TABLE query for the given backend.
func getCreateImageTableQuery(tableName string, backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(tableName, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				cache_key VARCHAR(64) PRIMARY KEY,
				image_tag VARCHAR(255) NOT NULL,
				built_at BIGINT NOT NULL
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				cache_key TEXT PRIMARY KEY,
				image_tag TEXT NOT NULL,
				built_at BIGINT NOT NULL
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				cache_key TEXT PRIMARY KEY,
				image_tag TEXT NOT NULL,
				built_at INTEGER NOT NULL
			);
		`, quotedTableName)
	}
}

func (s *ImageStoreImpl) disabled() bool {
	return s.backend == schema.NoneBackend || s.db == nil
}

// Get retrieves the entry for key. A miss returns sql.ErrNoRows.
func (s *ImageStoreImpl) Get(key string) (schema.ImageCacheEntry, error) {
	if s.disabled() {
		return schema.ImageCacheEntry{}, sql.ErrNoRows
	}

	p := placeholders(s.backend, 1)
	query := fmt.Sprintf(`SELECT image_tag, built_at FROM %s WHERE cache_key = %s`, quoteTableName(s.tableName, s.backend), p[0])
	entry := schema.ImageCacheEntry{Key: key}
	var builtAt int64
	if err := s.db.QueryRow(query, key).Scan(&entry.Tag, &builtAt); err != nil {
		return schema.ImageCacheEntry{}, err
	}
	entry.BuiltAt = time.Unix(builtAt, 0)
	return entry, nil
}

// Set inserts or replaces an entry.
func (s *ImageStoreImpl) Set(entry schema.ImageCacheEntry) error {
	if s.disabled() {
		return nil
	}
	builtAt := entry.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now()
	}
	_, err := s.db.Exec(s.getUpsertQuery(), entry.Key, entry.Tag, builtAt.Unix())
	return err
}

// Delete removes an entry. Deleting a missing key is not an error.
func (s *ImageStoreImpl) Delete(key string) error {
	if s.disabled() {
		return nil
	}
	p := placeholders(s.backend, 1)
	query := fmt.Sprintf(`DELETE FROM %s WHERE cache_key = %s`, quoteTableName(s.tableName, s.backend), p[0])
	_, err := s.db.Exec(query, key)
	return err
}

// getUpsertQuery returns the UPSERT query for the backend.
func (s *ImageStoreImpl) getUpsertQuery() string {
	quotedTableName := quoteTableName(s.tableName, s.backend)
	switch s.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (cache_key, image_tag, built_at) VALUES (?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE image_tag = new.image_tag, built_at = new.built_at`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (cache_key, image_tag, built_at) VALUES ($1, $2, $3)
			ON CONFLICT (cache_key) DO UPDATE SET image_tag = EXCLUDED.image_tag, built_at = EXCLUDED.built_at`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (cache_key, image_tag, built_at) VALUES (?, ?, ?)`, quotedTableName)
	}
}

// Close closes the underlying DB connection.
func (s *ImageStoreImpl) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetStatus returns status information about the image cache.
func (s *ImageStoreImpl) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(s.backend),
		Connected: s.db != nil,
	}
	if s.disabled() {
		return status, nil
	}

	quotedTableName := quoteTableName(s.tableName, s.backend)
	if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTableName)).Scan(&status.TotalEntries); err != nil {
		return status, fmt.Errorf("failed to get total entries: %w", err)
	}
	if status.TotalEntries == 0 {
		return status, nil
	}

	var lastTs, oldestTs int64
	row := s.db.QueryRow(fmt.Sprintf("SELECT MAX(built_at), MIN(built_at) FROM %s", quotedTableName))
	if err := row.Scan(&lastTs, &oldestTs); err != nil {
		return status, fmt.Errorf("failed to get entry times: %w", err)
	}
	status.LastEntryTime = time.Unix(lastTs, 0)
	status.OldestEntryTime = time.Unix(oldestTs, 0)

	// Rough estimate unless the backend can report the real size
	status.TableSizeBytes = int64(status.TotalEntries) * 200
	switch s.backend {
	case schema.SQLiteBackend:
		row = s.db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		_ = row.Scan(&status.TableSizeBytes)
	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(s.connStr)
		if err != nil || cfg.DBName == "" {
			break
		}
		row = s.db.QueryRow("SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?", cfg.DBName, s.tableName)
		_ = row.Scan(&status.TableSizeBytes)
	case schema.PostgreSQLBackend:
		row = s.db.QueryRow("SELECT pg_total_relation_size($1)", s.tableName)
		_ = row.Scan(&status.TableSizeBytes)
	}
	return status, nil
}
