package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
)

// Table names for run history.
const (
	runsTable     = "packlint_runs"
	outcomesTable = "packlint_outcomes"
)

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore creates a new RunStore with the specified backend.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (*RunStoreImpl, error) {
	if backend == schema.NoneBackend {
		return &RunStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize run history: %w", err)
	}
	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}
	return &RunStoreImpl{db: db, backend: backend}, nil
}

// createHistoryTables creates the run tracking tables.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{runsTable, getCreateRunsQuery(backend)},
		{outcomesTable, getCreateOutcomesQuery(backend)},
	}
	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// getCreateRunsQuery returns the CREATE TABLE query for packlint_runs.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(runsTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms BIGINT,
				exit_code INT,
				total_packages INT,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms BIGINT,
				exit_code INT,
				total_packages INT,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				exit_code INTEGER,
				total_packages INTEGER,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreateOutcomesQuery returns the CREATE TABLE query for packlint_outcomes.
func getCreateOutcomesQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(outcomesTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				package_path VARCHAR(512) NOT NULL,
				tool VARCHAR(32) NOT NULL,
				image VARCHAR(255) NOT NULL,
				bit INT NOT NULL,
				failed BOOLEAN NOT NULL,
				duration_ms BIGINT NOT NULL,
				recorded_at DATETIME(6) NOT NULL,
				PRIMARY KEY (run_id, package_path, tool, image)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				package_path TEXT NOT NULL,
				tool TEXT NOT NULL,
				image TEXT NOT NULL,
				bit INT NOT NULL,
				failed BOOLEAN NOT NULL,
				duration_ms BIGINT NOT NULL,
				recorded_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (run_id, package_path, tool, image)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				package_path TEXT NOT NULL,
				tool TEXT NOT NULL,
				image TEXT NOT NULL,
				bit INTEGER NOT NULL,
				failed INTEGER NOT NULL,
				duration_ms INTEGER NOT NULL,
				recorded_at TEXT NOT NULL,
				PRIMARY KEY (run_id, package_path, tool, image)
			);
		`, quotedTableName)
	}
}

func (rs *RunStoreImpl) disabled() bool {
	return rs.backend == schema.NoneBackend || rs.db == nil
}

// BeginRun creates a new run and returns its unique ID.
func (rs *RunStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if rs.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(runsTable, rs.backend)
	var runID int64
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING run_id`, quotedTableName)
		err = rs.db.QueryRow(query, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, quotedTableName)
		var result sql.Result
		result, err = rs.db.Exec(query, formatTime(startTime, rs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// RecordOutcome stores one tool outcome of a run.
func (rs *RunStoreImpl) RecordOutcome(runID int64, record schema.OutcomeRecord) error {
	if rs.disabled() {
		return nil
	}

	p := placeholders(rs.backend, 8)
	query := fmt.Sprintf(`INSERT INTO %s (run_id, package_path, tool, image, bit, failed, duration_ms, recorded_at)
		VALUES (%s)`, quoteTableName(outcomesTable, rs.backend), strings.Join(p, ", "))
	recordedAt := record.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	_, err := rs.db.Exec(query, runID, record.PackagePath, record.Tool, record.Image,
		record.Bit, record.Failed, record.DurationMs, formatTime(recordedAt, rs.backend))
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// EndRun updates the run with completion data.
func (rs *RunStoreImpl) EndRun(runID int64, endTime time.Time, exitCode int, totalPackages int) error {
	if rs.disabled() {
		return nil
	}

	quotedTableName := quoteTableName(runsTable, rs.backend)
	p := placeholders(rs.backend, 1)
	row := rs.db.QueryRow(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quotedTableName, p[0]), runID)
	startTime, err := rs.scanTime(row)
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	p = placeholders(rs.backend, 5)
	query := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, exit_code = %s, total_packages = %s WHERE run_id = %s`,
		quotedTableName, p[0], p[1], p[2], p[3], p[4])
	if _, err := rs.db.Exec(query, formatTime(endTime, rs.backend), durationMs, exitCode, totalPackages, runID); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// scanTime reads a single time column, parsing the SQLite text form.
func (rs *RunStoreImpl) scanTime(row *sql.Row) (time.Time, error) {
	if rs.backend != schema.SQLiteBackend {
		var t time.Time
		err := row.Scan(&t)
		return t, err
	}
	var s string
	if err := row.Scan(&s); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

// Close closes the underlying connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the run history.
func (rs *RunStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.disabled() {
		return status, nil
	}

	runs := quoteTableName(runsTable, rs.backend)
	if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var exitCode sql.NullInt64
		row := rs.db.QueryRow(fmt.Sprintf("SELECT run_id, exit_code FROM %s ORDER BY run_id DESC LIMIT 1", runs))
		if err := row.Scan(&status.LastRunID, &exitCode); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		status.LastRunExitCode = int(exitCode.Int64)

		lastTime, err := rs.scanTime(rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id DESC LIMIT 1", runs)))
		if err != nil {
			return status, fmt.Errorf("failed to get last run time: %w", err)
		}
		status.LastRunTime = lastTime

		oldestTime, err := rs.scanTime(rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runs)))
		if err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.OldestRunTime = oldestTime

		row = rs.db.QueryRow(fmt.Sprintf("SELECT COALESCE(SUM(total_packages), 0) FROM %s", runs))
		if err := row.Scan(&status.TotalPackagesRun); err != nil {
			return status, fmt.Errorf("failed to get total packages: %w", err)
		}
	}

	for _, table := range []string{runsTable, outcomesTable} {
		var count int64
		row := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, rs.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllRuns retrieves all runs from the store.
func (rs *RunStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if rs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT run_id, start_time, end_time, run_duration_ms, exit_code, total_packages, config_params FROM %s ORDER BY run_id",
		quoteTableName(runsTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		switch rs.backend {
		case schema.SQLiteBackend:
			var startStr string
			var endStr *string
			if err := rows.Scan(&record.RunID, &startStr, &endStr, &record.RunDurationMs, &record.ExitCode, &record.TotalPackages, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
			if record.StartTime, err = time.Parse(time.RFC3339Nano, startStr); err != nil {
				return nil, fmt.Errorf("failed to parse start_time: %w", err)
			}
			if endStr != nil {
				end, err := time.Parse(time.RFC3339Nano, *endStr)
				if err != nil {
					return nil, fmt.Errorf("failed to parse end_time: %w", err)
				}
				record.EndTime = &end
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&record.RunID, &record.StartTime, &record.EndTime, &record.RunDurationMs, &record.ExitCode, &record.TotalPackages, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllOutcomes retrieves all outcomes from the store.
func (rs *RunStoreImpl) GetAllOutcomes() ([]schema.OutcomeRecord, error) {
	if rs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, package_path, tool, image, bit, failed, duration_ms, recorded_at
		FROM %s ORDER BY run_id, package_path, tool, image`, quoteTableName(outcomesTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.OutcomeRecord
	for rows.Next() {
		var record schema.OutcomeRecord
		switch rs.backend {
		case schema.SQLiteBackend:
			var recordedStr string
			if err := rows.Scan(&record.RunID, &record.PackagePath, &record.Tool, &record.Image,
				&record.Bit, &record.Failed, &record.DurationMs, &recordedStr); err != nil {
				return nil, fmt.Errorf("failed to scan outcome: %w", err)
			}
			if record.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedStr); err != nil {
				return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&record.RunID, &record.PackagePath, &record.Tool, &record.Image,
				&record.Bit, &record.Failed, &record.DurationMs, &record.RecordedAt); err != nil {
				return nil, fmt.Errorf("failed to scan outcome: %w", err)
			}
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcomes: %w", err)
	}
	return results, nil
}
