package schema

import "time"

// CacheStatus represents the status of the image cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// HistoryStatus represents the status of the run history store.
type HistoryStatus struct {
	Backend          string           `json:"backend"`
	Connected        bool             `json:"connected"`
	TotalRuns        int              `json:"total_runs"`
	LastRunID        int64            `json:"last_run_id"`
	LastRunTime      time.Time        `json:"last_run_time"`
	LastRunExitCode  int              `json:"last_run_exit_code"`
	OldestRunTime    time.Time        `json:"oldest_run_time"`
	TotalPackagesRun int              `json:"total_packages_run"`
	TableSizes       map[string]int64 `json:"table_sizes"`
}

// ImageCacheEntry is one cached image build.
type ImageCacheEntry struct {
	Key     string
	Tag     string
	BuiltAt time.Time
}

// RunRecord represents a row from the lint runs table.
type RunRecord struct {
	RunID         int64
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int64
	ExitCode      *int32
	TotalPackages *int32
	ConfigParams  *string
}

// OutcomeRecord represents a row from the lint outcomes table.
type OutcomeRecord struct {
	RunID       int64
	PackagePath string
	Tool        string
	Image       string
	Bit         int32
	Failed      bool
	DurationMs  int64
	RecordedAt  time.Time
}
