// Package parquet exports lint run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/packlint/schema"
	"github.com/parquet-go/parquet-go"
)

// LintRun is one lint invocation. It maps to the packlint_runs table.
type LintRun struct {
	RunID         int64      `parquet:"run_id,snappy"`
	StartTime     time.Time  `parquet:"start_time,snappy"`
	EndTime       *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs *int64     `parquet:"run_duration_ms,optional,snappy"`

	// ExitCode is the failure bitmask returned by the run (nullable while running)
	ExitCode      *int32  `parquet:"exit_code,optional,snappy"`
	TotalPackages *int32  `parquet:"total_packages,optional,snappy"`
	ConfigParams  *string `parquet:"config_params,optional,snappy"`
}

// ToolOutcome is one tool result for one package. It maps to the packlint_outcomes table.
type ToolOutcome struct {
	RunID       int64  `parquet:"run_id,snappy"`
	PackagePath string `parquet:"package_path,snappy,dict"`
	Tool        string `parquet:"tool,snappy,dict"`

	// Image is empty for host tools
	Image      string    `parquet:"image,snappy,dict"`
	Bit        int32     `parquet:"bit,snappy"`
	Failed     bool      `parquet:"failed,snappy"`
	DurationMs int64     `parquet:"duration_ms,snappy"`
	RecordedAt time.Time `parquet:"recorded_at,snappy"`
}

// WriteLintRunsParquet writes runs to a Parquet file.
func WriteLintRunsParquet(data []LintRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteToolOutcomesParquet writes outcomes to a Parquet file.
func WriteToolOutcomesParquet(data []ToolOutcome, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes rows with a schema inferred from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// ConvertRunRecords converts schema.RunRecord to LintRun for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []LintRun {
	result := make([]LintRun, len(records))
	for i, record := range records {
		result[i] = LintRun{
			RunID:         record.RunID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			ExitCode:      record.ExitCode,
			TotalPackages: record.TotalPackages,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertOutcomeRecords converts schema.OutcomeRecord to ToolOutcome for Parquet export.
func ConvertOutcomeRecords(records []schema.OutcomeRecord) []ToolOutcome {
	result := make([]ToolOutcome, len(records))
	for i, record := range records {
		result[i] = ToolOutcome{
			RunID:       record.RunID,
			PackagePath: record.PackagePath,
			Tool:        record.Tool,
			Image:       record.Image,
			Bit:         record.Bit,
			Failed:      record.Failed,
			DurationMs:  record.DurationMs,
			RecordedAt:  record.RecordedAt,
		}
	}
	return result
}
