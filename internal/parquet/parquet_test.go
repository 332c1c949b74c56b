package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/packlint/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRuns() []LintRun {
	now := time.Now().UTC()
	end := now.Add(90 * time.Second)
	duration := int64(90_000)
	exitCode := int32(9)
	total := int32(12)
	params := `{"all_packages":true,"workers":4}`
	return []LintRun{
		{RunID: 1, StartTime: now, EndTime: &end, RunDurationMs: &duration, ExitCode: &exitCode, TotalPackages: &total, ConfigParams: &params},
		{RunID: 2, StartTime: now.Add(time.Hour)}, // interrupted run
	}
}

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()
	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestLintRunColumns(t *testing.T) {
	s := parquet.SchemaOf(new(LintRun))
	for _, col := range []string{"run_id", "start_time", "end_time", "run_duration_ms", "exit_code", "total_packages", "config_params"} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "column %s", col)
	}
}

func TestToolOutcomeColumns(t *testing.T) {
	s := parquet.SchemaOf(new(ToolOutcome))
	for _, col := range []string{"run_id", "package_path", "tool", "image", "bit", "failed", "duration_ms", "recorded_at"} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "column %s", col)
	}
}

func TestWriteLintRunsParquet(t *testing.T) {
	out := filepath.Join(t.TempDir(), "runs.parquet")
	data := sampleRuns()
	require.NoError(t, WriteLintRunsParquet(data, out))

	got := readAll[LintRun](t, out)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].RunID)
	require.NotNil(t, got[0].ExitCode)
	assert.Equal(t, int32(9), *got[0].ExitCode)
	require.NotNil(t, got[0].ConfigParams)
	assert.Equal(t, *data[0].ConfigParams, *got[0].ConfigParams)
	assert.Nil(t, got[1].EndTime)
	assert.Nil(t, got[1].ExitCode)
}

func TestWriteToolOutcomesParquet(t *testing.T) {
	out := filepath.Join(t.TempDir(), "outcomes.parquet")
	now := time.Now().UTC()
	data := ConvertOutcomeRecords([]schema.OutcomeRecord{
		{RunID: 1, PackagePath: "Packs/A/Integrations/A", Tool: "flake8", Bit: 1, Failed: true, DurationMs: 40, RecordedAt: now},
		{RunID: 1, PackagePath: "Packs/A/Integrations/A", Tool: "pylint", Image: "demisto/python3:3.8", DurationMs: 900, RecordedAt: now},
	})
	require.NoError(t, WriteToolOutcomesParquet(data, out))

	got := readAll[ToolOutcome](t, out)
	require.Len(t, got, 2)
	assert.True(t, got[0].Failed)
	assert.Equal(t, "flake8", got[0].Tool)
	assert.Equal(t, "demisto/python3:3.8", got[1].Image)
	assert.WithinDuration(t, now, got[1].RecordedAt, time.Microsecond)
}

func TestWriteParquet_Empty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteLintRunsParquet(nil, out))
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestWriteParquet_BadPath(t *testing.T) {
	err := WriteLintRunsParquet(sampleRuns(), filepath.Join(t.TempDir(), "missing", "runs.parquet"))
	assert.Error(t, err)
}

func TestConvertRunRecords(t *testing.T) {
	end := time.Now()
	records := []schema.RunRecord{{RunID: 3, StartTime: end.Add(-time.Minute), EndTime: &end}}
	runs := ConvertRunRecords(records)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(3), runs[0].RunID)
	assert.Equal(t, &end, runs[0].EndTime)
}
