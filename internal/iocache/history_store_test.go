package iocache

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunStore(t *testing.T) *RunStoreImpl {
	t.Helper()
	store, err := NewRunStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunStore_Lifecycle(t *testing.T) {
	store := newTestRunStore(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	runID, err := store.BeginRun(start, map[string]any{"workers": 4, "git": true})
	require.NoError(t, err)
	assert.Positive(t, runID)

	require.NoError(t, store.RecordOutcome(runID, schema.OutcomeRecord{
		PackagePath: "Packs/A/Integrations/A", Tool: "flake8", Bit: 1, Failed: true, DurationMs: 12, RecordedAt: start,
	}))
	require.NoError(t, store.RecordOutcome(runID, schema.OutcomeRecord{
		PackagePath: "Packs/A/Integrations/A", Tool: "pylint", Image: "demisto/python3:3.8", DurationMs: 1200, RecordedAt: start,
	}))
	require.NoError(t, store.EndRun(runID, start.Add(3*time.Second), 1, 1))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, start.Equal(runs[0].StartTime))
	require.NotNil(t, runs[0].RunDurationMs)
	assert.Equal(t, int64(3000), *runs[0].RunDurationMs)
	require.NotNil(t, runs[0].ExitCode)
	assert.Equal(t, int32(1), *runs[0].ExitCode)
	require.NotNil(t, runs[0].ConfigParams)
	assert.JSONEq(t, `{"workers":4,"git":true}`, *runs[0].ConfigParams)

	outcomes, err := store.GetAllOutcomes()
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "flake8", outcomes[0].Tool)
	assert.True(t, outcomes[0].Failed)
	assert.Equal(t, "pylint", outcomes[1].Tool)
	assert.False(t, outcomes[1].Failed)
	assert.Equal(t, "demisto/python3:3.8", outcomes[1].Image)
}

func TestRunStore_Status(t *testing.T) {
	store := newTestRunStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Zero(t, status.TotalRuns)

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id1, err := store.BeginRun(first, nil)
	require.NoError(t, err)
	require.NoError(t, store.EndRun(id1, first.Add(time.Second), 0, 3))
	id2, err := store.BeginRun(first.Add(time.Hour), nil)
	require.NoError(t, err)
	require.NoError(t, store.EndRun(id2, first.Add(time.Hour+time.Second), 8, 2))

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalRuns)
	assert.Equal(t, id2, status.LastRunID)
	assert.Equal(t, 8, status.LastRunExitCode)
	assert.Equal(t, 5, status.TotalPackagesRun)
	assert.True(t, first.Equal(status.OldestRunTime))
	assert.Equal(t, int64(2), status.TableSizes[runsTable])
	assert.Equal(t, int64(0), status.TableSizes[outcomesTable])
}

func TestRunStore_EndUnknownRun(t *testing.T) {
	store := newTestRunStore(t)
	assert.Error(t, store.EndRun(42, time.Now(), 0, 0))
}

func TestRunStore_NoneBackend(t *testing.T) {
	store, err := NewRunStore(schema.NoneBackend, "")
	require.NoError(t, err)

	id, err := store.BeginRun(time.Now(), nil)
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.NoError(t, store.RecordOutcome(id, schema.OutcomeRecord{}))
	assert.NoError(t, store.EndRun(id, time.Now(), 0, 0))
	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestExecuteHistoryExport(t *testing.T) {
	store := newTestRunStore(t)
	start := time.Now().UTC()
	id, err := store.BeginRun(start, map[string]any{"inputs": []string{"Packs/A"}})
	require.NoError(t, err)
	require.NoError(t, store.RecordOutcome(id, schema.OutcomeRecord{PackagePath: "Packs/A", Tool: "mypy", Bit: 4, Failed: true}))
	require.NoError(t, store.EndRun(id, start.Add(time.Second), 4, 1))

	prefix := filepath.Join(t.TempDir(), "export")
	var out bytes.Buffer
	require.NoError(t, ExecuteHistoryExport(&out, store, prefix))

	assert.FileExists(t, prefix+".runs.parquet")
	assert.FileExists(t, prefix+".outcomes.parquet")
	assert.Contains(t, out.String(), "Exported 1 runs")
	assert.Contains(t, out.String(), "Exported 1 tool outcomes")
}

func TestExecuteHistoryExport_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorContains(t, ExecuteHistoryExport(&out, nil, "x"), "disabled")
	assert.ErrorContains(t, ExecuteHistoryExport(&out, newTestRunStore(t), ""), "--output-file")

	empty := new(contract.MockRunStore)
	empty.On("GetStatus").Return(schema.HistoryStatus{Backend: "sqlite"}, nil)
	assert.ErrorContains(t, ExecuteHistoryExport(&out, empty, "x"), "no run history")
	empty.AssertNotCalled(t, "GetAllRuns")
	empty.AssertExpectations(t)
}
