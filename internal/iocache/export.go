package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/internal/parquet"
)

// ExecuteHistoryExport writes the run history of store to two Parquet files prefixed by outputFile.
func ExecuteHistoryExport(w io.Writer, store contract.RunStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run history is disabled; set --history-backend")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run history found to export")
	}
	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	outcomes, err := store.GetAllOutcomes()
	if err != nil {
		return fmt.Errorf("failed to retrieve outcomes: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteLintRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(runs), runsFile)

	outcomesFile := outputFile + ".outcomes.parquet"
	if err := parquet.WriteToolOutcomesParquet(parquet.ConvertOutcomeRecords(outcomes), outcomesFile); err != nil {
		return fmt.Errorf("failed to write outcomes: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d tool outcomes to: %s\n", len(outcomes), outcomesFile)
	return nil
}
