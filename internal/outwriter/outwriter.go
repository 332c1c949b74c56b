// Package outwriter has output and writer logic.
package outwriter

import (
	"io"
	"time"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the report formats and provides a clean API for the command layer.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteLint prints the console lint report to w.
func (ow *OutWriter) WriteLint(w io.Writer, report *schema.AggregateReport, cfg *contract.Config) error {
	return PrintLintReport(w, report, ReportOptions{
		Verbose:  cfg.Verbose,
		Color:    cfg.UseColors,
		Width:    GetMaxErrorWidth(0),
		Workers:  cfg.Workers,
		Duration: report.Finished.Sub(report.Started).Round(time.Millisecond),
	})
}

// WriteJSON writes lint_report.json into dir and returns its path.
func (ow *OutWriter) WriteJSON(report *schema.AggregateReport, dir string) (string, error) {
	return WriteJSONReport(report, dir)
}
