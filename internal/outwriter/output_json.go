package outwriter

import (
	"io"
	"path/filepath"

	"github.com/huangsam/packlint/schema"
)

// JSONReportName is the file written into the --json-report directory.
const JSONReportName = "lint_report.json"

// WriteJSONReport writes the per-package results to dir/lint_report.json.
func WriteJSONReport(report *schema.AggregateReport, dir string) (string, error) {
	path := filepath.Join(dir, JSONReportName)
	err := writeWithFile(path, func(w io.Writer) error {
		return writeJSON(w, report.Packages)
	}, "Wrote JSON report")
	return path, err
}

// WriteAggregateJSON encodes the whole aggregate report, including skips and degradations.
func WriteAggregateJSON(w io.Writer, report *schema.AggregateReport) error {
	return writeJSON(w, report)
}
