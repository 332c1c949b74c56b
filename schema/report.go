package schema

import (
	"slices"
	"time"
)

// SkipMask records which tools were not run and why. The external view is the
// combined mask; the two causes stay separate for diagnostics.
type SkipMask struct {
	ByFlag       FailureBits `json:"by_flag"`
	ByCapability FailureBits `json:"by_capability"`
}

// Combined returns the union of both causes.
func (m SkipMask) Combined() FailureBits {
	return m.ByFlag | m.ByCapability
}

// Reason returns why the tool was skipped, if it was.
func (m SkipMask) Reason(tool ToolName) (SkipReason, bool) {
	switch {
	case m.ByFlag.Has(tool):
		return SkipByFlag, true
	case m.ByCapability.Has(tool):
		return SkipByCapability, true
	default:
		return "", false
	}
}

// AggregateReport is the run-wide result. Only the draining loop of the
// orchestrator mutates it.
type AggregateReport struct {
	Packages     map[string]PackageResult `json:"packages"`
	Failing      map[ToolName][]string    `json:"failing"`
	ExitCode     FailureBits              `json:"exit_code"`
	RuntimesSeen map[RuntimeKind]bool     `json:"runtimes_seen"`
	Skipped      SkipMask                 `json:"skipped"`
	Degradations []Degradation            `json:"degradations,omitempty"`
	Started      time.Time                `json:"started"`
	Finished     time.Time                `json:"finished"`
}

// NewAggregateReport creates an empty report.
func NewAggregateReport(skipped SkipMask, started time.Time) *AggregateReport {
	return &AggregateReport{
		Packages:     make(map[string]PackageResult),
		Failing:      make(map[ToolName][]string),
		RuntimesSeen: make(map[RuntimeKind]bool),
		Skipped:      skipped,
		Started:      started,
	}
}

// Merge folds one package result into the report.
func (r *AggregateReport) Merge(res PackageResult) {
	if prev, ok := r.Packages[res.Package]; ok {
		r.unlist(prev)
	}
	r.Packages[res.Package] = res
	r.ExitCode |= res.ExitCode
	if res.Runtime != "" && res.Runtime != UnknownRuntime {
		r.RuntimesSeen[res.Runtime] = true
	}
	for _, tool := range res.ExitCode.Tools() {
		r.Failing[tool] = append(r.Failing[tool], res.Package)
	}
}

// unlist drops a previous result for the same package so re-merging stays idempotent.
func (r *AggregateReport) unlist(prev PackageResult) {
	for _, tool := range prev.ExitCode.Tools() {
		r.Failing[tool] = slices.DeleteFunc(r.Failing[tool], func(p string) bool { return p == prev.Package })
		if len(r.Failing[tool]) == 0 {
			delete(r.Failing, tool)
		}
	}
	r.ExitCode = NoFailures
	for pkg, res := range r.Packages {
		if pkg != prev.Package {
			r.ExitCode |= res.ExitCode
		}
	}
}

// SortedPackages returns package identities in lexical order.
func (r *AggregateReport) SortedPackages() []string {
	keys := make([]string, 0, len(r.Packages))
	for k := range r.Packages {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ToolStatus classifies a tool for the summary table.
func (r *AggregateReport) ToolStatus(tool ToolName) string {
	if _, skipped := r.Skipped.Reason(tool); skipped {
		return "skip"
	}
	if len(r.Failing[tool]) > 0 {
		return "fail"
	}
	return "pass"
}

// TestSummary counts packages that reported unit tests.
type TestSummary struct {
	PackagesWithTests int
	PassedPackages    int
	FailedPackages    int
	PassedTests       int
	FailedTests       int
	SkippedTests      int
}

// Tests builds the unit-test summary across all packages.
func (r *AggregateReport) Tests() TestSummary {
	var s TestSummary
	for _, res := range r.Packages {
		ran := false
		failed := false
		for _, o := range res.AllOutcomes() {
			if !o.Tool.RunsUnitTests() {
				continue
			}
			ran = true
			if o.Failed() {
				failed = true
			}
			for _, tc := range o.Tests {
				switch tc.Outcome {
				case TestPassed:
					s.PassedTests++
				case TestFailed:
					s.FailedTests++
				default:
					s.SkippedTests++
				}
			}
		}
		if !ran {
			continue
		}
		s.PackagesWithTests++
		if failed {
			s.FailedPackages++
		} else {
			s.PassedPackages++
		}
	}
	return s
}
