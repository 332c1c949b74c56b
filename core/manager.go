package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
)

// PackageRunner runs one package to completion. *Linter implements it.
type PackageRunner interface {
	RunPackage(ctx context.Context, pkg schema.Package, skip schema.FailureBits) schema.PackageResult
}

var _ PackageRunner = (*Linter)(nil)

// Manager dispatches packages onto a bounded worker pool and reduces their results.
type Manager struct {
	cfg    *contract.Config
	facts  *schema.Facts
	runner PackageRunner
	runs   contract.RunStore
	logger *slog.Logger
}

// NewManager creates an orchestrator. runs may be nil when history is disabled.
func NewManager(cfg *contract.Config, facts *schema.Facts, runner PackageRunner, runs contract.RunStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = contract.NewDiscardLogger()
	}
	return &Manager{cfg: cfg, facts: facts, runner: runner, runs: runs, logger: logger}
}

// ComputeSkipMask combines flag-disabled tools with those the environment cannot run.
func ComputeSkipMask(disabled schema.FailureBits, facts *schema.Facts) schema.SkipMask {
	mask := schema.SkipMask{ByFlag: disabled}
	if !facts.DockerAvailable {
		for _, tool := range schema.ContainerTools {
			mask.ByCapability = mask.ByCapability.Set(tool)
		}
	}
	return mask
}

// Run lints every package and returns the combined exit bits with the aggregate report.
// Results are drained in completion order by a single writer. A cancelled context stops
// dispatch and drops results of interrupted packages.
func (m *Manager) Run(ctx context.Context, pkgs []schema.Package) (schema.FailureBits, *schema.AggregateReport) {
	skipped := ComputeSkipMask(m.cfg.DisabledTools(), m.facts)
	report := schema.NewAggregateReport(skipped, time.Now())
	report.Degradations = m.facts.Degradations

	runID := m.beginRun(report.Started, len(pkgs))

	workers := max(m.cfg.Workers, 1)
	pkgCh := make(chan schema.Package)
	resultCh := make(chan schema.PackageResult, len(pkgs))
	var wg sync.WaitGroup

	// Start worker pool
	for range workers {
		wg.Go(func() {
			for pkg := range pkgCh {
				res := m.runner.RunPackage(ctx, pkg, skipped.Combined())
				if ctx.Err() != nil {
					m.logger.Warn("package interrupted, result dropped", "package", pkg.Path)
					continue
				}
				resultCh <- res
			}
		})
	}

	// Send packages until done or cancelled
	go func() {
		defer close(pkgCh)
		for _, pkg := range pkgs {
			select {
			case pkgCh <- pkg:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		report.Merge(res)
		m.recordOutcomes(runID, res)
		m.logger.Debug("package merged", "package", res.Package, "exit_code", res.ExitCode.Int())
	}

	report.Finished = time.Now()
	m.endRun(runID, report)
	return report.ExitCode, report
}

// beginRun opens a history record when a run store is configured.
func (m *Manager) beginRun(start time.Time, total int) int64 {
	if m.runs == nil {
		return 0
	}
	params := map[string]any{
		"inputs":       m.cfg.Inputs,
		"all_packages": m.cfg.AllPackages,
		"git":          m.cfg.GitOnly,
		"workers":      m.cfg.Workers,
		"disabled":     m.cfg.DisabledTools().String(),
		"packages":     total,
		"docker":       m.facts.DockerAvailable,
	}
	id, err := m.runs.BeginRun(start, params)
	if err != nil {
		logTrackingError("BeginRun", err)
		return 0
	}
	return id
}

func (m *Manager) recordOutcomes(runID int64, res schema.PackageResult) {
	if m.runs == nil || runID == 0 {
		return
	}
	now := time.Now()
	record := func(image string, o schema.CheckOutcome) {
		rec := schema.OutcomeRecord{
			RunID:       runID,
			PackagePath: res.Package,
			Tool:        string(o.Tool),
			Image:       image,
			Bit:         int32(o.Bit),
			Failed:      o.Failed(),
			DurationMs:  o.DurationMs,
			RecordedAt:  now,
		}
		if err := m.runs.RecordOutcome(runID, rec); err != nil {
			logTrackingError(fmt.Sprintf("RecordOutcome on %s", res.Package), err)
		}
	}
	for _, o := range res.Outcomes {
		record("", o)
	}
	for _, img := range res.Images {
		if img.Build != nil {
			record(img.Image, *img.Build)
		}
		for _, o := range img.Outcomes {
			record(img.Image, o)
		}
	}
}

func (m *Manager) endRun(runID int64, report *schema.AggregateReport) {
	if m.runs == nil || runID == 0 {
		return
	}
	if err := m.runs.EndRun(runID, report.Finished, report.ExitCode.Int(), len(report.Packages)); err != nil {
		logTrackingError("EndRun", err)
	}
}

// logTrackingError logs history tracking errors to stderr without disrupting the run.
func logTrackingError(operation string, err error) {
	contract.LogWarn(fmt.Sprintf("Run tracking failed for %s", operation), err)
}
