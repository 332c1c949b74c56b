package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/huangsam/packlint/core"
	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/internal/outwriter"
	"github.com/huangsam/packlint/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
	deps    core.Dependencies
}

// lastRunSummary is the payload of last_report.
type lastRunSummary struct {
	Run      schema.RunRecord       `json:"run"`
	Failures []schema.OutcomeRecord `json:"failures"`
	Outcomes int                    `json:"outcomes"`
}

// dependencies fills the store collaborators from the manager.
func (h *toolHandler) dependencies() core.Dependencies {
	deps := h.deps
	if h.mgr != nil {
		deps.Images = h.mgr.GetImageStore()
		deps.Runs = h.mgr.GetRunStore()
	}
	return deps
}

func (h *toolHandler) handleListPackages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	cfg.Inputs = nil
	switch mode := request.GetString("mode", "all"); mode {
	case "all":
		cfg.AllPackages, cfg.GitOnly = true, false
	case "git":
		cfg.AllPackages, cfg.GitOnly = false, true
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid mode %q: expected all or git", mode)), nil
	}
	if d := request.GetString("work_dir", ""); d != "" {
		cfg.WorkDir = d
	}

	deps := h.dependencies()
	facts, err := core.Probe(ctx, cfg, deps)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("probe failed: %v", err)), nil
	}
	pkgs, err := core.Select(ctx, cfg, facts, deps)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("package selection failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(pkgs, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleLintPackages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	cfg.Inputs = contract.SplitCSV(request.GetString("paths", ""))
	if len(cfg.Inputs) == 0 {
		return mcp.NewToolResultError("paths is required"), nil
	}
	cfg.AllPackages, cfg.GitOnly = false, false
	if request.GetBool("no_tests", false) {
		cfg.NoTest = true
		cfg.NoPwshTest = true
	}
	if w := request.GetInt("workers", 0); w > 0 {
		cfg.Workers = w
	}

	report, err := core.ExecuteLint(ctx, cfg, h.dependencies())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lint failed: %v", err)), nil
	}

	var buf bytes.Buffer
	if err := outwriter.WriteAggregateJSON(&buf, report); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (h *toolHandler) handleLastReport(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := h.lastRun()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonData, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

// lastRun finds the run with the highest id and collects its failing outcomes.
func (h *toolHandler) lastRun() (lastRunSummary, error) {
	var summary lastRunSummary
	if h.mgr == nil || h.mgr.GetRunStore() == nil {
		return summary, errors.New("run history is disabled")
	}
	store := h.mgr.GetRunStore()

	runs, err := store.GetAllRuns()
	if err != nil {
		return summary, fmt.Errorf("failed to read runs: %w", err)
	}
	if len(runs) == 0 {
		return summary, errors.New("no run history found")
	}
	summary.Run = runs[0]
	for _, r := range runs[1:] {
		if r.RunID > summary.Run.RunID {
			summary.Run = r
		}
	}

	outcomes, err := store.GetAllOutcomes()
	if err != nil {
		return summary, fmt.Errorf("failed to read outcomes: %w", err)
	}
	summary.Failures = []schema.OutcomeRecord{}
	for _, o := range outcomes {
		if o.RunID != summary.Run.RunID {
			continue
		}
		summary.Outcomes++
		if o.Failed {
			summary.Failures = append(summary.Failures, o)
		}
	}
	return summary, nil
}
