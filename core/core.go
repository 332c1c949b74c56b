// Package core has the lint pipeline: probing, package selection, running and reduction.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
)

// Dependencies bundles the collaborators of a lint run. Docker, Images and Runs may be nil.
type Dependencies struct {
	Git    contract.GitClient
	Exec   contract.Executor
	Docker contract.ContainerRuntime
	Images contract.ImageCacheStore
	Runs   contract.RunStore
	HTTP   *http.Client
	Logger *slog.Logger
}

// Probe gathers the environment facts for cfg.
func Probe(ctx context.Context, cfg *contract.Config, deps Dependencies) (*schema.Facts, error) {
	return GatherFacts(ctx, ProbeOptions{
		WorkDir:         cfg.WorkDir,
		LockDir:         cfg.LockDir,
		NetworkProbeURL: cfg.NetworkProbeURL,
		GitRemote:       cfg.GitRemote,
		Git:             deps.Git,
		Docker:          deps.Docker,
		HTTPClient:      deps.HTTP,
		Logger:          deps.Logger,
	})
}

// Select resolves the packages named by cfg.
func Select(ctx context.Context, cfg *contract.Config, facts *schema.Facts, deps Dependencies) ([]schema.Package, error) {
	return SelectPackages(ctx, facts, SelectOptions{
		Inputs:  cfg.Inputs,
		All:     cfg.AllPackages,
		GitOnly: cfg.GitOnly,
		Remote:  cfg.GitRemote,
		Git:     deps.Git,
		Logger:  deps.Logger,
	})
}

// ExecuteLint is the main entry point of the lint command. Lock data errors are
// returned before any package runs; everything else lands in the report.
func ExecuteLint(ctx context.Context, cfg *contract.Config, deps Dependencies) (*schema.AggregateReport, error) {
	if deps.Logger == nil {
		deps.Logger = contract.NewDiscardLogger()
	}
	facts, err := Probe(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	pkgs, err := Select(ctx, cfg, facts, deps)
	if err != nil {
		return nil, fmt.Errorf("select packages: %w", err)
	}
	deps.Logger.Info("packages selected", "count", len(pkgs), "docker", facts.DockerAvailable, "network", facts.NetworkAvailable)

	linter := NewLinter(facts, deps.Exec, deps.Docker, deps.Images, LinterOptions{
		KeepContainer:     cfg.KeepContainer,
		TestXMLDir:        cfg.TestXMLDir,
		Timeout:           cfg.Timeout,
		VultureConfidence: cfg.VultureConfidence,
		User:              fmt.Sprintf("%d:%d", os.Getuid(), cfg.DockerGID),
		DockerGID:         cfg.DockerGID,
	}, deps.Logger)

	_, report := NewManager(cfg, facts, linter, deps.Runs, deps.Logger).Run(ctx, pkgs)
	return report, nil
}
