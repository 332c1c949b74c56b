package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
	"golang.org/x/sync/errgroup"
)

// Capabilities reported as degradations.
const (
	CapabilityRepo    = "repository"
	CapabilityDocker  = "docker"
	CapabilityNetwork = "network"
	CapabilityModules = "mandatory-modules"
)

const probeTimeout = 5 * time.Second

// ProbeOptions carries the collaborators and settings for GatherFacts.
type ProbeOptions struct {
	WorkDir         string
	LockDir         string
	NetworkProbeURL string
	GitRemote       string
	Git             contract.GitClient
	Docker          contract.ContainerRuntime // nil means Docker is not configured
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// GatherFacts probes the environment once per invocation. Lock data problems are
// fatal and wrap ErrLockData; every other missing capability is recorded as a degradation.
func GatherFacts(ctx context.Context, opts ProbeOptions) (*schema.Facts, error) {
	logger := opts.Logger
	if logger == nil {
		logger = contract.NewDiscardLogger()
	}

	reqs, err := LoadRequirements(opts.LockDir)
	if err != nil {
		return nil, err
	}
	facts := &schema.Facts{Requirements: reqs}

	facts.RepoRoot = findRepoRoot(ctx, opts.Git, opts.WorkDir)
	if !facts.HasRepo() {
		facts.Degradations = append(facts.Degradations, schema.Degradation{
			Capability: CapabilityRepo,
			Reason:     "no repository found, only explicit package paths can be linted",
		})
	}

	var dockerErr, networkErr error
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		dockerErr = probeDocker(groupCtx, opts.Docker)
		return nil
	})
	group.Go(func() error {
		networkErr = probeNetwork(groupCtx, opts.HTTPClient, opts.NetworkProbeURL)
		return nil
	})
	_ = group.Wait()

	facts.NetworkAvailable = networkErr == nil
	facts.DockerAvailable = dockerErr == nil && facts.NetworkAvailable
	if networkErr != nil {
		facts.Degradations = append(facts.Degradations, schema.Degradation{
			Capability: CapabilityNetwork,
			Reason:     networkErr.Error(),
		})
	}
	switch {
	case dockerErr != nil:
		facts.Degradations = append(facts.Degradations, schema.Degradation{
			Capability: CapabilityDocker,
			Reason:     dockerErr.Error(),
		})
	case !facts.DockerAvailable:
		facts.Degradations = append(facts.Degradations, schema.Degradation{
			Capability: CapabilityDocker,
			Reason:     "disabled because the network is unreachable",
		})
	}

	remote := opts.GitRemote
	if remote == "" {
		remote = contract.DefaultGitRemote
	}
	modules, missing := collectMandatoryModules(ctx, opts.Git, facts.RepoRoot, remote, facts.NetworkAvailable, logger)
	facts.MandatoryModules = modules
	if len(missing) > 0 {
		facts.Degradations = append(facts.Degradations, schema.Degradation{
			Capability: CapabilityModules,
			Reason:     "missing " + strings.Join(missing, ", "),
		})
	}

	for _, d := range facts.Degradations {
		logger.Warn("capability unavailable", "capability", d.Capability, "reason", d.Reason)
	}
	return facts, nil
}

// findRepoRoot walks parents for a .git marker, then asks git.
func findRepoRoot(ctx context.Context, git contract.GitClient, workDir string) string {
	if workDir == "" {
		workDir = "."
	}
	dir, err := filepath.Abs(workDir)
	if err != nil {
		return ""
	}
	for cur := dir; ; {
		if _, err := os.Stat(filepath.Join(cur, ".git")); err == nil {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	if git == nil {
		return ""
	}
	root, err := git.GetRepoRoot(ctx, dir)
	if err != nil {
		return ""
	}
	return root
}

func probeDocker(ctx context.Context, docker contract.ContainerRuntime) error {
	if docker == nil {
		return fmt.Errorf("docker client unavailable")
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := docker.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return nil
}

// probeNetwork treats any HTTP response as reachability.
func probeNetwork(ctx context.Context, client *http.Client, url string) error {
	if url == "" {
		url = contract.DefaultNetworkProbeURL
	}
	if client == nil {
		client = &http.Client{Timeout: probeTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("network probe: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("network unreachable: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}
