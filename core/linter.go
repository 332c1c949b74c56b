package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
	"golang.org/x/sync/singleflight"
)

// Python versions assumed when the image cannot be probed.
const (
	fallbackPython2Version = "2.7"
	fallbackPython3Version = "3.8"
)

// LinterOptions holds per-run settings for the package runner.
type LinterOptions struct {
	KeepContainer     bool
	TestXMLDir        string
	Timeout           time.Duration
	VultureConfidence int
	User              string // uid:gid inside containers
	DockerGID         int
	RetryDelay        time.Duration
}

// Linter runs the tool battery for one package at a time. It is safe for
// concurrent use by the worker pool; only the version cache is shared.
type Linter struct {
	facts  *schema.Facts
	exec   contract.Executor
	docker contract.ContainerRuntime
	images contract.ImageCacheStore
	opts   LinterOptions
	logger *slog.Logger

	probes   singleflight.Group
	versions sync.Map // base image -> "major.minor"
}

// NewLinter creates a package runner. docker and images may be nil.
func NewLinter(facts *schema.Facts, exec contract.Executor, docker contract.ContainerRuntime, images contract.ImageCacheStore, opts LinterOptions, logger *slog.Logger) *Linter {
	if logger == nil {
		logger = contract.NewDiscardLogger()
	}
	if opts.DockerGID <= 0 {
		opts.DockerGID = contract.DefaultDockerGID
	}
	if opts.User == "" {
		opts.User = fmt.Sprintf("%d:%d", os.Getuid(), opts.DockerGID)
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &Linter{
		facts:  facts,
		exec:   exec,
		docker: docker,
		images: images,
		opts:   opts,
		logger: logger,
	}
}

// RunPackage runs every enabled tool for pkg and returns its immutable result.
// Tools whose bit is set in skip are never invoked.
func (l *Linter) RunPackage(ctx context.Context, pkg schema.Package, skip schema.FailureBits) schema.PackageResult {
	start := time.Now()
	log := l.logger.With("package", pkg.Path)
	res := schema.PackageResult{Package: pkg.Path, Runtime: pkg.Runtime}

	if len(pkg.LintFiles) == 0 {
		log.Info("no lint files, skipping")
		res.Skipped = true
		return res
	}
	if pkg.Runtime == schema.UnknownRuntime {
		log.Info("runtime unknown, skipping")
		res.Skipped = true
		return res
	}

	if pkg.Runtime.IsPython() {
		inj, err := injectModules(pkg, l.facts)
		if err != nil {
			log.Warn("support modules incomplete", "error", err)
		}
		defer func() {
			if err := inj.cleanup(); err != nil {
				log.Warn("could not remove support modules", "error", err)
			}
		}()
	}

	versions := make([]string, len(pkg.Images))
	for i, image := range pkg.Images {
		versions[i] = l.runtimeVersion(ctx, pkg, image)
	}

	if pkg.Runtime.IsPython() {
		for _, tool := range schema.HostTools {
			if skip.Has(tool) {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			res.Outcomes = append(res.Outcomes, l.runHostTool(ctx, pkg, tool, versions[0]))
		}
	}

	if l.dockerEnabled() && !skip.Has(schema.ImageTool) {
		if tools := containerToolsFor(pkg, skip); len(tools) > 0 {
			for i, image := range pkg.Images {
				if ctx.Err() != nil {
					break
				}
				res.Images = append(res.Images, l.runImage(ctx, pkg, image, versions[i], tools))
			}
		}
	}

	for _, o := range res.AllOutcomes() {
		res.ExitCode |= o.Bit
	}
	res.Duration = time.Since(start)
	log.Info("package finished", "exit_code", res.ExitCode.Int(), "failed", res.ExitCode.String(), "duration", res.Duration)
	return res
}

func (l *Linter) dockerEnabled() bool {
	return l.facts.DockerAvailable && l.docker != nil
}

// runHostTool executes one host-scoped tool in the package directory.
func (l *Linter) runHostTool(ctx context.Context, pkg schema.Package, tool schema.ToolName, version string) schema.CheckOutcome {
	start := time.Now()
	outcome := schema.CheckOutcome{Tool: tool}

	cmd, err := BuildCommand(tool, pkg.LintFiles, CommandOptions{
		PythonVersion:     version,
		VultureConfidence: l.opts.VultureConfidence,
	})
	if err != nil {
		outcome.Bit = schema.BitFor(tool)
		outcome.Errors = err.Error()
		return outcome
	}

	l.logger.Debug("running host tool", "package", pkg.Path, "tool", tool, "command", cmd.String())
	r := l.exec.Run(ctx, pkg.Dir, cmd.Args)
	outcome.DurationMs = time.Since(start).Milliseconds()
	if r.Failed() {
		outcome.Bit = schema.BitFor(tool)
		outcome.Errors = r.Text()
		l.logger.Info("tool failed", "package", pkg.Path, "tool", tool, "exit_code", r.ExitCode)
	}
	return outcome
}

// containerToolsFor lists the container tools that apply to pkg, in run order.
func containerToolsFor(pkg schema.Package, skip schema.FailureBits) []schema.ToolName {
	var lint, test schema.ToolName
	switch {
	case pkg.Runtime.IsPython():
		lint, test = schema.PylintTool, schema.PytestTool
	case pkg.Runtime == schema.PowershellRuntime:
		lint, test = schema.PwshAnalyzeTool, schema.PwshTestTool
	default:
		return nil
	}

	var tools []schema.ToolName
	if !skip.Has(lint) {
		tools = append(tools, lint)
	}
	if pkg.HasTests && !skip.Has(test) {
		tools = append(tools, test)
	}
	return tools
}

// fallbackVersion maps a runtime kind to the interpreter version assumed without Docker.
func fallbackVersion(runtime schema.RuntimeKind) string {
	if runtime == schema.Python3Runtime {
		return fallbackPython3Version
	}
	return fallbackPython2Version
}
