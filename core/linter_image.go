package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/internal/docker"
	"github.com/huangsam/packlint/schema"
)

const (
	buildAttempts     = 2
	containerAttempts = 2
	maxRetryDelay     = 10 * time.Second
	imageRepoPrefix   = "packlint/"
	imageTagLength    = 12
)

var (
	versionPattern = regexp.MustCompile(`^\d+\.\d+$`)
	invalidRefChar = regexp.MustCompile(`[^a-z0-9._-]+`)
	errRetryExit   = errors.New("retryable exit code")
)

// ImageCacheKey hashes the inputs that decide the content of a package test image.
// Package sources are not part of the image, so edits never make a cached image stale.
func ImageCacheKey(pkgPath, runtimeVersion, baseImage string, requirements []string) string {
	reqs := slices.Clone(requirements)
	slices.Sort(reqs)
	h := sha256.New()
	for _, part := range []string{pkgPath, runtimeVersion, baseImage, strings.Join(reqs, "\n")} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ImageRef returns the tag for a cache key, e.g. packlint/helloworld:0123456789ab.
func ImageRef(pkgName, key string) (repo, tag string) {
	name := strings.Trim(invalidRefChar.ReplaceAllString(strings.ToLower(pkgName), "-"), "-._")
	if name == "" {
		name = "package"
	}
	return imageRepoPrefix + name, key[:imageTagLength]
}

// runtimeVersion probes the python version of a base image, once per image per process.
func (l *Linter) runtimeVersion(ctx context.Context, pkg schema.Package, image string) string {
	if !pkg.Runtime.IsPython() {
		return ""
	}
	fallback := fallbackVersion(pkg.Runtime)
	if !l.dockerEnabled() {
		return fallback
	}
	if v, ok := l.versions.Load(image); ok {
		return v.(string)
	}

	v, _, _ := l.probes.Do(image, func() (any, error) {
		res, err := l.docker.RunContainer(ctx, contract.ContainerSpec{
			Image:   image,
			Command: PythonVersionCommand().String(),
			Timeout: l.opts.Timeout,
		})
		version := strings.TrimSpace(res.Logs)
		if err != nil || res.ExitCode != 0 || !versionPattern.MatchString(version) {
			l.logger.Warn("could not probe python version, using fallback",
				"image", image, "fallback", fallback, "output", version, "error", err)
			return fallback, nil
		}
		l.versions.Store(image, version)
		return version, nil
	})
	return v.(string)
}

// imageRequirements returns the pinned lock entries plus the package's extras.
func (l *Linter) imageRequirements(pkg schema.Package, version string) []string {
	if !pkg.Runtime.IsPython() {
		return nil
	}
	return slices.Concat(l.facts.RequirementsFor(version), pkg.ExtraRequirements)
}

// runImage builds (or reuses) the test image and runs the container tools on it.
// A failed build aborts only this image.
func (l *Linter) runImage(ctx context.Context, pkg schema.Package, image, version string, tools []schema.ToolName) schema.ImageResult {
	ir := schema.ImageResult{Image: image, RuntimeVersion: version}

	ref, build := l.ensureImage(ctx, pkg, image, version)
	ir.Build = &build
	if build.Failed() {
		l.logger.Warn("image build failed", "package", pkg.Path, "image", image)
		return ir
	}

	for _, tool := range tools {
		if ctx.Err() != nil {
			break
		}
		ir.Outcomes = append(ir.Outcomes, l.runContainerTool(ctx, pkg, tool, ref))
	}
	return ir
}

// ensureImage returns a ready image reference and the build outcome.
func (l *Linter) ensureImage(ctx context.Context, pkg schema.Package, image, version string) (string, schema.CheckOutcome) {
	start := time.Now()
	outcome := schema.CheckOutcome{Tool: schema.ImageTool}
	fail := func(err error) (string, schema.CheckOutcome) {
		outcome.Bit = schema.BitFor(schema.ImageTool)
		outcome.Errors = err.Error()
		outcome.DurationMs = time.Since(start).Milliseconds()
		return "", outcome
	}

	reqs := l.imageRequirements(pkg, version)
	key := ImageCacheKey(pkg.Path, version, image, reqs)
	repo, tag := ImageRef(pkg.Name, key)
	ref := repo + ":" + tag

	if l.cachedImage(ctx, key, ref) {
		l.logger.Debug("reusing cached image", "package", pkg.Path, "image", ref)
		outcome.DurationMs = time.Since(start).Milliseconds()
		return ref, outcome
	}

	dockerfile, err := docker.RenderDockerfile(docker.DockerfileData{
		BaseImage:    image,
		Requirements: reqs,
		WorkDir:      ContainerWorkDir,
		GID:          l.opts.DockerGID,
	})
	if err != nil {
		return fail(err)
	}

	// The build context stays empty; sources are copied in per container run.
	buildDir, err := os.MkdirTemp("", "packlint-build-*")
	if err != nil {
		return fail(fmt.Errorf("create build context: %w", err))
	}
	defer func() { _ = os.RemoveAll(buildDir) }()

	spec := contract.BuildSpec{ContextDir: buildDir, Dockerfile: dockerfile, Repo: repo, Tag: tag}
	l.logger.Info("building image", "package", pkg.Path, "base", image, "image", ref)
	built, err := retry.DoWithData(func() (string, error) {
		return l.docker.BuildImage(ctx, spec)
	}, retry.Attempts(buildAttempts), retry.Delay(l.opts.RetryDelay), retry.MaxDelay(maxRetryDelay), retry.Context(ctx))
	if err != nil {
		return fail(err)
	}
	if built != "" {
		ref = built
	}

	if l.images != nil {
		entry := schema.ImageCacheEntry{Key: key, Tag: ref, BuiltAt: time.Now()}
		if err := l.images.Set(entry); err != nil {
			l.logger.Warn("could not record image in cache", "image", ref, "error", err)
		}
	}
	outcome.DurationMs = time.Since(start).Milliseconds()
	return ref, outcome
}

// cachedImage reports whether the cache maps key to ref and the image still exists.
func (l *Linter) cachedImage(ctx context.Context, key, ref string) bool {
	if l.images == nil {
		return false
	}
	entry, err := l.images.Get(key)
	if err != nil || entry.Tag != ref {
		return false
	}
	exists, err := l.docker.ImageExists(ctx, ref)
	if err != nil || !exists {
		if delErr := l.images.Delete(key); delErr != nil {
			l.logger.Debug("could not drop stale cache entry", "key", key, "error", delErr)
		}
		return false
	}
	return true
}

// runContainerTool runs one container-scoped tool, retrying once on usage-error exit codes.
func (l *Linter) runContainerTool(ctx context.Context, pkg schema.Package, tool schema.ToolName, ref string) schema.CheckOutcome {
	start := time.Now()
	outcome := schema.CheckOutcome{Tool: tool}

	cmd, err := BuildCommand(tool, pkg.LintFiles, CommandOptions{JUnitXML: l.opts.TestXMLDir != ""})
	if err != nil {
		outcome.Bit = schema.BitFor(tool)
		outcome.Errors = err.Error()
		return outcome
	}
	spec := contract.ContainerSpec{
		Name:    ContainerName(pkg.Name, tool),
		Image:   ref,
		Command: cmd.String(),
		User:    l.opts.User,
		WorkDir: ContainerWorkDir,
		Keep:    l.opts.KeepContainer,
		CopyIn:  pkg.Dir,
		Timeout: l.opts.Timeout,
	}
	if tool == schema.PytestTool {
		spec.CopyOut = []string{PytestJSONReport}
		if l.opts.TestXMLDir != "" {
			spec.CopyOut = append(spec.CopyOut, PytestXMLReport)
		}
	}

	var result contract.ContainerResult
	var runErr error
	err = retry.Do(func() error {
		result, runErr = l.docker.RunContainer(ctx, spec)
		if runErr == nil && retryableExit(tool, result.ExitCode) {
			l.logger.Warn("container tool hit a usage error", "package", pkg.Path, "tool", tool, "exit_code", result.ExitCode)
			return errRetryExit
		}
		return nil
	}, retry.Attempts(containerAttempts), retry.Delay(l.opts.RetryDelay), retry.MaxDelay(maxRetryDelay), retry.Context(ctx))
	if err != nil && runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	outcome.DurationMs = time.Since(start).Milliseconds()

	if runErr != nil {
		outcome.Bit = schema.BitFor(tool)
		outcome.Errors = runErr.Error()
		return outcome
	}
	if l.opts.KeepContainer {
		l.logger.Info("container kept", "package", pkg.Path, "tool", tool, "container", spec.Name)
	}

	if tool == schema.PytestTool {
		l.collectPytestReports(pkg, result, &outcome)
	}
	if !passingExit(tool, result.ExitCode) {
		outcome.Bit = schema.BitFor(tool)
		outcome.Errors = result.Logs
		if outcome.Errors == "" {
			outcome.Errors = fmt.Sprintf("%s exited with code %d", tool, result.ExitCode)
		}
	}
	return outcome
}

// collectPytestReports parses the JSON report and saves the JUnit XML when requested.
func (l *Linter) collectPytestReports(pkg schema.Package, result contract.ContainerResult, outcome *schema.CheckOutcome) {
	switch result.ExitCode {
	case 0, 1, 2, 5:
	default:
		return
	}
	if data, ok := result.Files[PytestJSONReport]; ok {
		tests, err := ParsePytestReport(data)
		if err != nil {
			l.logger.Warn("could not parse pytest report", "package", pkg.Path, "error", err)
		}
		outcome.Tests = tests
	}
	if l.opts.TestXMLDir == "" {
		return
	}
	if data, ok := result.Files[PytestXMLReport]; ok {
		dst := filepath.Join(l.opts.TestXMLDir, pkg.Name+"_pytest.xml")
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			l.logger.Warn("could not save junit report", "path", dst, "error", err)
		}
	}
}

// ContainerName is the fixed per-package container name for a tool.
func ContainerName(pkgName string, tool schema.ToolName) string {
	return fmt.Sprintf("%s-%s", pkgName, tool)
}

// passingExit applies each tool's exit code table.
func passingExit(tool schema.ToolName, code int) bool {
	switch tool {
	case schema.PylintTool:
		// 4, 8 and 16 are warning, refactor and convention messages only.
		return code == 0 || code == 4 || code == 8 || code == 16
	case schema.PytestTool:
		// 5 means no tests were collected.
		return code == 0 || code == 5
	default:
		return code == 0
	}
}

// retryableExit reports usage-error codes worth one more attempt.
func retryableExit(tool schema.ToolName, code int) bool {
	switch tool {
	case schema.PylintTool:
		return code == 32
	case schema.PytestTool:
		return code == 3 || code == 4
	default:
		return false
	}
}

type pytestReport struct {
	Report struct {
		Tests []struct {
			Name    string `json:"name"`
			Outcome string `json:"outcome"`
			Call    struct {
				Longrepr string `json:"longrepr"`
			} `json:"call"`
		} `json:"tests"`
	} `json:"report"`
}

// ParsePytestReport converts a pytest-json report into test cases.
func ParsePytestReport(data []byte) ([]schema.TestCase, error) {
	var report pytestReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode pytest report: %w", err)
	}
	tests := make([]schema.TestCase, 0, len(report.Report.Tests))
	for _, t := range report.Report.Tests {
		tc := schema.TestCase{Name: t.Name}
		switch t.Outcome {
		case "passed":
			tc.Outcome = schema.TestPassed
		case "skipped", "xfailed":
			tc.Outcome = schema.TestSkipped
		default:
			tc.Outcome = schema.TestFailed
			tc.Trace = schema.SplitTrace(t.Call.Longrepr)
		}
		tests = append(tests, tc)
	}
	return tests, nil
}
