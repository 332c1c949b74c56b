// Package docker renders package test images and drives the Docker engine through testcontainers.
package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/huangsam/packlint/internal/contract"
	"github.com/moby/go-archive"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// defaultRunTimeout bounds a container run when no timeout is configured.
const defaultRunTimeout = 30 * time.Minute

// Runtime implements contract.ContainerRuntime on a testcontainers Docker provider.
type Runtime struct {
	provider *testcontainers.DockerProvider
	logger   *slog.Logger
}

var _ contract.ContainerRuntime = &Runtime{} // Compile-time check

// NewRuntime connects to the Docker daemon described by the environment.
func NewRuntime(logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = contract.NewDiscardLogger()
	}
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return nil, fmt.Errorf("connect to docker: %w", err)
	}
	return &Runtime{provider: provider, logger: logger}, nil
}

// Ping implements the ContainerRuntime interface.
func (r *Runtime) Ping(ctx context.Context) error {
	return r.provider.Health(ctx)
}

// ImageExists implements the ContainerRuntime interface.
func (r *Runtime) ImageExists(ctx context.Context, ref string) (bool, error) {
	images, err := r.provider.ListImages(ctx)
	if err != nil {
		return false, fmt.Errorf("list images: %w", err)
	}
	for _, img := range images {
		if img.Name == ref {
			return true, nil
		}
	}
	return false, nil
}

// BuildImage implements the ContainerRuntime interface. The rendered Dockerfile is
// written next to the package sources for the duration of the build.
func (r *Runtime) BuildImage(ctx context.Context, spec contract.BuildSpec) (string, error) {
	name := fmt.Sprintf(".packlint-%s.Dockerfile", spec.Tag)
	path := filepath.Join(spec.ContextDir, name)
	if err := os.WriteFile(path, spec.Dockerfile, 0o644); err != nil {
		return "", fmt.Errorf("write dockerfile: %w", err)
	}
	defer func() { _ = os.Remove(path) }()

	var buildLog strings.Builder
	ref, err := r.provider.BuildImage(ctx, &testcontainers.ContainerRequest{
		FromDockerfile: testcontainers.FromDockerfile{
			Context:        spec.ContextDir,
			Dockerfile:     name,
			Repo:           spec.Repo,
			Tag:            spec.Tag,
			KeepImage:      true,
			BuildLogWriter: &buildLog,
		},
	})
	if err != nil {
		return "", fmt.Errorf("build %s:%s: %w\n%s", spec.Repo, spec.Tag, err, tail(buildLog.String(), 20))
	}
	r.logger.Debug("image built", "image", ref)
	return ref, nil
}

// RunContainer implements the ContainerRuntime interface.
func (r *Runtime) RunContainer(ctx context.Context, spec contract.ContainerSpec) (contract.ContainerResult, error) {
	var res contract.ContainerResult

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if spec.Name != "" {
		if err := r.removeStale(ctx, spec.Name); err != nil {
			return res, err
		}
	}

	c, err := r.startContainer(ctx, spec, timeout)
	if c != nil && !spec.Keep {
		defer func() {
			// Terminate with a fresh context so a timed out run is still cleaned up
			if err := c.Terminate(context.Background()); err != nil {
				r.logger.Debug("could not remove container", "container", spec.Name, "error", err)
			}
		}()
	}
	if err != nil {
		return res, fmt.Errorf("run %s: %w", spec.Image, err)
	}

	state, err := c.State(ctx)
	if err != nil {
		return res, fmt.Errorf("inspect %s: %w", spec.Image, err)
	}
	res.ExitCode = state.ExitCode

	if logs, err := c.Logs(ctx); err == nil {
		data, _ := io.ReadAll(logs)
		_ = logs.Close()
		res.Logs = string(data)
	}

	for _, p := range spec.CopyOut {
		src := p
		if !path.IsAbs(src) {
			src = path.Join(spec.WorkDir, p)
		}
		rc, err := c.CopyFileFromContainer(ctx, src)
		if err != nil {
			r.logger.Debug("file not produced by container", "path", p, "error", err)
			continue
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			continue
		}
		if res.Files == nil {
			res.Files = make(map[string][]byte)
		}
		res.Files[p] = data
	}
	return res, nil
}

// startContainer creates the container, copies the package sources in and runs it to exit.
// Kept containers are created without the session labels so the reaper leaves them alone.
func (r *Runtime) startContainer(ctx context.Context, spec contract.ContainerSpec, timeout time.Duration) (testcontainers.Container, error) {
	cmd := []string{"sh", "-c", spec.Command}
	req := testcontainers.ContainerRequest{
		Image: spec.Image,
		Name:  spec.Name,
		Cmd:   cmd,
		ConfigModifier: func(cfg *container.Config) {
			cfg.User = spec.User
			cfg.WorkingDir = spec.WorkDir
		},
		WaitingFor: wait.ForExit().WithExitTimeout(timeout),
	}

	if !spec.Keep {
		c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req})
		if err != nil {
			return c, err
		}
		if err := r.copyIn(ctx, c.GetContainerID(), spec); err != nil {
			return c, err
		}
		return c, c.Start(ctx)
	}

	if spec.Name == "" {
		return nil, errors.New("a kept container needs a name")
	}
	created, err := r.provider.Client().ContainerCreate(ctx, &container.Config{
		Image:      spec.Image,
		Cmd:        cmd,
		User:       spec.User,
		WorkingDir: spec.WorkDir,
	}, nil, nil, nil, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", spec.Name, err)
	}
	if err := r.copyIn(ctx, created.ID, spec); err != nil {
		return nil, err
	}
	// Reuse adopts the container by name and starts it
	return testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Reuse:            true,
		Started:          true,
	})
}

// copyIn streams the contents of spec.CopyIn into the work directory of a created container.
func (r *Runtime) copyIn(ctx context.Context, id string, spec contract.ContainerSpec) error {
	if spec.CopyIn == "" {
		return nil
	}
	tarball, err := archive.TarWithOptions(spec.CopyIn, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("archive %s: %w", spec.CopyIn, err)
	}
	defer func() { _ = tarball.Close() }()

	if err := r.provider.Client().CopyToContainer(ctx, id, spec.WorkDir, tarball, container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("copy %s into %s: %w", spec.CopyIn, spec.WorkDir, err)
	}
	return nil
}

// removeStale force-removes a container left behind under name by an earlier run.
func (r *Runtime) removeStale(ctx context.Context, name string) error {
	cli := r.provider.Client()
	err := cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err == nil || cerrdefs.IsNotFound(err) {
		return nil
	}
	return fmt.Errorf("remove stale container %s: %w", name, err)
}

// Close implements the ContainerRuntime interface.
func (r *Runtime) Close() error {
	if r.provider == nil {
		return nil
	}
	return r.provider.Close()
}

// tail keeps the last n lines of a build log.
func tail(text string, n int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
