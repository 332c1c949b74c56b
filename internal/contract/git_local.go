package contract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command and returns its stdout output.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git %s failed in %q: %s", strings.Join(args, " "), repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// GetRepoRoot implements the GitClient interface.
func (c *LocalGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	out, err := c.Run(ctx, contextPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ListUntrackedFiles implements the GitClient interface.
func (c *LocalGitClient) ListUntrackedFiles(ctx context.Context, repoPath string) ([]string, error) {
	out, err := c.Run(ctx, repoPath, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ListStagedFiles implements the GitClient interface.
func (c *LocalGitClient) ListStagedFiles(ctx context.Context, repoPath string) ([]string, error) {
	out, err := c.Run(ctx, repoPath, "diff", "--name-only", "--cached")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// GetChangedFilesSince implements the GitClient interface.
// It uses the "..." (three-dot) range so only commits on HEAD since the merge
// base with base are considered.
func (c *LocalGitClient) GetChangedFilesSince(ctx context.Context, repoPath string, base string) ([]string, error) {
	out, err := c.Run(ctx, repoPath, "diff", "--name-only", base+"...HEAD")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ShowFile implements the GitClient interface.
func (c *LocalGitClient) ShowFile(ctx context.Context, repoPath string, ref string, path string) ([]byte, error) {
	return c.Run(ctx, repoPath, "show", ref+":"+path)
}

// Fetch implements the GitClient interface.
func (c *LocalGitClient) Fetch(ctx context.Context, repoPath string, remote string, branch string) error {
	_, err := c.Run(ctx, repoPath, "fetch", "--quiet", remote, branch)
	return err
}

// splitLines splits git porcelain output into non-empty lines.
func splitLines(out []byte) []string {
	files := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(files) == 1 && files[0] == "" {
		return []string{}
	}
	return files
}
