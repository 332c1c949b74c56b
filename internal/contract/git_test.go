package contract

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfGitNotAvailable skips the test if git binary is not found in PATH
func skipIfGitNotAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skipf("git binary not found in PATH: %v", err)
	}
}

// initTestRepo creates a repository with one committed file and returns its path.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	runGit("init", "-q", "-b", "master")
	runGit("config", "user.email", "dev@example.com")
	runGit("config", "user.name", "dev")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.py"), []byte("x = 1\n"), 0o644))
	runGit("add", "base.py")
	runGit("commit", "-q", "-m", "init")
	return dir
}

// TestMockGitClient_Run ensures the mock records and returns expected values.
func TestMockGitClient_Run(t *testing.T) {
	mockClient := new(MockGitClient)
	ctx := context.Background()
	expectedErr := errors.New("mocked git error")

	mockClient.On("Run", ctx, "/path/to/repo", "log", "-1").Return([]byte("a1b2c3d"), expectedErr).Once()

	out, err := mockClient.Run(ctx, "/path/to/repo", "log", "-1")
	assert.Equal(t, []byte("a1b2c3d"), out)
	assert.Equal(t, expectedErr, err)
	mockClient.AssertExpectations(t)
}

func TestNewLocalGitClient(t *testing.T) {
	assert.NotNil(t, NewLocalGitClient())
}

func TestLocalGitClient_GetRepoRoot(t *testing.T) {
	skipIfGitNotAvailable(t)
	repo := initTestRepo(t)
	client := NewLocalGitClient()

	root, err := client.GetRepoRoot(context.Background(), repo)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(repo)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = client.GetRepoRoot(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestLocalGitClient_ListFiles(t *testing.T) {
	skipIfGitNotAvailable(t)
	repo := initTestRepo(t)
	client := NewLocalGitClient()
	ctx := context.Background()

	untracked, err := client.ListUntrackedFiles(ctx, repo)
	require.NoError(t, err)
	assert.Empty(t, untracked)

	require.NoError(t, os.WriteFile(filepath.Join(repo, "new.py"), []byte("y = 2\n"), 0o644))
	untracked, err = client.ListUntrackedFiles(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, []string{"new.py"}, untracked)

	_, err = client.Run(ctx, repo, "add", "new.py")
	require.NoError(t, err)
	staged, err := client.ListStagedFiles(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, []string{"new.py"}, staged)
}

func TestLocalGitClient_ShowFile(t *testing.T) {
	skipIfGitNotAvailable(t)
	repo := initTestRepo(t)
	client := NewLocalGitClient()

	content, err := client.ShowFile(context.Background(), repo, "HEAD", "base.py")
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(content))

	_, err = client.ShowFile(context.Background(), repo, "HEAD", "missing.py")
	assert.Error(t, err)
}

func TestLocalGitClient_GetChangedFilesSince(t *testing.T) {
	skipIfGitNotAvailable(t)
	repo := initTestRepo(t)
	client := NewLocalGitClient()
	ctx := context.Background()

	files, err := client.GetChangedFilesSince(ctx, repo, "master")
	require.NoError(t, err)
	assert.Empty(t, files)
}
