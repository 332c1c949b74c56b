package core

import (
	"context"
	"errors"
	"testing"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestExecuteLint_LockDataFatal tests that a broken lock directory stops the run before selection.
func TestExecuteLint_LockDataFatal(t *testing.T) {
	git := new(contract.MockGitClient)
	exe := new(contract.MockExecutor)

	cfg := &contract.Config{
		WorkDir:   t.TempDir(),
		LockDir:   t.TempDir(),
		Inputs:    []string{"Packs/HelloWorld/Integrations/HelloWorld"},
		Workers:   1,
		GitRemote: contract.DefaultGitRemote,
		DockerGID: contract.DefaultDockerGID,
	}
	report, err := ExecuteLint(context.Background(), cfg, Dependencies{Git: git, Exec: exe})

	assert.Nil(t, report)
	assert.True(t, errors.Is(err, ErrLockData))
	exe.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

// TestExecuteLint_ExplicitPackage tests a host-only run over one package.
func TestExecuteLint_ExplicitPackage(t *testing.T) {
	root := t.TempDir()
	dir := writePackage(t, root, "HelloWorld", map[string]string{
		"HelloWorld.yml": python3YML,
		"HelloWorld.py":  "def main():\n    pass\n",
	})

	git := new(contract.MockGitClient)
	git.On("GetRepoRoot", mock.Anything, mock.Anything).Return("", errors.New("not a git repository"))
	exe := new(contract.MockExecutor)
	exe.On("Run", mock.Anything, dir, toolArgv(schema.VultureTool)).Return(contract.ExecResult{Stdout: "unused import", ExitCode: 3})
	passAllHostTools(exe)

	cfg := &contract.Config{
		WorkDir:         root,
		Inputs:          []string{dir},
		Workers:         2,
		NetworkProbeURL: "http://127.0.0.1:1",
		GitRemote:       contract.DefaultGitRemote,
	}
	report, err := ExecuteLint(context.Background(), cfg, Dependencies{Git: git, Exec: exe})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, schema.VultureBit, report.ExitCode)
	assert.Equal(t, []string{dir}, report.Failing[schema.VultureTool])
	assert.NotEmpty(t, report.Degradations)
}
