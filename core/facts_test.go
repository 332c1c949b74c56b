package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newProbeServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGatherFacts_AllCapabilities(t *testing.T) {
	ctx := context.Background()
	repo := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(repo, ".git"), 0o755))
	srv := newProbeServer(t)

	git := new(contract.MockGitClient)
	git.On("Fetch", mock.Anything, repo, "upstream", "master").Return(nil)
	git.On("ShowFile", mock.Anything, repo, "upstream/master", mock.Anything).Return([]byte("# module\n"), nil)
	docker := new(contract.MockContainerRuntime)
	docker.On("Ping", mock.Anything).Return(nil)

	facts, err := GatherFacts(ctx, ProbeOptions{
		WorkDir:         repo,
		NetworkProbeURL: srv.URL,
		GitRemote:       "upstream",
		Git:             git,
		Docker:          docker,
	})
	require.NoError(t, err)

	assert.Equal(t, repo, facts.RepoRoot)
	assert.True(t, facts.DockerAvailable)
	assert.True(t, facts.NetworkAvailable)
	assert.Empty(t, facts.Degradations)
	assert.Len(t, facts.MandatoryModules, 4)
	assert.NotEmpty(t, facts.RequirementsFor("3.8"))
	assert.NotEmpty(t, facts.RequirementsFor("2.7"))
	docker.AssertExpectations(t)
	git.AssertExpectations(t)
}

func TestGatherFacts_Degraded(t *testing.T) {
	ctx := context.Background()
	work := t.TempDir()

	git := new(contract.MockGitClient)
	git.On("GetRepoRoot", mock.Anything, mock.Anything).Return("", errors.New("not a git repository"))
	docker := new(contract.MockContainerRuntime)
	docker.On("Ping", mock.Anything).Return(nil)

	facts, err := GatherFacts(ctx, ProbeOptions{
		WorkDir:         work,
		NetworkProbeURL: "http://127.0.0.1:1",
		Git:             git,
		Docker:          docker,
	})
	require.NoError(t, err)

	assert.False(t, facts.HasRepo())
	assert.False(t, facts.NetworkAvailable)
	assert.False(t, facts.DockerAvailable, "no network forces docker off")

	var capabilities []string
	for _, d := range facts.Degradations {
		capabilities = append(capabilities, d.Capability)
	}
	assert.ElementsMatch(t, []string{CapabilityRepo, CapabilityNetwork, CapabilityDocker, CapabilityModules}, capabilities)
}

func TestGatherFacts_DockerDown(t *testing.T) {
	srv := newProbeServer(t)
	git := new(contract.MockGitClient)
	git.On("GetRepoRoot", mock.Anything, mock.Anything).Return("", errors.New("no repo"))
	docker := new(contract.MockContainerRuntime)
	docker.On("Ping", mock.Anything).Return(errors.New("connection refused"))

	facts, err := GatherFacts(context.Background(), ProbeOptions{
		WorkDir:         t.TempDir(),
		NetworkProbeURL: srv.URL,
		Git:             git,
		Docker:          docker,
	})
	require.NoError(t, err)
	assert.True(t, facts.NetworkAvailable)
	assert.False(t, facts.DockerAvailable)
}

func TestGatherFacts_LockDataIsFatal(t *testing.T) {
	docker := new(contract.MockContainerRuntime)

	facts, err := GatherFacts(context.Background(), ProbeOptions{
		LockDir: t.TempDir(),
		Docker:  docker,
	})
	assert.Nil(t, facts)
	assert.ErrorIs(t, err, ErrLockData)
	docker.AssertNotCalled(t, "Ping", mock.Anything)
}

func TestFindRepoRoot_WalksParents(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(repo, ".git"), 0o755))
	nested := writePackage(t, repo, "Packs/A/Integrations/B", nil)

	assert.Equal(t, repo, findRepoRoot(context.Background(), nil, nested))
}
