package contract

import (
	"context"
	"time"

	"github.com/huangsam/packlint/schema"
	"github.com/stretchr/testify/mock"
)

// --- MockGitClient Implementation ---

// MockGitClient is a mock type for the GitClient type.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	var mockArgs []any
	mockArgs = append(mockArgs, ctx, repoPath)
	for _, arg := range args {
		mockArgs = append(mockArgs, arg)
	}
	ret := m.Called(mockArgs...)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// GetRepoRoot implements the GitClient interface.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	ret := m.Called(ctx, contextPath)
	root, _ := ret.Get(0).(string)
	return root, ret.Error(1)
}

// ListUntrackedFiles implements the GitClient interface.
func (m *MockGitClient) ListUntrackedFiles(ctx context.Context, repoPath string) ([]string, error) {
	ret := m.Called(ctx, repoPath)
	files, _ := ret.Get(0).([]string)
	return files, ret.Error(1)
}

// ListStagedFiles implements the GitClient interface.
func (m *MockGitClient) ListStagedFiles(ctx context.Context, repoPath string) ([]string, error) {
	ret := m.Called(ctx, repoPath)
	files, _ := ret.Get(0).([]string)
	return files, ret.Error(1)
}

// GetChangedFilesSince implements the GitClient interface.
func (m *MockGitClient) GetChangedFilesSince(ctx context.Context, repoPath string, base string) ([]string, error) {
	ret := m.Called(ctx, repoPath, base)
	files, _ := ret.Get(0).([]string)
	return files, ret.Error(1)
}

// ShowFile implements the GitClient interface.
func (m *MockGitClient) ShowFile(ctx context.Context, repoPath string, ref string, path string) ([]byte, error) {
	ret := m.Called(ctx, repoPath, ref, path)
	content, _ := ret.Get(0).([]byte)
	return content, ret.Error(1)
}

// Fetch implements the GitClient interface.
func (m *MockGitClient) Fetch(ctx context.Context, repoPath string, remote string, branch string) error {
	ret := m.Called(ctx, repoPath, remote, branch)
	return ret.Error(0)
}

// --- MockExecutor Implementation ---

// MockExecutor is a mock type for the Executor type.
type MockExecutor struct {
	mock.Mock
}

var _ Executor = &MockExecutor{} // Compile-time check

// Run implements the Executor interface.
func (m *MockExecutor) Run(ctx context.Context, dir string, argv []string) ExecResult {
	ret := m.Called(ctx, dir, argv)
	res, _ := ret.Get(0).(ExecResult)
	return res
}

// --- MockContainerRuntime Implementation ---

// MockContainerRuntime is a mock type for the ContainerRuntime type.
type MockContainerRuntime struct {
	mock.Mock
}

var _ ContainerRuntime = &MockContainerRuntime{} // Compile-time check

// Ping implements the ContainerRuntime interface.
func (m *MockContainerRuntime) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// ImageExists implements the ContainerRuntime interface.
func (m *MockContainerRuntime) ImageExists(ctx context.Context, ref string) (bool, error) {
	ret := m.Called(ctx, ref)
	return ret.Bool(0), ret.Error(1)
}

// BuildImage implements the ContainerRuntime interface.
func (m *MockContainerRuntime) BuildImage(ctx context.Context, spec BuildSpec) (string, error) {
	ret := m.Called(ctx, spec)
	return ret.String(0), ret.Error(1)
}

// RunContainer implements the ContainerRuntime interface.
func (m *MockContainerRuntime) RunContainer(ctx context.Context, spec ContainerSpec) (ContainerResult, error) {
	ret := m.Called(ctx, spec)
	res, _ := ret.Get(0).(ContainerResult)
	return res, ret.Error(1)
}

// Close implements the ContainerRuntime interface.
func (m *MockContainerRuntime) Close() error {
	return m.Called().Error(0)
}

// --- MockImageCacheStore Implementation ---

// MockImageCacheStore is a mock type for the ImageCacheStore type.
type MockImageCacheStore struct {
	mock.Mock
}

var _ ImageCacheStore = &MockImageCacheStore{} // Compile-time check

// Get implements the ImageCacheStore interface.
func (m *MockImageCacheStore) Get(key string) (schema.ImageCacheEntry, error) {
	ret := m.Called(key)
	entry, _ := ret.Get(0).(schema.ImageCacheEntry)
	return entry, ret.Error(1)
}

// Set implements the ImageCacheStore interface.
func (m *MockImageCacheStore) Set(entry schema.ImageCacheEntry) error {
	return m.Called(entry).Error(0)
}

// Delete implements the ImageCacheStore interface.
func (m *MockImageCacheStore) Delete(key string) error {
	return m.Called(key).Error(0)
}

// GetStatus implements the ImageCacheStore interface.
func (m *MockImageCacheStore) GetStatus() (schema.CacheStatus, error) {
	ret := m.Called()
	status, _ := ret.Get(0).(schema.CacheStatus)
	return status, ret.Error(1)
}

// Close implements the ImageCacheStore interface.
func (m *MockImageCacheStore) Close() error {
	return m.Called().Error(0)
}

// --- MockRunStore Implementation ---

// MockRunStore is a mock type for the RunStore type.
type MockRunStore struct {
	mock.Mock
}

var _ RunStore = &MockRunStore{} // Compile-time check

// BeginRun implements the RunStore interface.
func (m *MockRunStore) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	ret := m.Called(startTime, configParams)
	id, _ := ret.Get(0).(int64)
	return id, ret.Error(1)
}

// RecordOutcome implements the RunStore interface.
func (m *MockRunStore) RecordOutcome(runID int64, record schema.OutcomeRecord) error {
	return m.Called(runID, record).Error(0)
}

// EndRun implements the RunStore interface.
func (m *MockRunStore) EndRun(runID int64, endTime time.Time, exitCode int, totalPackages int) error {
	return m.Called(runID, endTime, exitCode, totalPackages).Error(0)
}

// GetStatus implements the RunStore interface.
func (m *MockRunStore) GetStatus() (schema.HistoryStatus, error) {
	ret := m.Called()
	status, _ := ret.Get(0).(schema.HistoryStatus)
	return status, ret.Error(1)
}

// GetAllRuns implements the RunStore interface.
func (m *MockRunStore) GetAllRuns() ([]schema.RunRecord, error) {
	ret := m.Called()
	runs, _ := ret.Get(0).([]schema.RunRecord)
	return runs, ret.Error(1)
}

// GetAllOutcomes implements the RunStore interface.
func (m *MockRunStore) GetAllOutcomes() ([]schema.OutcomeRecord, error) {
	ret := m.Called()
	outcomes, _ := ret.Get(0).([]schema.OutcomeRecord)
	return outcomes, ret.Error(1)
}

// Close implements the RunStore interface.
func (m *MockRunStore) Close() error {
	return m.Called().Error(0)
}
