// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/packlint/schema"
)

// GitClient defines the Git operations needed for repository discovery and change detection.
// This allows the selector and prober to be tested without needing a real git executable.
type GitClient interface {
	// Run executes a git command and returns its stdout.
	// Its use should be minimized in favor of the explicit methods below.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// GetRepoRoot returns the absolute path to the root of the Git repository
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// ListUntrackedFiles returns working-tree files not yet tracked, honoring .gitignore.
	ListUntrackedFiles(ctx context.Context, repoPath string) ([]string, error)

	// ListStagedFiles returns files with staged changes.
	ListStagedFiles(ctx context.Context, repoPath string) ([]string, error)

	// GetChangedFilesSince returns files committed on HEAD since it diverged from base.
	GetChangedFilesSince(ctx context.Context, repoPath string, base string) ([]string, error)

	// ShowFile returns the contents of a path at a reference.
	ShowFile(ctx context.Context, repoPath string, ref string, path string) ([]byte, error)

	// Fetch updates a remote branch.
	Fetch(ctx context.Context, repoPath string, remote string, branch string) error
}

// ExecResult captures one finished host process.
// Err is set only for spawn-level failures and timeouts, never for a nonzero exit.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Executor runs host processes. It is mocked in tests.
type Executor interface {
	Run(ctx context.Context, dir string, argv []string) ExecResult
}

// BuildSpec describes an image build from a rendered Dockerfile. The image holds
// dependencies only; package sources reach containers through ContainerSpec.CopyIn.
type BuildSpec struct {
	ContextDir string
	Dockerfile []byte
	Repo       string
	Tag        string
}

// ContainerSpec describes a one-shot container run.
type ContainerSpec struct {
	Name    string
	Image   string
	Command string
	User    string
	WorkDir string
	Keep    bool
	CopyIn  string // host directory whose contents land in WorkDir before start
	CopyOut []string
	Timeout time.Duration
}

// ContainerResult is the outcome of a container run.
type ContainerResult struct {
	ExitCode int
	Logs     string
	Files    map[string][]byte
}

// ContainerRuntime abstracts the Docker engine.
type ContainerRuntime interface {
	// Ping checks that the daemon is reachable.
	Ping(ctx context.Context) error

	// ImageExists reports whether a tagged image is present locally.
	ImageExists(ctx context.Context, ref string) (bool, error)

	// BuildImage builds an image and returns its reference.
	BuildImage(ctx context.Context, spec BuildSpec) (string, error)

	// RunContainer runs a command to completion, removing any stale container of the same name first.
	RunContainer(ctx context.Context, spec ContainerSpec) (ContainerResult, error)

	// Close releases the daemon connection.
	Close() error
}

// CacheManager defines the interface for managing persistent stores.
// This allows the persistence layer to be mocked for testing.
type CacheManager interface {
	GetImageStore() ImageCacheStore
	GetRunStore() RunStore
}

// ImageCacheStore maps image cache keys to built image tags.
type ImageCacheStore interface {
	Get(key string) (schema.ImageCacheEntry, error)
	Set(entry schema.ImageCacheEntry) error
	Delete(key string) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// RunStore defines the interface for tracking lint runs and their outcomes.
type RunStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// RecordOutcome stores one tool outcome of a run
	RecordOutcome(runID int64, record schema.OutcomeRecord) error

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, exitCode int, totalPackages int) error

	// GetStatus returns status information about the run store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every stored run
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllOutcomes returns every stored outcome
	GetAllOutcomes() ([]schema.OutcomeRecord, error)

	// Close closes the underlying connection
	Close() error
}
