package schema

// Custom string types for type safety.
type (
	// ToolName identifies one check in the lint battery.
	ToolName string

	// RuntimeKind is the declared runtime of a package.
	RuntimeKind string

	// TestOutcome is the result of a single unit test case.
	TestOutcome string

	// DatabaseBackend represents the database backend for the image cache and run history.
	DatabaseBackend string

	// SkipReason explains why a tool did not run.
	SkipReason string
)

// All tools supported, in execution order.
const (
	ImageTool       ToolName = "image"
	Flake8Tool      ToolName = "flake8"
	BanditTool      ToolName = "bandit"
	MypyTool        ToolName = "mypy"
	VultureTool     ToolName = "vulture"
	PylintTool      ToolName = "pylint"
	PytestTool      ToolName = "pytest"
	PwshAnalyzeTool ToolName = "pwsh_analyze"
	PwshTestTool    ToolName = "pwsh_test"
)

// AllTools lists every tool in the fixed execution order.
var AllTools = []ToolName{
	ImageTool, Flake8Tool, BanditTool, MypyTool, VultureTool,
	PylintTool, PytestTool, PwshAnalyzeTool, PwshTestTool,
}

// HostTools run directly on the host against the package directory.
var HostTools = []ToolName{Flake8Tool, BanditTool, MypyTool, VultureTool}

// ContainerTools run inside a per-runtime-version image.
var ContainerTools = []ToolName{ImageTool, PylintTool, PytestTool, PwshAnalyzeTool, PwshTestTool}

// All runtime kinds supported.
const (
	Python2Runtime    RuntimeKind = "python2"
	Python3Runtime    RuntimeKind = "python3"
	PowershellRuntime RuntimeKind = "powershell"
	UnknownRuntime    RuntimeKind = "unknown"
)

// AllRuntimes lists the runtimes shown in the summary.
var AllRuntimes = []RuntimeKind{Python2Runtime, Python3Runtime, PowershellRuntime}

// IsPython reports whether the runtime is one of the python flavors.
func (r RuntimeKind) IsPython() bool {
	return r == Python2Runtime || r == Python3Runtime
}

// All test outcomes supported.
const (
	TestPassed  TestOutcome = "passed"
	TestFailed  TestOutcome = "failed"
	TestSkipped TestOutcome = "skipped"
)

// Reasons a tool can be skipped.
const (
	SkipByFlag       SkipReason = "flag"
	SkipByCapability SkipReason = "capability"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidLogLevels lists the accepted log levels.
var ValidLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}
