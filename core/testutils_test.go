package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const python3YML = `commonfields:
  id: HelloWorld
name: HelloWorld
script:
  type: python
  subtype: python3
  dockerimage: demisto/python3:3.8.6.12176
  script: '-'
`

// writePackage creates a package directory with the given files and returns its path.
func writePackage(t *testing.T, root, rel string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// pythonPackage builds a package value without touching disk.
func pythonPackage(dir, name string) schema.Package {
	return schema.Package{
		Path:      name,
		Dir:       dir,
		Name:      name,
		Runtime:   schema.Python3Runtime,
		Images:    []string{"demisto/python3:3.8.6.12176"},
		LintFiles: []string{name + ".py"},
	}
}

// noDockerFacts returns facts for a machine without Docker or network.
func noDockerFacts() *schema.Facts {
	return &schema.Facts{
		Requirements: map[schema.RuntimeKind][]string{
			schema.Python2Runtime: {"pylint==1.9.5"},
			schema.Python3Runtime: {"pylint==2.5.3", "pytest==5.4.3"},
		},
		MandatoryModules: map[string][]byte{},
	}
}

// dockerFacts returns facts for a machine where Docker is usable.
func dockerFacts() *schema.Facts {
	f := noDockerFacts()
	f.DockerAvailable = true
	f.NetworkAvailable = true
	return f
}

// toolArgv matches an executor argv whose module name is tool.
func toolArgv(tool schema.ToolName) any {
	return mock.MatchedBy(func(argv []string) bool {
		return len(argv) > 2 && argv[2] == string(tool)
	})
}

// passAllHostTools makes every host tool exit 0.
func passAllHostTools(exe *contract.MockExecutor) {
	exe.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(contract.ExecResult{})
}
