package core

import (
	"strings"
	"testing"

	"github.com/huangsam/packlint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCommand(t *testing.T) {
	files := []string{"HelloWorld.py"}
	opts := CommandOptions{PythonVersion: "3.8"}

	tests := []struct {
		tool     schema.ToolName
		contains []string
	}{
		{schema.Flake8Tool, []string{"python -m flake8", "--max-line-length 130", "--ignore=W293,W504", "--exclude=CommonServerPython.py,demistomock.py", "HelloWorld.py"}},
		{schema.BanditTool, []string{"python -m bandit -lll -iii -a file", "-q -r HelloWorld.py"}},
		{schema.MypyTool, []string{"python -m mypy --python-version 3.8 --check-untyped-defs --ignore-missing-imports --follow-imports=silent --show-column-numbers --show-error-codes --pretty --allow-redefinition HelloWorld.py"}},
		{schema.VultureTool, []string{"python -m vulture --min-confidence 100"}},
		{schema.PylintTool, []string{"python -m pylint --ignore=CommonServerPython.py,demistomock.py,CommonServerUserPython.py,conftest.py,venv -E -d duplicate-string-formatting-argument", "'--msg-template={path} ({line}): {msg}'", "--generated-members=requests.packages.urllib3,requests.codes.ok"}},
		{schema.PytestTool, []string{"python -m pytest -q --tb=line --json=/devwork/report_pytest.json"}},
		{schema.PwshAnalyzeTool, []string{"pwsh -Command Invoke-ScriptAnalyzer -EnableExit -Path ."}},
		{schema.PwshTestTool, []string{"pwsh -Command Invoke-Pester -Configuration '@{Run=@{Exit=$true}}'"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.tool), func(t *testing.T) {
			cmd, err := BuildCommand(tt.tool, files, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.tool, cmd.Tool)
			for _, want := range tt.contains {
				assert.Contains(t, cmd.String(), want)
			}
		})
	}
}

func TestBuildCommand_Pure(t *testing.T) {
	files := []string{"a.py", "b.py"}
	first, err := BuildCommand(schema.Flake8Tool, files, CommandOptions{})
	require.NoError(t, err)
	second, err := BuildCommand(schema.Flake8Tool, files, CommandOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a.py", "b.py"}, files)
}

func TestBuildCommand_Errors(t *testing.T) {
	_, err := BuildCommand(schema.MypyTool, []string{"a.py"}, CommandOptions{})
	assert.Error(t, err, "mypy without version")

	_, err = BuildCommand(schema.Flake8Tool, nil, CommandOptions{})
	assert.Error(t, err, "flake8 without files")

	_, err = BuildCommand(schema.ImageTool, nil, CommandOptions{})
	assert.Error(t, err, "image is not a command")
}

func TestBuildCommand_PytestJUnit(t *testing.T) {
	cmd, err := BuildCommand(schema.PytestTool, nil, CommandOptions{JUnitXML: true})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(cmd.String(), "--junitxml=/devwork/report_pytest.xml"))
}

func TestBuildCommand_VultureConfidence(t *testing.T) {
	cmd, err := BuildCommand(schema.VultureTool, []string{"a.py"}, CommandOptions{VultureConfidence: 80})
	require.NoError(t, err)
	assert.Contains(t, cmd.String(), "--min-confidence 80")
}

func TestPythonVersionCommand(t *testing.T) {
	assert.Equal(t,
		`python -c 'import sys; print('"'"'{}.{}'"'"'.format(sys.version_info[0], sys.version_info[1]))'`,
		PythonVersionCommand().String())
}
