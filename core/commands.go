package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
)

// Container paths shared by the image build and the pytest command.
const (
	ContainerWorkDir   = "/devwork"
	PytestJSONReport   = ContainerWorkDir + "/report_pytest.json"
	PytestXMLReport    = ContainerWorkDir + "/report_pytest.xml"
	flake8MaxLineLen   = 130
	defaultVultureConf = 100
)

// ExcludedFiles are support modules written into a package for the run; they are never linted.
var ExcludedFiles = []string{
	"CommonServerPython.py",
	"demistomock.py",
	"CommonServerUserPython.py",
	"conftest.py",
	"venv",
}

// flake8Ignored are the flake8 codes the content repository tolerates.
var flake8Ignored = []string{
	"W293", "W504", "W291", "W605", "F405", "F403", "E999",
	"W503", "F841", "E302", "C901", "F821",
}

// Command is a tool invocation as an argv list.
type Command struct {
	Tool schema.ToolName
	Args []string
}

// String renders the command for `sh -c`, single-quoting arguments that need it.
func (c Command) String() string {
	quoted := make([]string, len(c.Args))
	for i, arg := range c.Args {
		quoted[i] = contract.ShellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

// CommandOptions carries the per-run inputs that shape a command line.
type CommandOptions struct {
	PythonVersion     string
	VultureConfidence int
	JUnitXML          bool
}

// BuildCommand returns the command line for a tool. It has no side effects.
func BuildCommand(tool schema.ToolName, files []string, opts CommandOptions) (Command, error) {
	var args []string
	switch tool {
	case schema.Flake8Tool:
		args = []string{
			"python", "-m", "flake8",
			"--max-line-length", strconv.Itoa(flake8MaxLineLen),
			"--ignore=" + strings.Join(flake8Ignored, ","),
			"--exclude=" + strings.Join(ExcludedFiles, ","),
		}
		args = append(args, files...)
	case schema.BanditTool:
		args = []string{
			"python", "-m", "bandit",
			"-lll", "-iii", "-a", "file",
			"--exclude=" + strings.Join(ExcludedFiles, ","),
			"-q", "-r",
		}
		args = append(args, files...)
	case schema.MypyTool:
		if opts.PythonVersion == "" {
			return Command{}, fmt.Errorf("mypy needs a python version")
		}
		args = []string{
			"python", "-m", "mypy",
			"--python-version", opts.PythonVersion,
			"--check-untyped-defs",
			"--ignore-missing-imports",
			"--follow-imports=silent",
			"--show-column-numbers",
			"--show-error-codes",
			"--pretty",
			"--allow-redefinition",
		}
		args = append(args, files...)
	case schema.VultureTool:
		confidence := opts.VultureConfidence
		if confidence <= 0 {
			confidence = defaultVultureConf
		}
		args = []string{
			"python", "-m", "vulture",
			"--min-confidence", strconv.Itoa(confidence),
			"--exclude=" + strings.Join(ExcludedFiles, ","),
		}
		args = append(args, files...)
	case schema.PylintTool:
		args = []string{
			"python", "-m", "pylint",
			"--ignore=" + strings.Join(ExcludedFiles, ","),
			"-E",
			"-d", "duplicate-string-formatting-argument",
			"--msg-template={path} ({line}): {msg}",
			"--generated-members=requests.packages.urllib3,requests.codes.ok",
		}
		args = append(args, files...)
	case schema.PytestTool:
		args = []string{"python", "-m", "pytest", "-q", "--tb=line", "--json=" + PytestJSONReport}
		if opts.JUnitXML {
			args = append(args, "--junitxml="+PytestXMLReport)
		}
	case schema.PwshAnalyzeTool:
		args = []string{"pwsh", "-Command", "Invoke-ScriptAnalyzer", "-EnableExit", "-Path", "."}
	case schema.PwshTestTool:
		args = []string{"pwsh", "-Command", "Invoke-Pester", "-Configuration", "@{Run=@{Exit=$true}}"}
	default:
		return Command{}, fmt.Errorf("no command for tool %q", tool)
	}
	if needsFiles(tool) && len(files) == 0 {
		return Command{}, fmt.Errorf("%s needs at least one file", tool)
	}
	return Command{Tool: tool, Args: args}, nil
}

// PythonVersionCommand prints "<major>.<minor>" of the image interpreter.
func PythonVersionCommand() Command {
	return Command{Args: []string{
		"python", "-c",
		"import sys; print('{}.{}'.format(sys.version_info[0], sys.version_info[1]))",
	}}
}

func needsFiles(tool schema.ToolName) bool {
	switch tool {
	case schema.Flake8Tool, schema.BanditTool, schema.MypyTool, schema.VultureTool, schema.PylintTool:
		return true
	default:
		return false
	}
}
