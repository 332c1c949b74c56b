package schema

import (
	"regexp"
	"strings"
)

// paramSuffix matches pytest parametrization ids such as "[case-1]".
var paramSuffix = regexp.MustCompile(`\[.*\]`)

// DisplayTestName strips parametrization ids from a pytest node id.
func DisplayTestName(name string) string {
	return strings.TrimSpace(paramSuffix.ReplaceAllString(name, ""))
}

// RunsUnitTests reports whether the tool executes a package's unit tests.
func (t ToolName) RunsUnitTests() bool {
	return t == PytestTool || t == PwshTestTool
}

// SplitTrace turns a raw failure representation into trimmed, non-empty lines.
func SplitTrace(longrepr string) []string {
	var lines []string
	for line := range strings.SplitSeq(longrepr, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// FormatSpecifier renders a pinned requirement as "name==1.2.3".
// Versions that already carry an operator are kept as-is.
func FormatSpecifier(name, version string) string {
	if version == "" || version == "*" {
		return name
	}
	if strings.ContainsAny(version[:1], "=<>!~") {
		return name + version
	}
	return name + "==" + version
}
