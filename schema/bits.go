package schema

import (
	"strings"
)

// FailureBits is a set of failing tools. Every tool owns exactly one bit, so bit
// values must never be renumbered. The first seven match the historical CI contract.
// The process exit status is derived by ExitStatus.
type FailureBits uint16

// Bit values per tool.
const (
	Flake8Bit      FailureBits = 1 << 0 // 1
	BanditBit      FailureBits = 1 << 1 // 2
	MypyBit        FailureBits = 1 << 2 // 4
	PytestBit      FailureBits = 1 << 3 // 8
	PylintBit      FailureBits = 1 << 4 // 16
	ImageBit       FailureBits = 1 << 5 // 32
	VultureBit     FailureBits = 1 << 6 // 64
	PwshAnalyzeBit FailureBits = 1 << 7 // 128
	PwshTestBit    FailureBits = 1 << 8 // 256
)

// NoFailures is the empty set.
const NoFailures FailureBits = 0

var toolBits = map[ToolName]FailureBits{
	Flake8Tool:      Flake8Bit,
	BanditTool:      BanditBit,
	MypyTool:        MypyBit,
	PytestTool:      PytestBit,
	PylintTool:      PylintBit,
	ImageTool:       ImageBit,
	VultureTool:     VultureBit,
	PwshAnalyzeTool: PwshAnalyzeBit,
	PwshTestTool:    PwshTestBit,
}

// BitFor returns the bit reserved for the tool, or NoFailures for unknown names.
func BitFor(tool ToolName) FailureBits {
	return toolBits[tool]
}

// Set returns a copy of b with the tool's bit set.
func (b FailureBits) Set(tool ToolName) FailureBits {
	return b | BitFor(tool)
}

// Has reports whether the tool's bit is set.
func (b FailureBits) Has(tool ToolName) bool {
	bit := BitFor(tool)
	return bit != 0 && b&bit == bit
}

// Union returns the OR of both sets.
func (b FailureBits) Union(other FailureBits) FailureBits {
	return b | other
}

// Tools lists the tools present in the set, in execution order.
func (b FailureBits) Tools() []ToolName {
	var tools []ToolName
	for _, tool := range AllTools {
		if b.Has(tool) {
			tools = append(tools, tool)
		}
	}
	return tools
}

// Int returns the full bitmap as an integer.
func (b FailureBits) Int() int {
	return int(b)
}

// PwshTestOnlyStatus is the exit status when the only failing bits sit above the
// 8 bits a process status can carry.
const PwshTestOnlyStatus = 255

// ExitStatus maps the set to a process exit status. Exit statuses are truncated to
// 8 bits, so the low byte is used as is and a set whose low byte is empty but is
// not itself empty exits with PwshTestOnlyStatus.
func (b FailureBits) ExitStatus() int {
	if b == NoFailures {
		return 0
	}
	if low := int(b & 0xFF); low != 0 {
		return low
	}
	return PwshTestOnlyStatus
}

// String renders the set as "flake8|mypy" or "none".
func (b FailureBits) String() string {
	tools := b.Tools()
	if len(tools) == 0 {
		return "none"
	}
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = string(t)
	}
	return strings.Join(names, "|")
}
