package outwriter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/huangsam/packlint/internal/contract"
)

// errorIndent prefixes every line of tool output under its package.
const (
	errorIndent      = "      "
	errorIndentWidth = len(errorIndent)
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// wrapLine splits a line into chunks of at most width runes.
func wrapLine(line string, width int) []string {
	runes := []rune(line)
	if width <= 0 || len(runes) <= width {
		return []string{line}
	}
	var out []string
	for len(runes) > width {
		out = append(out, string(runes[:width]))
		runes = runes[width:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

// indentBlock wraps and indents tool output, keeping at most maxLines source lines.
func indentBlock(text string, width, maxLines int) string {
	text = contract.TruncateText(strings.TrimRight(text, "\n"), maxLines)
	var sb strings.Builder
	for line := range strings.SplitSeq(text, "\n") {
		for _, chunk := range wrapLine(line, width) {
			sb.WriteString(errorIndent)
			sb.WriteString(chunk)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
