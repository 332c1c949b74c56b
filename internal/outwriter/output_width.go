package outwriter

import (
	"os"

	"golang.org/x/term"
)

// GetMaxErrorWidth calculates the wrap width for tool error text based on the
// terminal width. A positive override wins over detection.
func GetMaxErrorWidth(override int) int {
	termWidth := override

	if termWidth <= 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Error lines are indented under the package path
	available := termWidth - errorIndentWidth
	if available < 40 {
		return 40
	}
	if available > 160 {
		return 160
	}
	return available
}
