package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Status label constants.
const (
	PassValue = "PASS"
	FailValue = "FAIL"
	SkipValue = "SKIP"
)

// Color variables for console output.
var (
	PassColor = color.New(color.FgGreen, color.Bold)
	FailColor = color.New(color.FgRed, color.Bold)
	SkipColor = color.New(color.FgYellow)
	InfoColor = color.New(color.FgCyan)
)

// GetPlainLabel maps a report status ("pass", "fail", "skip") to its label.
func GetPlainLabel(status string) string {
	switch status {
	case "fail":
		return FailValue
	case "skip":
		return SkipValue
	default:
		return PassValue
	}
}

// GetColorLabel returns a colored label for console output.
func GetColorLabel(status string) string {
	text := GetPlainLabel(status)

	switch text {
	case FailValue:
		return FailColor.Sprint(text)
	case SkipValue:
		return SkipColor.Sprint(text)
	default:
		return PassColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, falling back
// to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the image cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".packlint_cache.db"
	}
	return filepath.Join(homeDir, ".packlint_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".packlint_history.db"
	}
	return filepath.Join(homeDir, ".packlint_history.db")
}

// TruncateText shortens text to at most maxLines lines, noting how many were dropped.
func TruncateText(text string, maxLines int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if maxLines <= 0 || len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	kept := strings.Join(lines[:maxLines], "\n")
	return fmt.Sprintf("%s\n... (%d more lines)", kept, len(lines)-maxLines)
}

// SplitCSV splits a comma-separated flag value, dropping blanks.
func SplitCSV(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ShellQuote wraps an argument in single quotes when sh would otherwise split or expand it.
func ShellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n'\"$`\\{}()[]*?;&|<>!#~") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
