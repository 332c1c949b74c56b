package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayTestName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"test_foo.py::test_bar", "test_foo.py::test_bar"},
		{"test_foo.py::test_bar[case-1]", "test_foo.py::test_bar"},
		{"test_foo.py::test_bar[a[b]]", "test_foo.py::test_bar"},
		{"  spaced  ", "spaced"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayTestName(tt.name))
		})
	}
}

func TestSplitTrace(t *testing.T) {
	t.Run("multi-line trace", func(t *testing.T) {
		got := SplitTrace("first line\n\n  indented  \r\nlast")
		assert.Equal(t, []string{"first line", "  indented", "last"}, got)
	})

	t.Run("empty trace", func(t *testing.T) {
		assert.Nil(t, SplitTrace(""))
	})
}

func TestFormatSpecifier(t *testing.T) {
	tests := []struct {
		name, version, want string
	}{
		{"requests", "2.22.0", "requests==2.22.0"},
		{"requests", "==2.22.0", "requests==2.22.0"},
		{"mock", ">=3.0", "mock>=3.0"},
		{"pytest", "*", "pytest"},
		{"pytest", "", "pytest"},
	}

	for _, tt := range tests {
		t.Run(tt.name+tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSpecifier(tt.name, tt.version))
		})
	}
}
