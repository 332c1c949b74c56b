package contract

import (
	"strings"
	"testing"
)

// FuzzSplitCSV fuzzes SplitCSV and checks that no blank entries survive.
func FuzzSplitCSV(f *testing.F) {
	seeds := []string{
		"",
		",",
		"Packs/A/Integrations/Foo",
		" a , ,b,",
		"Packs/A/Scripts/X,Packs/B/Integrations/Y",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		for _, part := range SplitCSV(input) {
			if strings.TrimSpace(part) == "" || strings.Contains(part, ",") {
				t.Fatalf("unexpected entry %q from %q", part, input)
			}
		}
	})
}

// FuzzTruncateText ensures truncation never grows past the requested line budget.
func FuzzTruncateText(f *testing.F) {
	f.Add("a\nb\nc", 2)
	f.Add("", 1)
	f.Add("single", 0)

	f.Fuzz(func(t *testing.T, text string, maxLines int) {
		if maxLines < 0 || maxLines > 1000 {
			return
		}
		out := TruncateText(text, maxLines)
		if maxLines > 0 && strings.Count(out, "\n") > maxLines {
			t.Fatalf("truncated text has too many lines: %q", out)
		}
	})
}
