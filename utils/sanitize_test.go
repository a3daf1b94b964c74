package utils

import (
	"strings"
	"testing"
)

func TestSanitizeStripsScripts(t *testing.T) {
	in := `quote from page 12 <script>alert("xss")</script>`
	out := Sanitize(in)
	if strings.Contains(out, "<script>") || strings.Contains(out, "alert") {
		t.Fatalf("script survived sanitization: %q", out)
	}
	if !strings.Contains(out, "quote from page 12") {
		t.Fatalf("text content lost: %q", out)
	}
}

func TestSanitizeKeepsBasicFormatting(t *testing.T) {
	in := `my <b>favorite</b> <em>passage</em>`
	out := Sanitize(in)
	if !strings.Contains(out, "<b>favorite</b>") || !strings.Contains(out, "<em>passage</em>") {
		t.Fatalf("formatting markup stripped: %q", out)
	}
}

func TestSanitizeRemovesEventHandlers(t *testing.T) {
	out := Sanitize(`<a href="https://example.com" onclick="steal()">link</a>`)
	if strings.Contains(out, "onclick") {
		t.Fatalf("event handler survived: %q", out)
	}
}

func TestSanitizePlainStripsEverything(t *testing.T) {
	out := SanitizePlain(`<b>The</b> <i>Left</i> Hand of Darkness`)
	if strings.Contains(out, "<") {
		t.Fatalf("markup survived plain sanitization: %q", out)
	}
	if !strings.Contains(out, "The") || !strings.Contains(out, "Darkness") {
		t.Fatalf("text content lost: %q", out)
	}
}

func TestUniqueUint(t *testing.T) {
	got := UniqueUint([]uint{3, 1, 3, 2, 1})
	if len(got) != 3 {
		t.Fatalf("UniqueUint = %v, want 3 distinct values", got)
	}
	seen := map[uint]bool{}
	for _, v := range got {
		if seen[v] {
			t.Fatalf("duplicate %d in %v", v, got)
		}
		seen[v] = true
	}
	if !seen[1] || !seen[2] || !seen[3] {
		t.Fatalf("missing values in %v", got)
	}

	if got := UniqueUint(nil); len(got) != 0 {
		t.Fatalf("UniqueUint(nil) = %v, want empty", got)
	}
}
