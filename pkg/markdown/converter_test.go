package markdown

import (
	"strings"
	"testing"
)

func TestToHTMLStripsRawHTML(t *testing.T) {
	out := ToHTML("Hello **there** <script>alert(1)</script>")
	if !strings.Contains(out, "<strong>there</strong>") {
		t.Fatalf("emphasis lost: %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("raw html kept: %q", out)
	}
}

func TestToHTMLDropsImages(t *testing.T) {
	out := ToHTML("look ![x](http://example.com/x.png)")
	if strings.Contains(out, "<img") {
		t.Fatalf("image kept: %q", out)
	}
}

func TestToHTMLEmpty(t *testing.T) {
	if ToHTML("   ") != "" {
		t.Fatalf("expected empty output")
	}
}

func TestToTerminal(t *testing.T) {
	out := ToTerminal("I *really* like **tea** & [maps](https://example.com)\n\n- one\n- two")
	for _, want := range []string{"_really_", "*tea*", "& maps (https://example.com)", "• one", "• two"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "<") {
		t.Fatalf("tags left in %q", out)
	}
}
