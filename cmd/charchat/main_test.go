package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ai-charchat-go/internal/handlers"
)

func TestParseSwitch(t *testing.T) {
	for in, want := range map[string]bool{"on": true, "YES": true, "1": true, "off": false, "False": false, "0": false} {
		got, err := parseSwitch(in)
		if err != nil || got != want {
			t.Fatalf("parseSwitch(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := parseSwitch("maybe"); err == nil {
		t.Fatalf("expected error for unknown value")
	}
}

func TestResolveInput(t *testing.T) {
	var out bytes.Buffer
	a := &app{out: &out}
	v := handlers.ChatView{QuickReplies: []string{"Hi!", "Tell me more"}, Emotes: []string{"*waves*"}}

	if got, ok := resolveInput(a, "hello there", v); !ok || got != "hello there" {
		t.Fatalf("plain text changed: %q %v", got, ok)
	}
	if got, ok := resolveInput(a, "/r 2", v); !ok || got != "Tell me more" {
		t.Fatalf("quick reply not picked: %q %v", got, ok)
	}
	if got, ok := resolveInput(a, "/e 1", v); !ok || got != "*waves*" {
		t.Fatalf("emote not picked: %q %v", got, ok)
	}
	if _, ok := resolveInput(a, "/r 3", v); ok {
		t.Fatalf("out of range choice accepted")
	}
	if !strings.Contains(out.String(), "between 1 and 2") {
		t.Fatalf("missing range hint in %q", out.String())
	}

	out.Reset()
	if _, ok := resolveInput(a, "/quit", v); ok || out.Len() != 0 {
		t.Fatalf("quit should be silent, got %q", out.String())
	}
}

func TestTerminal(t *testing.T) {
	var out bytes.Buffer
	term := &terminal{out: &out}

	term.Status(handlers.StatusMessage{Text: "Saved", Kind: handlers.KindSuccess})
	if term.failed() {
		t.Fatalf("success counted as failure")
	}
	term.Status(handlers.StatusMessage{Text: "Broken", Kind: handlers.KindError})
	if !term.failed() {
		t.Fatalf("error status not recorded")
	}
	if out.String() != "✓ Saved\n✗ Broken\n" {
		t.Fatalf("unexpected output %q", out.String())
	}

	term.Navigate(handlers.PageChat, map[string]string{"id": "7"})
	page, params := term.location()
	if page != handlers.PageChat || params["id"] != "7" {
		t.Fatalf("unexpected location %q %v", page, params)
	}
}
