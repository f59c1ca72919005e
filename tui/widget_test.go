package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestWidgetBindKeyMapsBridgeNames(t *testing.T) {
	w := NewWidget("")
	fired := 0
	w.BindKey("Ctrl-S", func() { fired++ })

	if !w.press("ctrl+s") {
		t.Fatal("expected ctrl+s to be bound")
	}
	if w.press("ctrl+x") {
		t.Fatal("expected ctrl+x to be unbound")
	}
	if fired != 1 {
		t.Fatalf("expected 1 call, got %d", fired)
	}
}

func TestWidgetValue(t *testing.T) {
	w := NewWidget("// placeholder")
	if got := w.Value(); got != "// placeholder" {
		t.Fatalf("expected placeholder, got %q", got)
	}
	src := "function setup() {\n  createCanvas(400, 400);\n}"
	w.SetValue(src)
	if got := w.Value(); got != src {
		t.Fatalf("expected %q, got %q", src, got)
	}
}

func TestWidgetHeightAndMode(t *testing.T) {
	w := NewWidget("")
	w.SetHeight(12)
	w.SetMode("javascript")
	if w.Height() != 12 {
		t.Fatalf("expected height 12, got %d", w.Height())
	}
	if w.Mode() != "javascript" {
		t.Fatalf("expected javascript mode, got %q", w.Mode())
	}
}

func TestWidgetKeepsExactTextUntilEdited(t *testing.T) {
	src := "function f() {\n\treturn 1;\n}\r\n"
	w := NewWidget("")
	w.SetValue(src)

	if got := w.Value(); got != src {
		t.Fatalf("expected exact text %q, got %q", src, got)
	}
	if !w.Lossy() {
		t.Fatal("expected tabs and CR to be reported as lossy")
	}
	if w.Modified() {
		t.Fatal("expected unedited buffer")
	}
	if err := w.CanSave(); err != nil {
		t.Fatalf("unedited buffer must be savable, got %v", err)
	}

	w.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if !w.Modified() {
		t.Fatal("expected typing to modify the buffer")
	}
	if err := w.CanSave(); err != ErrLossyEdit {
		t.Fatalf("expected ErrLossyEdit, got %v", err)
	}
}

func TestWidgetCleanTextIsNotLossy(t *testing.T) {
	w := NewWidget("")
	w.SetValue("let x = 1;\nlet y = 2;")
	if w.Lossy() {
		t.Fatal("plain text must not be lossy")
	}
	w.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("z")})
	if err := w.CanSave(); err != nil {
		t.Fatalf("edited plain text must be savable, got %v", err)
	}
}
