package tui

import (
	"errors"
	"sync"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"livecode/bridge"
)

// ErrLossyEdit is returned by CanSave when the buffer was loaded with text the
// textarea rewrites, such as tabs or carriage returns, and has been edited
// since.
var ErrLossyEdit = errors.New("buffer held tabs or carriage returns the terminal editor cannot keep; edits would rewrite them")

// Widget adapts a bubbles textarea to bridge.Widget. The textarea is only
// touched under mu because commits read it from their own goroutine.
//
// The textarea normalizes what it is given, so the widget remembers the exact
// text from the last SetValue and hands it back until the buffer is edited.
type Widget struct {
	mu       sync.Mutex
	ta       textarea.Model
	exact    string
	shown    string
	mode     string
	bindings map[string]func()
}

var _ bridge.Widget = (*Widget)(nil)

func NewWidget(placeholder string) *Widget {
	ta := textarea.New()
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.ShowLineNumbers = true
	ta.Prompt = ""
	ta.Focus()
	w := &Widget{ta: ta, bindings: make(map[string]func())}
	w.SetValue(placeholder)
	return w
}

// Value returns the exact text last set unless the buffer has been edited.
func (w *Widget) Value() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cur := w.ta.Value(); cur != w.shown {
		return cur
	}
	return w.exact
}

func (w *Widget) SetValue(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ta.SetValue(s)
	w.exact = s
	w.shown = w.ta.Value()
}

// Lossy reports whether the textarea shows the last set text differently
// from its bytes.
func (w *Widget) Lossy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exact != w.shown
}

func (w *Widget) Modified() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ta.Value() != w.shown
}

// CanSave reports ErrLossyEdit when saving would rewrite bytes the user
// never touched.
func (w *Widget) CanSave() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.exact != w.shown && w.ta.Value() != w.shown {
		return ErrLossyEdit
	}
	return nil
}

func (w *Widget) SetHeight(h int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ta.SetHeight(h)
}

func (w *Widget) Height() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ta.Height()
}

func (w *Widget) SetMode(mode string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mode = mode
}

func (w *Widget) Mode() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// BindKey accepts bridge key names ("Ctrl-S") and terminal names ("ctrl+s").
func (w *Widget) BindKey(k string, fn func()) {
	if mapped, ok := bridgeKeys[k]; ok {
		k = mapped
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bindings[k] = fn
}

func (w *Widget) press(k string) bool {
	w.mu.Lock()
	fn, ok := w.bindings[k]
	w.mu.Unlock()
	if !ok {
		return false
	}
	fn()
	return true
}

func (w *Widget) setWidth(width int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ta.SetWidth(width)
}

func (w *Widget) update(msg tea.Msg) tea.Cmd {
	w.mu.Lock()
	defer w.mu.Unlock()
	var cmd tea.Cmd
	w.ta, cmd = w.ta.Update(msg)
	return cmd
}

func (w *Widget) view() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ta.View()
}

// container hands the bridge the single widget owned by the model.
type container struct {
	id      string
	widget  *Widget
	preview bridge.Preview
}

func (c *container) ID() string               { return c.id }
func (c *container) NewWidget() bridge.Widget { return c.widget }
func (c *container) Preview() bridge.Preview  { return c.preview }
