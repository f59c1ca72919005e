package bridge

import (
	"slices"
	"sync"
)

// MemWidget is an in-memory Widget for headless use.
type MemWidget struct {
	mu       sync.Mutex
	value    string
	height   int
	mode     string
	bindings map[string]func()
}

var _ Widget = (*MemWidget)(nil)

func NewMemWidget(initial string) *MemWidget {
	return &MemWidget{value: initial, bindings: make(map[string]func())}
}

func (w *MemWidget) Value() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

func (w *MemWidget) SetValue(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.value = s
}

func (w *MemWidget) SetHeight(h int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.height = h
}

func (w *MemWidget) Height() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.height
}

func (w *MemWidget) SetMode(mode string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mode = mode
}

func (w *MemWidget) Mode() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// BindKey replaces any earlier binding for key.
func (w *MemWidget) BindKey(key string, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bindings[key] = fn
}

func (w *MemWidget) Bindings() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.bindings)
}

// Press runs the binding for key and reports whether one existed.
func (w *MemWidget) Press(key string) bool {
	w.mu.Lock()
	fn, ok := w.bindings[key]
	w.mu.Unlock()
	if !ok {
		return false
	}
	fn()
	return true
}

// MemContainer hosts MemWidgets. Every call to NewWidget creates a fresh
// widget holding the placeholder text.
type MemContainer struct {
	id          string
	placeholder string
	preview     Preview
	classes     []string

	mu      sync.Mutex
	widgets []*MemWidget
}

var (
	_ Container = (*MemContainer)(nil)
	_ Tagged    = (*MemContainer)(nil)
)

func NewMemContainer(id, placeholder string, preview Preview, classes ...string) *MemContainer {
	return &MemContainer{id: id, placeholder: placeholder, preview: preview, classes: classes}
}

func (c *MemContainer) ID() string { return c.id }

func (c *MemContainer) NewWidget() Widget {
	w := NewMemWidget(c.placeholder)
	c.mu.Lock()
	c.widgets = append(c.widgets, w)
	c.mu.Unlock()
	return w
}

func (c *MemContainer) Preview() Preview { return c.preview }

func (c *MemContainer) HasClass(name string) bool {
	return slices.Contains(c.classes, name)
}

// Widgets returns every widget created in this container.
func (c *MemContainer) Widgets() []*MemWidget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.widgets)
}
