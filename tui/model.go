// Package tui is a terminal front end for the editor bridge: a textarea
// editor above a status line that reports saves and preview reloads.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"livecode/bridge"
)

// chromeLines is the header, status line and help line around the editor.
const chromeLines = 3

type HydratedMsg struct {
	Result bridge.Result
}

type CommittedMsg struct {
	Result bridge.Result
}

type Model struct {
	bridge    *bridge.Bridge
	container *container
	widget    *Widget
	preview   *bridge.FramePreview
	handle    *bridge.Handle
	commits   chan bridge.Result

	ctx     context.Context
	title   string
	keys    keyMap
	help    help.Model
	width   int
	pending int
	status  string
	failed  bool
}

// New builds the editor model. preview may be nil for endpoints without a
// preview surface.
func New(ctx context.Context, title string, endpoints bridge.Endpoints, preview *bridge.FramePreview, opts ...bridge.Option) Model {
	commits := make(chan bridge.Result, 8)
	opts = append(opts,
		bridge.WithChromeOffset(chromeLines),
		bridge.WithCommitHandler(func(_ *bridge.Handle, r bridge.Result) { commits <- r }),
	)
	w := NewWidget("// loading...")
	c := &container{id: title, widget: w}
	if preview != nil {
		c.preview = preview
	}
	return Model{
		bridge:    bridge.New(endpoints, opts...),
		container: c,
		widget:    w,
		preview:   preview,
		commits:   commits,
		ctx:       ctx,
		title:     title,
		keys:      defaultKeyMap(),
		help:      help.New(),
		status:    "waiting for terminal size",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForCommit())
}

func (m Model) hydrate() tea.Cmd {
	b, h, ctx := m.bridge, m.handle, m.ctx
	return func() tea.Msg {
		return HydratedMsg{Result: b.Hydrate(ctx, h)}
	}
}

func (m Model) waitForCommit() tea.Cmd {
	commits := m.commits
	return func() tea.Msg {
		return CommittedMsg{Result: <-commits}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	case HydratedMsg:
		switch {
		case msg.Result.OK() && m.widget.Lossy():
			m.setStatus(fmt.Sprintf("loaded %d bytes; tabs or CR shown as spaces, edits cannot be saved", len(msg.Result.Body)), true)
		case msg.Result.OK():
			m.setStatus(fmt.Sprintf("loaded %d bytes", len(msg.Result.Body)), false)
		default:
			m.setStatus("load failed: "+msg.Result.Err.Error(), true)
		}
		return m, nil
	case CommittedMsg:
		m.pending = max(m.pending-1, 0)
		if msg.Result.OK() {
			m.setStatus("saved", false)
		} else {
			m.setStatus("save failed: "+msg.Result.Err.Error(), true)
		}
		return m, m.waitForCommit()
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Save):
			if err := m.widget.CanSave(); err != nil {
				m.setStatus("save refused: "+err.Error(), true)
				return m, nil
			}
			if m.widget.press(msg.String()) {
				m.pending++
				m.setStatus("saving...", false)
			}
			return m, nil
		}
	}
	return m, m.widget.update(msg)
}

// handleWindowSize lays the editor out on the first size message only;
// later messages just track the width.
func (m Model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.widget.setWidth(msg.Width)
	m.help.Width = msg.Width
	if m.handle != nil {
		return m, nil
	}
	m.handle = m.bridge.Initialize(m.container, msg.Height)
	m.setStatus("loading "+m.bridge.Endpoints().SourceURL(), false)
	return m, m.hydrate()
}

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

// Widget exposes the editor buffer.
func (m Model) Widget() *Widget {
	return m.widget
}

func (m Model) Initialized() bool {
	return m.handle != nil
}

func (m Model) Pending() int {
	return m.pending
}

func (m Model) Status() string {
	return m.status
}

func (m Model) View() string {
	if m.handle == nil {
		return "Initializing..."
	}
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("livecode " + m.title))
	b.WriteString("\n")
	b.WriteString(m.widget.view())
	b.WriteString("\n")

	status := StatusStyle.Render(m.status)
	switch {
	case m.failed:
		status = FailedStyle.Render(m.status)
	case m.status == "saved":
		status = SavedStyle.Render(m.status)
	}
	b.WriteString(status)
	if m.preview != nil {
		b.WriteString("  ")
		b.WriteString(PreviewStyle.Render(previewSummary(m.preview)))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func previewSummary(p *bridge.FramePreview) string {
	code, body, err := p.Last()
	if err != nil {
		return fmt.Sprintf("preview %s: %v", p.URL(), err)
	}
	return fmt.Sprintf("preview %s: %d (%d bytes, %d reloads)", p.URL(), code, len(body), p.Reloads())
}
