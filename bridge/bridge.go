// Package bridge connects a text-editing widget to the load and save
// endpoints of a program server and refreshes a preview surface after every
// successful save.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"livecode/config"
)

const CommitKey = "Ctrl-S"

// APIKeyHeader carries the write key when the server requires one.
const APIKeyHeader = "X-API-Key"

// Widget is a text buffer with configurable key bindings. Implementations
// must be safe for concurrent use: Commit reads the buffer from whichever
// goroutine the key binding runs on.
type Widget interface {
	Value() string
	SetValue(string)
	SetHeight(int)
	SetMode(string)
	BindKey(key string, fn func())
}

// Preview is an embedded browsing context that can be pointed at a URL and
// reloaded.
type Preview interface {
	SetHeight(int)
	Navigate(url string)
	Reload()
}

// Container hosts one editor. Preview returns nil when there is no preview
// surface next to the editor.
type Container interface {
	ID() string
	NewWidget() Widget
	Preview() Preview
}

// Handle is the editor created by Initialize.
type Handle struct {
	id      string
	widget  Widget
	preview Preview
	height  int
}

func (h *Handle) ID() string       { return h.id }
func (h *Handle) Widget() Widget   { return h.widget }
func (h *Handle) Preview() Preview { return h.preview }

// Height is the editor height computed at initialization.
func (h *Handle) Height() int { return h.height }

type Bridge struct {
	client       *fasthttp.Client
	endpoints    Endpoints
	mode         string
	chromeOffset int
	onCommit     func(*Handle, Result)
	logger       *slog.Logger
	header       map[string]string
}

type Option func(*Bridge)

func WithClient(c *fasthttp.Client) Option {
	return func(b *Bridge) { b.client = c }
}

// WithCommitHandler receives the result of every key-triggered commit.
func WithCommitHandler(fn func(*Handle, Result)) Option {
	return func(b *Bridge) { b.onCommit = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithHeader adds a header to every request the bridge sends.
func WithHeader(name, value string) Option {
	return func(b *Bridge) {
		if b.header == nil {
			b.header = make(map[string]string)
		}
		b.header[name] = value
	}
}

// WithAPIKey authenticates writes against a server with key auth enabled.
// An empty key sends nothing.
func WithAPIKey(key string) Option {
	if key == "" {
		return func(*Bridge) {}
	}
	return WithHeader(APIKeyHeader, key)
}

func WithChromeOffset(px int) Option {
	return func(b *Bridge) { b.chromeOffset = px }
}

func WithMode(mode string) Option {
	return func(b *Bridge) { b.mode = mode }
}

func NewClient() *fasthttp.Client {
	return &fasthttp.Client{
		Name:                "livecode-bridge",
		MaxIdleConnDuration: 30 * time.Second,
	}
}

func New(endpoints Endpoints, opts ...Option) *Bridge {
	b := &Bridge{
		endpoints:    endpoints,
		mode:         config.DefaultMode,
		chromeOffset: config.ChromeOffset,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		b.client = NewClient()
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

func (b *Bridge) Endpoints() Endpoints {
	return b.endpoints
}

// Initialize creates the widget inside c and lays it out once for the given
// viewport height. Nothing listens for later viewport changes.
func (b *Bridge) Initialize(c Container, viewportHeight int) *Handle {
	h := &Handle{
		id:      c.ID(),
		widget:  c.NewWidget(),
		preview: c.Preview(),
		height:  max(viewportHeight-b.chromeOffset, 0),
	}
	h.widget.SetMode(b.mode)
	h.widget.SetHeight(h.height)
	if h.preview != nil {
		h.preview.SetHeight(h.height)
		h.preview.Navigate(b.endpoints.PreviewURL())
	}
	h.widget.BindKey(CommitKey, func() { b.trigger(h) })
	b.logger.Debug("Editor initialized", "container", h.id, "height", h.height, "mode", b.mode)
	return h
}

func (b *Bridge) trigger(h *Handle) {
	go func() {
		r := b.Commit(context.Background(), h)
		if b.onCommit != nil {
			b.onCommit(h, r)
		}
	}()
}

// Hydrate loads the current source into the widget. On any failure the
// buffer is left untouched and the failure is returned.
func (b *Bridge) Hydrate(ctx context.Context, h *Handle) Result {
	url := b.endpoints.SourceURL()
	status, body, err := fetch(ctx, b.client, fasthttp.MethodGet, url, b.header, nil)
	if err != nil {
		b.logger.Error("Failed to load source", "url", url, "err", err)
		return Result{Err: err}
	}
	if !isSuccess(status) {
		err := &StatusError{URL: url, Code: status}
		b.logger.Error("Failed to load source", "url", url, "status", status)
		return Result{Status: status, Body: body, Err: err}
	}
	h.widget.SetValue(string(body))
	b.logger.Debug("Source loaded", "url", url, "bytes", len(body))
	return Result{Status: status, Body: body}
}

// Commit sends the whole buffer as the request body and reloads the preview
// once the server acknowledges it with a JSON payload.
func (b *Bridge) Commit(ctx context.Context, h *Handle) Result {
	content := h.widget.Value()
	url := b.endpoints.DestinationURL()
	b.logger.Info("Saving", "container", h.id, "url", url, "bytes", len(content))

	status, body, err := fetch(ctx, b.client, fasthttp.MethodPost, url, b.header, []byte(content))
	if err != nil {
		b.logger.Error("Failed to save", "url", url, "err", err)
		return Result{Err: err}
	}
	res := Result{Status: status, Body: body}
	if !isSuccess(status) {
		res.Err = &StatusError{URL: url, Code: status}
		b.logger.Error("Failed to save", "url", url, "status", status)
		return res
	}
	if err := sonic.Unmarshal(body, &res.Payload); err != nil {
		res.Err = fmt.Errorf("failed to parse save response: %w", err)
		b.logger.Error("Failed to save", "url", url, "err", res.Err)
		return res
	}

	if h.preview != nil {
		h.preview.Reload()
	}
	b.logger.Info("Saved", "container", h.id, "url", url)
	return res
}
