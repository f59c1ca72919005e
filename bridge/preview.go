package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

const previewLoadTimeout = 30 * time.Second

// FramePreview stands in for an iframe: it fetches its URL in the background
// on Navigate and again on every Reload.
type FramePreview struct {
	client *fasthttp.Client
	loads  sync.WaitGroup

	mu         sync.Mutex
	seq        uint64
	applied    uint64
	url        string
	height     int
	reloads    int
	lastStatus int
	lastBody   []byte
	lastErr    error
	onLoad     func(status int, body []byte, err error)
}

var _ Preview = (*FramePreview)(nil)

func NewFramePreview(client *fasthttp.Client) *FramePreview {
	if client == nil {
		client = NewClient()
	}
	return &FramePreview{client: client}
}

// OnLoad registers a callback run after every page load.
func (p *FramePreview) OnLoad(fn func(status int, body []byte, err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLoad = fn
}

func (p *FramePreview) SetHeight(h int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.height = h
}

// Navigate points the frame at url and returns without waiting for the page.
func (p *FramePreview) Navigate(url string) {
	p.mu.Lock()
	p.url = url
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	p.loads.Add(1)
	go func() {
		defer p.loads.Done()
		p.load(seq, url)
	}()
}

// Reload fetches the page again and returns once it has loaded.
func (p *FramePreview) Reload() {
	p.mu.Lock()
	p.reloads++
	p.seq++
	seq, url := p.seq, p.url
	p.mu.Unlock()
	p.load(seq, url)
}

// Wait blocks until loads started by Navigate have finished.
func (p *FramePreview) Wait() {
	p.loads.Wait()
}

// load records the outcome unless a later navigation or reload already did.
func (p *FramePreview) load(seq uint64, url string) {
	if url == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), previewLoadTimeout)
	defer cancel()
	status, body, err := fetch(ctx, p.client, fasthttp.MethodGet, url, nil, nil)
	if err == nil && !isSuccess(status) {
		err = &StatusError{URL: url, Code: status}
	}
	if err != nil {
		slog.Warn("Preview load failed", "url", url, "err", err)
	}

	p.mu.Lock()
	if seq < p.applied {
		p.mu.Unlock()
		return
	}
	p.applied = seq
	p.lastStatus, p.lastBody, p.lastErr = status, body, err
	fn := p.onLoad
	p.mu.Unlock()
	if fn != nil {
		fn(status, body, err)
	}
}

func (p *FramePreview) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *FramePreview) Height() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}

func (p *FramePreview) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

// Last returns the outcome of the most recent page load.
func (p *FramePreview) Last() (int, []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastStatus, p.lastBody, p.lastErr
}
