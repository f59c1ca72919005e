package bridge

import (
	"context"
	"testing"
	"time"
)

func TestObserverInitializesTaggedOnce(t *testing.T) {
	ps := newProgramServer(t, "// remote")
	b := newTestBridge(ps)
	hydrated := make(chan string, 4)
	o := NewObserver(b, 600, func(h *Handle, r Result) {
		if r.OK() {
			hydrated <- h.ID()
		}
	})

	tagged := NewMemContainer("a", "// loading", nil, MarkerClass)
	plain := NewMemContainer("b", "// loading", nil)

	created := o.ContentLoaded(context.Background(), tagged, plain)
	if len(created) != 1 || created[0].ID() != "a" {
		t.Fatalf("expected only the tagged container, got %d handles", len(created))
	}

	select {
	case id := <-hydrated:
		if id != "a" {
			t.Fatalf("expected hydration of a, got %q", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for hydration")
	}
	if got := tagged.Widgets()[0].Value(); got != "// remote" {
		t.Fatalf("expected hydrated buffer, got %q", got)
	}

	again := o.ContentLoaded(context.Background(), tagged)
	if len(again) != 0 {
		t.Fatalf("expected re-insertion to be ignored, got %d handles", len(again))
	}
	if n := len(tagged.Widgets()); n != 1 {
		t.Fatalf("expected a single widget, got %d", n)
	}
	if n := tagged.Widgets()[0].Bindings(); n != 1 {
		t.Fatalf("expected a single key binding, got %d", n)
	}
	if o.Len() != 1 {
		t.Fatalf("expected 1 tracked handle, got %d", o.Len())
	}
	if _, ok := o.Handle("b"); ok {
		t.Fatal("untagged container must not be tracked")
	}
}

// blockingPreview holds Navigate until release is closed.
type blockingPreview struct {
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPreview) SetHeight(int) {}
func (p *blockingPreview) Reload()       {}

func (p *blockingPreview) Navigate(string) {
	close(p.entered)
	<-p.release
}

func TestObserverDoesNotLockDuringInitialize(t *testing.T) {
	ps := newProgramServer(t, "// remote")
	o := NewObserver(newTestBridge(ps), 600, nil)
	preview := &blockingPreview{entered: make(chan struct{}), release: make(chan struct{})}
	slow := NewMemContainer("slow", "", preview, MarkerClass)

	done := make(chan []*Handle, 1)
	go func() { done <- o.ContentLoaded(context.Background(), slow) }()
	select {
	case <-preview.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Initialize")
	}

	answered := make(chan struct{})
	go func() {
		o.Len()
		o.Handle("slow")
		o.ContentLoaded(context.Background(), slow)
		close(answered)
	}()
	select {
	case <-answered:
	case <-time.After(2 * time.Second):
		t.Fatal("observer calls blocked behind a slow Initialize")
	}
	if _, ok := o.Handle("slow"); ok {
		t.Fatal("handle must not be visible before Initialize returns")
	}

	close(preview.release)
	created := <-done
	if len(created) != 1 {
		t.Fatalf("expected 1 handle, got %d", len(created))
	}
	if n := len(slow.Widgets()); n != 1 {
		t.Fatalf("expected a single widget, got %d", n)
	}
	if o.Len() != 1 {
		t.Fatalf("expected 1 tracked handle, got %d", o.Len())
	}
}
