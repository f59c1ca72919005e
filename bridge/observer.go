package bridge

import (
	"context"
	"sync"
)

// MarkerClass tags containers that should receive an editor when they
// appear in newly loaded content.
const MarkerClass = "livecode"

// Tagged is implemented by containers that carry class names.
type Tagged interface {
	HasClass(name string) bool
}

// Observer initializes editors lazily as content is loaded. Each container
// ID is initialized at most once, so re-inserted content never gets a second
// widget or a second key binding.
type Observer struct {
	bridge         *Bridge
	viewportHeight int
	onHydrate      func(*Handle, Result)

	mu      sync.Mutex
	handles map[string]*Handle // nil while the editor is being initialized
}

func NewObserver(b *Bridge, viewportHeight int, onHydrate func(*Handle, Result)) *Observer {
	return &Observer{
		bridge:         b,
		viewportHeight: viewportHeight,
		onHydrate:      onHydrate,
		handles:        make(map[string]*Handle),
	}
}

// ContentLoaded initializes every tagged container not seen before and
// starts hydrating it. It returns only the newly created handles.
func (o *Observer) ContentLoaded(ctx context.Context, containers ...Container) []*Handle {
	var fresh []Container
	o.mu.Lock()
	for _, c := range containers {
		tagged, ok := c.(Tagged)
		if !ok || !tagged.HasClass(MarkerClass) {
			continue
		}
		if _, seen := o.handles[c.ID()]; seen {
			continue
		}
		o.handles[c.ID()] = nil
		fresh = append(fresh, c)
	}
	o.mu.Unlock()

	// Initialize may touch the preview, so it runs without the lock.
	created := make([]*Handle, 0, len(fresh))
	for _, c := range fresh {
		h := o.bridge.Initialize(c, o.viewportHeight)
		o.mu.Lock()
		o.handles[c.ID()] = h
		o.mu.Unlock()
		created = append(created, h)
	}

	for _, h := range created {
		go func(h *Handle) {
			r := o.bridge.Hydrate(ctx, h)
			if o.onHydrate != nil {
				o.onHydrate(h, r)
			}
		}(h)
	}
	return created
}

func (o *Observer) Handle(id string) (*Handle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	h := o.handles[id]
	return h, h != nil
}

// Len counts initialized editors.
func (o *Observer) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, h := range o.handles {
		if h != nil {
			n++
		}
	}
	return n
}
