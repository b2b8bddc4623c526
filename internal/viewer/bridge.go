// internal/viewer/bridge.go
package viewer

import (
	"sync"
	"sync/atomic"
)

// Subscriber receives bridge events
type Subscriber func(Event)

type subscription struct {
	fn     Subscriber
	active atomic.Bool
}

// Bridge is a synchronous publish/subscribe channel between controls and a scene.
// Emit delivers to every current subscriber in registration order before returning.
type Bridge struct {
	mu   sync.Mutex
	subs []*subscription
}

// NewBridge creates an empty bridge
func NewBridge() *Bridge {
	return &Bridge{}
}

// Subscribe registers fn and returns a function that unregisters it.
// Calling the returned function more than once is harmless.
func (b *Bridge) Subscribe(fn Subscriber) func() {
	sub := &subscription{fn: fn}
	sub.active.Store(true)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return func() {
		if !sub.active.Swap(false) {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s == sub {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				break
			}
		}
	}
}

// Emit calls every subscriber with e.
// Subscribers removed during delivery are skipped; ones added during delivery wait for the next event.
func (b *Bridge) Emit(e Event) {
	b.mu.Lock()
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		if sub.active.Load() {
			sub.fn(e)
		}
	}
}

// Len returns the number of registered subscribers
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Load announces a product model, with optional model and metadata URLs
func (b *Bridge) Load(productID, modelURL, metaURL string) {
	b.Emit(Event{Kind: EventLoad, ProductID: productID, ModelURL: modelURL, MetaURL: metaURL})
}

// SelectPart asks the scene to highlight objects matching a part code
func (b *Bridge) SelectPart(code string) {
	b.Emit(Event{Kind: EventSelectPart, Code: code})
}

// SelectOption asks the scene to highlight objects matching an option code
func (b *Bridge) SelectOption(code string) {
	b.Emit(Event{Kind: EventSelectOption, Code: code})
}

// CameraTo asks the scene to frame objects matching a code
func (b *Bridge) CameraTo(code string) {
	b.Emit(Event{Kind: EventCameraTo, Code: code})
}

// SetViewMode announces a rendering surface change
func (b *Bridge) SetViewMode(mode ViewMode) {
	b.Emit(Event{Kind: EventViewMode, Mode: mode})
}
