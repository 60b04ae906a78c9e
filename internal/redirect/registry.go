// Package redirect correlates an external authentication surface with the
// callback that ends it. Each open surface gets a correlation ID; the
// callback listener delivers into the registry and the waiting coordinator
// receives exactly one event.
package redirect

import (
	"net/url"
	"sync"

	"github.com/google/uuid"
)

// CallbackEvent ends one Awaiting cycle. Either URL is set or Dismissed is
// true.
type CallbackEvent struct {
	URL       *url.URL
	Dismissed bool
}

// Registry maps correlation IDs to their pending continuation. It is safe
// for concurrent use.
type Registry struct {
	mu      sync.Mutex
	pending map[string]chan CallbackEvent
}

func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]chan CallbackEvent)}
}

// Register opens a continuation under a fresh correlation ID. The returned
// channel receives at most one event.
func (r *Registry) Register() (string, <-chan CallbackEvent) {
	id := uuid.NewString()
	ch := make(chan CallbackEvent, 1)

	r.mu.Lock()
	r.pending[id] = ch
	r.mu.Unlock()
	return id, ch
}

// Deliver resolves the continuation for id and removes it. It reports false
// when id is unknown or already resolved.
func (r *Registry) Deliver(id string, ev CallbackEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.pending[id]
	if !ok {
		return false
	}
	delete(r.pending, id)
	// Buffered with room for exactly this event, so the send never blocks.
	ch <- ev
	return true
}

// Forget drops the continuation for id without resolving it. It reports
// false when a delivery already won, in which case the event is waiting on
// the channel.
func (r *Registry) Forget(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[id]; !ok {
		return false
	}
	delete(r.pending, id)
	return true
}

// Pending reports how many continuations are waiting.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
