package realtime

import (
	"context"
	"sync"
)

// Hub fans events out to in-process subscribers. Handlers run synchronously
// on the publishing goroutine, in registration order.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   []hubSub
}

type hubSub struct {
	id      int
	channel string
	filter  Filter
	h       Handler
}

func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) Subscribe(ctx context.Context, channel string, filter Filter, handler Handler) (Subscription, error) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, hubSub{id: id, channel: channel, filter: filter, h: handler})
	h.mu.Unlock()
	return &cancelSub{cancel: func() { h.remove(id) }}, nil
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, s := range h.subs {
		if s.id == id {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every matching subscriber.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	targets := make([]Handler, 0, len(h.subs))
	for _, s := range h.subs {
		if s.filter.Matches(ev) {
			targets = append(targets, s.h)
		}
	}
	h.mu.Unlock()
	for _, fn := range targets {
		fn(ev)
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
