package realtime

import (
	"context"
	"sync"
)

// Hub is an in-process Feed. Backends publish after each commit.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]*Subscription
}

func NewHub() *Hub {
	return &Hub{subs: map[int]*Subscription{}}
}

func (h *Hub) Subscribe(ctx context.Context, channel string, bindings ...Binding) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	id := h.next
	h.next++
	sub := NewSubscription(channel, bindings, func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	})
	h.subs[id] = sub
	h.mu.Unlock()
	return sub, nil
}

// Publish fans e out to every matching subscription.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.Deliver(e)
	}
}

// Reconnected signals every subscriber as if the feed had dropped and recovered.
func (h *Hub) Reconnected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		s.SignalReconnect()
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
