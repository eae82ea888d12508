// Package realtime delivers row-change events for subscribed tables.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
	// Any matches every event type in a Binding.
	Any EventType = "*"
)

// Event is one committed row change. New carries the row after the change
// (empty for deletes); Old carries at least the primary key for updates and deletes.
type Event struct {
	Table           string          `json:"table"`
	Type            EventType       `json:"type"`
	New             json.RawMessage `json:"record,omitempty"`
	Old             json.RawMessage `json:"old_record,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

func (e Event) DecodeNew(v any) error {
	if len(e.New) == 0 {
		return fmt.Errorf("%s %s event has no record", e.Table, e.Type)
	}
	return json.Unmarshal(e.New, v)
}

func (e Event) DecodeOld(v any) error {
	if len(e.Old) == 0 {
		return fmt.Errorf("%s %s event has no old record", e.Table, e.Type)
	}
	return json.Unmarshal(e.Old, v)
}

// Binding selects events on one table. Filter uses the PostgREST form "column=eq.value".
type Binding struct {
	Table  string
	Event  EventType
	Filter string
}

func (b Binding) Matches(e Event) bool {
	if b.Table != e.Table {
		return false
	}
	if b.Event != "" && b.Event != Any && b.Event != e.Type {
		return false
	}
	if strings.TrimSpace(b.Filter) == "" {
		return true
	}
	col, want, ok := parseEqFilter(b.Filter)
	if !ok {
		return false
	}
	raw := e.New
	if len(raw) == 0 {
		raw = e.Old
	}
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return false
	}
	v, ok := row[col]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == want
}

func parseEqFilter(f string) (col, value string, ok bool) {
	col, rest, ok := strings.Cut(strings.TrimSpace(f), "=")
	if !ok {
		return "", "", false
	}
	value, ok = strings.CutPrefix(rest, "eq.")
	if !ok || col == "" {
		return "", "", false
	}
	return col, value, true
}

// Feed opens subscriptions on a named channel.
type Feed interface {
	Subscribe(ctx context.Context, channel string, bindings ...Binding) (*Subscription, error)
}

// Subscription buffers matched events in arrival order. Delivery never blocks the
// producer; the consumer drains Events until the subscription is closed.
type Subscription struct {
	Channel  string
	Bindings []Binding

	events     chan Event
	reconnects chan struct{}
	done       chan struct{}

	mu      sync.Mutex
	pending []Event
	wake    chan struct{}

	closeOnce sync.Once
	onClose   func()
}

func NewSubscription(channel string, bindings []Binding, onClose func()) *Subscription {
	s := &Subscription{
		Channel:    channel,
		Bindings:   append([]Binding(nil), bindings...),
		events:     make(chan Event),
		reconnects: make(chan struct{}, 1),
		done:       make(chan struct{}),
		wake:       make(chan struct{}, 1),
		onClose:    onClose,
	}
	go s.pump()
	return s
}

func (s *Subscription) Events() <-chan Event { return s.events }

// Reconnected fires after the underlying connection was re-established.
// Signals coalesce; events published while disconnected may have been missed.
func (s *Subscription) Reconnected() <-chan struct{} { return s.reconnects }

func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose()
		}
	})
}

func (s *Subscription) matches(e Event) bool {
	for _, b := range s.Bindings {
		if b.Matches(e) {
			return true
		}
	}
	return false
}

// Deliver enqueues e if any binding matches. It reports whether e was accepted.
func (s *Subscription) Deliver(e Event) bool {
	if !s.matches(e) {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
	}
	s.mu.Lock()
	s.pending = append(s.pending, e)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Subscription) SignalReconnect() {
	select {
	case s.reconnects <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, e := range batch {
			select {
			case s.events <- e:
			case <-s.done:
				return
			}
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}
