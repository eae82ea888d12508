package realtime

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case e := <-sub.Events():
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func TestBindingMatches(t *testing.T) {
	t.Parallel()

	upd := Event{Table: "parrillas", Type: Update, New: json.RawMessage(`{"id":"p-1","user_id":"u-1"}`)}
	del := Event{Table: "parrillas", Type: Delete, Old: json.RawMessage(`{"id":"p-1"}`)}
	note := Event{Table: "notifications", Type: Insert, New: json.RawMessage(`{"id":"n-1","user_id":"u-1"}`)}

	assert.True(t, Binding{Table: "parrillas", Event: Any}.Matches(upd))
	assert.True(t, Binding{Table: "parrillas", Event: Any}.Matches(del))
	assert.False(t, Binding{Table: "parrillas", Event: Insert}.Matches(upd))
	assert.False(t, Binding{Table: "parrilla_comments", Event: Any}.Matches(upd))

	assert.True(t, Binding{Table: "notifications", Event: Insert, Filter: "user_id=eq.u-1"}.Matches(note))
	assert.False(t, Binding{Table: "notifications", Event: Insert, Filter: "user_id=eq.u-2"}.Matches(note))
	assert.False(t, Binding{Table: "notifications", Event: Insert, Filter: "user_id"}.Matches(note))
}

func TestHub_DeliversInOrderToMatchingSubscribers(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ctx := context.Background()
	items, err := h.Subscribe(ctx, "content-realtime", Binding{Table: "parrillas", Event: Any})
	require.NoError(t, err)
	defer items.Close()
	comments, err := h.Subscribe(ctx, "content-realtime", Binding{Table: "parrilla_comments", Event: Insert})
	require.NoError(t, err)
	defer comments.Close()

	for i := 0; i < 50; i++ {
		h.Publish(Event{Table: "parrillas", Type: Update, New: json.RawMessage(`{"n":` + strconv.Itoa(i) + `}`)})
	}
	h.Publish(Event{Table: "parrilla_comments", Type: Insert, New: json.RawMessage(`{"id":"c-1"}`)})

	for i := 0; i < 50; i++ {
		e := recv(t, items)
		var row struct{ N int }
		require.NoError(t, e.DecodeNew(&row))
		assert.Equal(t, i, row.N)
	}
	e := recv(t, comments)
	assert.Equal(t, "parrilla_comments", e.Table)

	select {
	case e := <-comments.Events():
		t.Fatalf("unexpected event %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_CloseUnsubscribes(t *testing.T) {
	t.Parallel()

	h := NewHub()
	sub, err := h.Subscribe(context.Background(), "c", Binding{Table: "parrillas"})
	require.NoError(t, err)
	assert.Equal(t, 1, h.Len())
	sub.Close()
	sub.Close()
	assert.Equal(t, 0, h.Len())
	assert.False(t, sub.Deliver(Event{Table: "parrillas", Type: Insert}))
}

func TestHub_ReconnectSignalCoalesces(t *testing.T) {
	t.Parallel()

	h := NewHub()
	sub, err := h.Subscribe(context.Background(), "c", Binding{Table: "parrillas"})
	require.NoError(t, err)
	defer sub.Close()
	h.Reconnected()
	h.Reconnected()

	<-sub.Reconnected()
	select {
	case <-sub.Reconnected():
		t.Fatalf("expected a single coalesced signal")
	default:
	}
}
