package phoenix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parrillas/internal/logging"
	"parrillas/internal/realtime"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// fakeRealtime accepts joins, replies ok, and lets the test push frames.
type fakeRealtime struct {
	t       *testing.T
	conns   chan *websocket.Conn
	joins   chan frame
	accepts atomic.Int32
}

func newFake(t *testing.T) (*fakeRealtime, *httptest.Server) {
	f := &fakeRealtime{t: t, conns: make(chan *websocket.Conn, 4), joins: make(chan frame, 8)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/realtime/v1/websocket") || r.URL.Query().Get("vsn") != "1.0.0" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.accepts.Add(1)
		f.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var in frame
			if json.Unmarshal(data, &in) != nil {
				continue
			}
			if in.Event == "phx_join" || in.Event == "heartbeat" {
				out, _ := json.Marshal(frame{Topic: in.Topic, Event: "phx_reply", Payload: json.RawMessage(`{"status":"ok","response":{}}`), Ref: in.Ref})
				_ = conn.WriteMessage(websocket.TextMessage, out)
			}
			if in.Event == "phx_join" {
				f.joins <- in
			}
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func change(topic, table, typ, record string) []byte {
	b, _ := json.Marshal(map[string]any{
		"topic": topic,
		"event": "postgres_changes",
		"ref":   nil,
		"payload": map[string]any{
			"data": map[string]any{
				"schema":           "public",
				"table":            table,
				"type":             typ,
				"commit_timestamp": "2026-01-20T10:00:00Z",
				"record":           json.RawMessage(record),
				"old_record":       json.RawMessage(`{"id":"p-1"}`),
			},
			"ids": []int{1},
		},
	})
	return b
}

func waitJoin(t *testing.T, f *fakeRealtime) frame {
	t.Helper()
	select {
	case j := <-f.joins:
		return j
	case <-time.After(3 * time.Second):
		t.Fatalf("no join received")
	}
	return frame{}
}

func waitConn(t *testing.T, f *fakeRealtime) *websocket.Conn {
	t.Helper()
	select {
	case c := <-f.conns:
		return c
	case <-time.After(3 * time.Second):
		t.Fatalf("no connection")
	}
	return nil
}

func TestSocketURL(t *testing.T) {
	t.Parallel()
	u, err := socketURL("https://abc.supabase.co", "anon")
	require.NoError(t, err)
	assert.Equal(t, "wss://abc.supabase.co/realtime/v1/websocket?apikey=anon&vsn=1.0.0", u)

	u, err = socketURL("ws://localhost:4000/socket/websocket", "")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:4000/socket/websocket?vsn=1.0.0", u)

	_, err = socketURL("ftp://x", "")
	assert.Error(t, err)
}

func TestNextBackoffIsCapped(t *testing.T) {
	t.Parallel()
	d := time.Second
	for i := 0; i < 10; i++ {
		d = nextBackoff(d, 30*time.Second)
	}
	assert.Equal(t, 30*time.Second, d)
}

func TestSubscribe_JoinsAndDeliversChanges(t *testing.T) {
	f, srv := newFake(t)
	c, err := New(Config{URL: srv.URL, APIKey: "anon", AccessToken: "tok", Heartbeat: time.Hour}, logging.Discard())
	require.NoError(t, err)
	defer c.Close()

	sub, err := c.Subscribe(context.Background(), "content-realtime",
		realtime.Binding{Table: "parrillas", Event: realtime.Any},
		realtime.Binding{Table: "parrilla_comments", Event: realtime.Insert},
	)
	require.NoError(t, err)

	conn := waitConn(t, f)
	join := waitJoin(t, f)
	assert.Equal(t, "realtime:content-realtime", join.Topic)
	var p joinPayload
	require.NoError(t, json.Unmarshal(join.Payload, &p))
	assert.Equal(t, "tok", p.AccessToken)
	require.Len(t, p.Config.PostgresChanges, 2)
	assert.Equal(t, postgresChange{Event: "*", Schema: "public", Table: "parrillas"}, p.Config.PostgresChanges[0])
	assert.Equal(t, "INSERT", p.Config.PostgresChanges[1].Event)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, change("realtime:content-realtime", "parrillas", "UPDATE", `{"id":"p-1","title":"Nuevo"}`)))

	select {
	case e := <-sub.Events():
		assert.Equal(t, "parrillas", e.Table)
		assert.Equal(t, realtime.Update, e.Type)
		assert.JSONEq(t, `{"id":"p-1","title":"Nuevo"}`, string(e.New))
		assert.Equal(t, time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC), e.CommitTimestamp.UTC())
	case <-time.After(3 * time.Second):
		t.Fatalf("no event delivered")
	}

	_, err = c.Subscribe(context.Background(), "content-realtime", realtime.Binding{Table: "parrillas"})
	assert.Error(t, err, "duplicate channel")
}

func TestSubscribe_AfterCloseFails(t *testing.T) {
	f, srv := newFake(t)
	c, err := New(Config{URL: srv.URL, Heartbeat: time.Hour}, logging.Discard())
	require.NoError(t, err)

	sub, err := c.Subscribe(context.Background(), "content-realtime", realtime.Binding{Table: "parrillas"})
	require.NoError(t, err)
	waitJoin(t, f)
	require.NoError(t, c.Close())

	select {
	case <-sub.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("subscription left open")
	}

	_, err = c.Subscribe(context.Background(), "content-realtime", realtime.Binding{Table: "parrillas"})
	assert.ErrorIs(t, err, ErrClosed)
	require.NoError(t, c.Close())

	idle, err := New(Config{URL: srv.URL}, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, idle.Close())
	_, err = idle.Subscribe(context.Background(), "x", realtime.Binding{Table: "parrillas"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReconnect_RejoinsAndSignals(t *testing.T) {
	f, srv := newFake(t)
	c, err := New(Config{URL: srv.URL, Heartbeat: time.Hour, MinBackoff: 10 * time.Millisecond, MaxBackoff: 40 * time.Millisecond}, logging.Discard())
	require.NoError(t, err)
	defer c.Close()

	sub, err := c.Subscribe(context.Background(), "notifications",
		realtime.Binding{Table: "notifications", Event: realtime.Insert, Filter: "user_id=eq.u-1"})
	require.NoError(t, err)

	first := waitConn(t, f)
	waitJoin(t, f)
	_ = first.Close()

	second := waitConn(t, f)
	join := waitJoin(t, f)
	assert.Equal(t, "realtime:notifications", join.Topic)

	select {
	case <-sub.Reconnected():
	case <-time.After(3 * time.Second):
		t.Fatalf("no reconnect signal")
	}

	require.NoError(t, second.WriteMessage(websocket.TextMessage, change("realtime:notifications", "notifications", "INSERT", `{"id":"n-1","user_id":"u-1"}`)))
	select {
	case e := <-sub.Events():
		assert.Equal(t, realtime.Insert, e.Type)
	case <-time.After(3 * time.Second):
		t.Fatalf("no event after reconnect")
	}
	assert.GreaterOrEqual(t, f.accepts.Load(), int32(2))
}
