// Package phoenix is a Supabase Realtime client speaking the Phoenix channel
// protocol (vsn 1.0.0, JSON frames) over a websocket.
package phoenix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"parrillas/internal/logging"
	"parrillas/internal/metrics"
	"parrillas/internal/realtime"
)

const (
	DefaultHeartbeat  = 25 * time.Second
	DefaultMinBackoff = time.Second
	DefaultMaxBackoff = 30 * time.Second
)

type Config struct {
	// URL is the project URL (https://<ref>.supabase.co) or a full websocket URL.
	URL         string
	APIKey      string
	AccessToken string

	Heartbeat  time.Duration
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Dialer     *websocket.Dialer
}

type Option func(*Client)

func WithMetrics(m *metrics.Metrics) Option { return func(c *Client) { c.metrics = m } }

type channel struct {
	topic    string
	joinRef  string
	bindings []realtime.Binding
	sub      *realtime.Subscription
}

// Client multiplexes channel subscriptions over one websocket, reconnecting with
// capped exponential backoff. Subscribers are told about every reconnect.
type Client struct {
	cfg      Config
	endpoint string
	log      *logrus.Entry
	metrics  *metrics.Metrics
	ref      atomic.Uint64

	mu       sync.Mutex
	conn     *websocket.Conn
	channels map[string]*channel
	started  bool
	closed   bool
	cancel   context.CancelFunc
	done     chan struct{}

	// writeMu serializes frames; gorilla connections allow one concurrent writer.
	writeMu sync.Mutex

	pendingHeartbeat atomic.Value
}

var _ realtime.Feed = (*Client)(nil)

// ErrClosed is returned by Subscribe once the client has been closed.
var ErrClosed = errors.New("realtime: client closed")

func New(cfg Config, log logrus.FieldLogger, opts ...Option) (*Client, error) {
	endpoint, err := socketURL(cfg.URL, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = DefaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = DefaultMaxBackoff
		if cfg.MaxBackoff < cfg.MinBackoff {
			cfg.MaxBackoff = cfg.MinBackoff
		}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: 10 * time.Second,
		}
	}
	c := &Client{
		cfg:      cfg,
		endpoint: endpoint,
		log:      logging.Component(log, "realtime"),
		channels: map[string]*channel{},
	}
	for _, o := range opts {
		o(c)
	}
	c.pendingHeartbeat.Store("")
	return c, nil
}

func socketURL(raw, apiKey string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("realtime url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("realtime url: unsupported scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/websocket") {
		u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1/websocket"
	}
	q := u.Query()
	if apiKey != "" {
		q.Set("apikey", apiKey)
	}
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) nextRef() string {
	return strconv.FormatUint(c.ref.Add(1), 10)
}

// Subscribe joins realtime:<name> with one postgres_changes entry per binding.
// The connection is opened on first use.
func (c *Client) Subscribe(ctx context.Context, name string, bindings ...realtime.Binding) (*realtime.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bindings) == 0 {
		return nil, errors.New("realtime: subscribe needs at least one binding")
	}
	topic := "realtime:" + name

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if _, dup := c.channels[topic]; dup {
		return nil, fmt.Errorf("realtime: channel %q already subscribed", name)
	}
	ch := &channel{topic: topic, bindings: append([]realtime.Binding(nil), bindings...)}
	ch.sub = realtime.NewSubscription(name, bindings, func() { c.leave(topic) })
	c.channels[topic] = ch

	if c.conn != nil {
		if err := c.joinLocked(c.conn, ch); err != nil {
			c.log.WithError(err).WithField("topic", topic).Warn("join failed; will retry on reconnect")
		}
	}
	if !c.started {
		ctx, cancel := context.WithCancel(context.Background())
		c.started = true
		c.cancel = cancel
		c.done = make(chan struct{})
		go c.run(ctx)
	}
	return ch.sub, nil
}

func (c *Client) leave(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[topic]
	if !ok {
		return
	}
	delete(c.channels, topic)
	if c.conn != nil {
		ref := c.nextRef()
		_ = c.write(c.conn, frame{Topic: topic, Event: "phx_leave", Payload: json.RawMessage(`{}`), Ref: &ref, JoinRef: strPtr(ch.joinRef)})
	}
}

// Close stops the connection loop and closes every open subscription. The client
// cannot be reused.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	cancel, done := c.cancel, c.done
	subs := make([]*realtime.Subscription, 0, len(c.channels))
	for _, ch := range c.channels {
		subs = append(subs, ch.sub)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	backoff := c.cfg.MinBackoff
	connected := false
	for {
		conn, res, err := c.cfg.Dialer.DialContext(ctx, c.endpoint, nil)
		if res != nil && res.Body != nil {
			_ = res.Body.Close()
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.WithError(err).WithField("retry_in", backoff).Warn("realtime dial failed")
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, c.cfg.MaxBackoff)
			continue
		}
		backoff = c.cfg.MinBackoff
		c.pendingHeartbeat.Store("")

		c.mu.Lock()
		c.conn = conn
		for _, ch := range c.channels {
			if err := c.joinLocked(conn, ch); err != nil {
				c.log.WithError(err).WithField("topic", ch.topic).Warn("join failed")
			}
		}
		if connected {
			for _, ch := range c.channels {
				ch.sub.SignalReconnect()
			}
		}
		c.mu.Unlock()
		if connected {
			c.metrics.Reconnect()
			c.log.Info("realtime reconnected")
		}
		connected = true

		err = c.serve(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.log.WithError(err).WithField("retry_in", backoff).Warn("realtime connection lost")
		if !sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, c.cfg.MaxBackoff)
	}
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		t := time.NewTicker(c.cfg.Heartbeat)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-t.C:
				if pending, _ := c.pendingHeartbeat.Load().(string); pending != "" {
					c.log.Warn("heartbeat timeout")
					_ = conn.Close()
					return
				}
				ref := c.nextRef()
				c.pendingHeartbeat.Store(ref)
				if err := c.write(conn, frame{Topic: "phoenix", Event: "heartbeat", Payload: json.RawMessage(`{}`), Ref: &ref}); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handle(data)
	}
}

func (c *Client) joinLocked(conn *websocket.Conn, ch *channel) error {
	changes := make([]postgresChange, 0, len(ch.bindings))
	for _, b := range ch.bindings {
		ev := string(b.Event)
		if ev == "" {
			ev = string(realtime.Any)
		}
		changes = append(changes, postgresChange{Event: ev, Schema: "public", Table: b.Table, Filter: b.Filter})
	}
	payload, err := json.Marshal(joinPayload{
		Config:      joinConfig{PostgresChanges: changes},
		AccessToken: c.cfg.AccessToken,
	})
	if err != nil {
		return err
	}
	ref := c.nextRef()
	ch.joinRef = ref
	return c.write(conn, frame{Topic: ch.topic, Event: "phx_join", Payload: payload, Ref: &ref, JoinRef: &ref})
}

func (c *Client) write(conn *websocket.Conn, f frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (c *Client) handle(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.log.WithError(err).Warn("bad realtime frame")
		return
	}
	switch f.Event {
	case "phx_reply":
		if f.Topic == "phoenix" {
			if f.Ref != nil {
				c.pendingHeartbeat.CompareAndSwap(*f.Ref, "")
			}
			return
		}
		var r reply
		_ = json.Unmarshal(f.Payload, &r)
		if r.Status != "ok" {
			c.log.WithFields(logrus.Fields{"topic": f.Topic, "response": string(r.Response)}).Warn("channel join rejected")
		}
	case "postgres_changes":
		var p changePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			c.log.WithError(err).Warn("bad postgres_changes payload")
			return
		}
		e := realtime.Event{
			Table: p.Data.Table,
			Type:  realtime.EventType(p.Data.Type),
			New:   nonNull(p.Data.Record),
			Old:   nonNull(p.Data.OldRecord),
		}
		if ts, err := time.Parse(time.RFC3339Nano, p.Data.CommitTimestamp); err == nil {
			e.CommitTimestamp = ts
		}
		c.mu.Lock()
		ch := c.channels[f.Topic]
		c.mu.Unlock()
		if ch == nil {
			return
		}
		ch.sub.Deliver(e)
	case "phx_error", "phx_close":
		c.log.WithField("topic", f.Topic).Warn("channel " + strings.TrimPrefix(f.Event, "phx_"))
	case "system":
		c.log.WithFields(logrus.Fields{"topic": f.Topic, "payload": string(f.Payload)}).Debug("realtime system message")
	}
}

func nonNull(raw json.RawMessage) json.RawMessage {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" || s == "{}" {
		return nil
	}
	return raw
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
