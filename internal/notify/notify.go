// Package notify keeps the session user's notification inbox and raises alerts for
// new entries as they arrive.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"parrillas/internal/auth"
	"parrillas/internal/backend"
	"parrillas/internal/logging"
	"parrillas/internal/metrics"
	"parrillas/internal/model"
	"parrillas/internal/realtime"
	"parrillas/internal/store"
)

const (
	Channel = "notifications"
	// Limit is how many recent notifications the inbox holds.
	Limit = 50
)

// Snapshot is the inbox as last loaded, newest first.
type Snapshot struct {
	Items  []model.Notification `json:"notifications"`
	Unread int                  `json:"unread_count"`
}

type Center struct {
	store   *store.Store
	feed    realtime.Feed
	cue     Cue
	desktop Desktop
	toaster Toaster
	log     *logrus.Entry
	metrics *metrics.Metrics

	mu    sync.Mutex
	items []model.Notification
}

type Option func(*Center)

func WithCue(c Cue) Option { return func(n *Center) { n.cue = c } }

func WithDesktop(d Desktop) Option { return func(n *Center) { n.desktop = d } }

func WithToaster(t Toaster) Option { return func(n *Center) { n.toaster = t } }

func WithLogger(l logrus.FieldLogger) Option {
	return func(n *Center) { n.log = logging.Component(l, "notify") }
}

func WithMetrics(m *metrics.Metrics) Option { return func(n *Center) { n.metrics = m } }

// New builds a center over the store's backend and session. feed may be nil when
// live alerts are not wanted.
func New(s *store.Store, feed realtime.Feed, opts ...Option) *Center {
	c := &Center{store: s, feed: feed, items: []model.Notification{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.Component(logging.Discard(), "notify")
	}
	return c
}

func (c *Center) be() backend.Notifications { return c.store.Backend() }

func (c *Center) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := append([]model.Notification(nil), c.items...)
	return Snapshot{Items: items, Unread: countUnread(items)}
}

func (c *Center) Unread() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return countUnread(c.items)
}

func countUnread(items []model.Notification) int {
	n := 0
	for _, it := range items {
		if !it.IsRead {
			n++
		}
	}
	return n
}

// Fetch reloads the most recent notifications of the session user.
func (c *Center) Fetch(ctx context.Context) error {
	a, err := auth.Require(c.store.Session())
	if err != nil {
		return err
	}
	items, err := c.be().ListNotifications(ctx, a.UserID, Limit)
	c.metrics.Operation("fetch_notifications", err)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}
	if items == nil {
		items = []model.Notification{}
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

func (c *Center) MarkRead(ctx context.Context, id string) error {
	if _, err := auth.Require(c.store.Session()); err != nil {
		return err
	}
	err := c.be().MarkNotificationRead(ctx, id)
	c.metrics.Operation("mark_read", err)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].IsRead = true
		}
	}
	c.mu.Unlock()
	return nil
}

func (c *Center) MarkAllRead(ctx context.Context) error {
	a, err := auth.Require(c.store.Session())
	if err != nil {
		return err
	}
	err = c.be().MarkAllNotificationsRead(ctx, a.UserID)
	c.metrics.Operation("mark_all_read", err)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	c.mu.Lock()
	for i := range c.items {
		c.items[i].IsRead = true
	}
	c.mu.Unlock()
	return nil
}

// Send delivers a notification to another user.
func (c *Center) Send(ctx context.Context, in model.NewNotification) (model.Notification, error) {
	if _, err := auth.Require(c.store.Session()); err != nil {
		return model.Notification{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Type == "" {
		in.Type = model.NotificationInfo
	}
	if err := model.Validate(in); err != nil {
		return model.Notification{}, err
	}
	n, err := c.be().InsertNotification(ctx, in)
	c.metrics.Operation("send_notification", err)
	if err != nil {
		return model.Notification{}, fmt.Errorf("send notification: %w", err)
	}
	return n, nil
}

// Bindings returns the feed bindings for userID's inbox.
func Bindings(userID string) []realtime.Binding {
	return []realtime.Binding{{
		Table:  backend.TableNotifications,
		Event:  realtime.Insert,
		Filter: "user_id=eq." + userID,
	}}
}

// Run loads the inbox, then alerts on every notification addressed to the session
// user until ctx is done.
func (c *Center) Run(ctx context.Context) error {
	a, err := auth.Require(c.store.Session())
	if err != nil {
		return err
	}
	if c.feed == nil {
		return errors.New("notifications: no realtime feed")
	}
	if err := c.Fetch(ctx); err != nil {
		c.log.WithError(err).Warn("initial notification load failed")
	}
	sub, err := c.feed.Subscribe(ctx, Channel, Bindings(a.UserID)...)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			return nil
		case <-sub.Reconnected():
			if err := c.Fetch(ctx); err != nil {
				c.log.WithError(err).Warn("notification reload failed")
			}
		case e := <-sub.Events():
			if err := c.Handle(ctx, e); err != nil {
				c.log.WithError(err).Warn("dropping notification event")
			}
		}
	}
}

// Handle raises alerts for one inserted notification, then refreshes the inbox.
// Alerts are skipped when the user turned notifications off; the inbox still refreshes.
func (c *Center) Handle(ctx context.Context, e realtime.Event) error {
	var n model.Notification
	if err := e.DecodeNew(&n); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	c.metrics.RealtimeEvent(e.Table, string(e.Type))
	log := c.log.WithField("notification_id", n.ID)

	if c.enabled() {
		c.metrics.Notification()
		if c.cue != nil {
			if err := c.cue.Play(); err != nil {
				log.WithError(err).Debug("cue failed")
			}
		}
		if c.desktop != nil && c.desktop.Permitted() {
			if err := c.desktop.Notify(ctx, n); err != nil {
				log.WithError(err).Debug("desktop notification failed")
			}
		}
		if c.toaster != nil {
			c.toaster.Toast(n)
		}
	} else {
		log.Debug("alerts disabled by preferences")
	}
	return c.Fetch(ctx)
}

func (c *Center) enabled() bool {
	u := c.store.State().CurrentUser
	if u == nil {
		return true
	}
	return u.Preferences.NotificationsEnabled()
}
