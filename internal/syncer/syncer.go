// Package syncer keeps the store in step with row changes made by other clients.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"parrillas/internal/backend"
	"parrillas/internal/logging"
	"parrillas/internal/metrics"
	"parrillas/internal/model"
	"parrillas/internal/realtime"
	"parrillas/internal/store"
)

// Channel is the realtime channel name shared with the web client.
const Channel = "content-realtime"

// Bindings are the row changes the board reacts to.
var Bindings = []realtime.Binding{
	{Table: backend.TableItems, Event: realtime.Any},
	{Table: backend.TableComments, Event: realtime.Insert},
}

type Synchronizer struct {
	store   *store.Store
	feed    realtime.Feed
	log     *logrus.Entry
	metrics *metrics.Metrics
}

func New(s *store.Store, feed realtime.Feed, log logrus.FieldLogger, m *metrics.Metrics) *Synchronizer {
	return &Synchronizer{
		store:   s,
		feed:    feed,
		log:     logging.Component(log, "syncer"),
		metrics: m,
	}
}

// Run subscribes and applies events until ctx is done or the subscription closes.
// A reconnect triggers a full reload since events may have been missed meanwhile.
func (y *Synchronizer) Run(ctx context.Context) error {
	sub, err := y.feed.Subscribe(ctx, Channel, Bindings...)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}
	defer sub.Close()
	y.log.Debug("listening for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			return nil
		case <-sub.Reconnected():
			y.log.Info("feed reconnected, reloading board")
			if err := y.store.FetchAll(ctx); err != nil {
				y.log.WithError(err).Warn("reload after reconnect failed")
			}
		case e := <-sub.Events():
			if err := y.Handle(ctx, e); err != nil {
				y.log.WithError(err).WithFields(logrus.Fields{
					"table": e.Table,
					"type":  e.Type,
				}).Warn("dropping change")
			}
		}
	}
}

// Handle applies one change event to the store.
func (y *Synchronizer) Handle(ctx context.Context, e realtime.Event) error {
	y.metrics.RealtimeEvent(e.Table, string(e.Type))
	switch e.Table {
	case backend.TableItems:
		return y.handleItem(ctx, e)
	case backend.TableComments:
		if e.Type != realtime.Insert {
			return nil
		}
		return y.handleComment(ctx, e)
	}
	return nil
}

func (y *Synchronizer) handleItem(ctx context.Context, e realtime.Event) error {
	switch e.Type {
	case realtime.Insert:
		// The new row arrives without its relations; reload to join them.
		return y.store.FetchAll(ctx)
	case realtime.Update:
		var it model.ContentItem
		if err := e.DecodeNew(&it); err != nil {
			return fmt.Errorf("decode item: %w", err)
		}
		if strings.TrimSpace(it.ID) == "" {
			return errors.New("item update without id")
		}
		y.store.ApplyItemUpdate(it)
	case realtime.Delete:
		var old struct {
			ID string `json:"id"`
		}
		if err := e.DecodeOld(&old); err != nil {
			return fmt.Errorf("decode deleted item: %w", err)
		}
		if old.ID == "" {
			return errors.New("item delete without id")
		}
		y.store.RemoveItem(old.ID)
	}
	return nil
}

func (y *Synchronizer) handleComment(ctx context.Context, e realtime.Event) error {
	var c model.Comment
	if err := e.DecodeNew(&c); err != nil {
		return fmt.Errorf("decode comment: %w", err)
	}
	if c.CreatedBy == nil || *c.CreatedBy == "" {
		y.log.WithField("comment_id", c.ID).Debug("comment without author ignored")
		return nil
	}
	author := y.store.ResolveAuthor(ctx, *c.CreatedBy)
	y.store.ApplyComment(model.CommentWithAuthor{Comment: c, User: author})
	return nil
}
