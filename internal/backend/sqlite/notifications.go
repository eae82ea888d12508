package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"parrillas/internal/backend"
	"parrillas/internal/model"
	"parrillas/internal/realtime"
)

func scanNotification(s scanner) (model.Notification, error) {
	var n model.Notification
	var link sql.NullString
	var typ, created string
	var read int
	if err := s.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &link, &read, &created); err != nil {
		return model.Notification{}, err
	}
	n.Type = model.NotificationType(typ)
	n.Link = ptr(link)
	n.IsRead = read != 0
	n.CreatedAt = parseTime(created)
	return n, nil
}

func (d *DB) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	return readRows(ctx, d.db, `SELECT id, user_id, title, message, type, link, is_read, created_at
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, scanNotification, userID, limit)
}

func (d *DB) InsertNotification(ctx context.Context, in model.NewNotification) (model.Notification, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return model.Notification{}, errors.New("notification user is empty")
	}
	typ := in.Type
	if typ == "" {
		typ = model.NotificationInfo
	}
	now, ts := d.stamp()
	n := model.Notification{
		ID:        d.newID(),
		UserID:    in.UserID,
		Title:     in.Title,
		Message:   in.Message,
		Type:      typ,
		Link:      in.Link,
		CreatedAt: now,
	}
	if _, err := d.db.ExecContext(ctx, `INSERT INTO notifications(id, user_id, title, message, type, link, is_read, created_at)
		VALUES(?, ?, ?, ?, ?, ?, 0, ?)`,
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), null(n.Link), ts); err != nil {
		return model.Notification{}, err
	}
	d.publish(backend.TableNotifications, realtime.Insert, n, nil)
	return n, nil
}

func (d *DB) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res, backend.TableNotifications, id)
}

func (d *DB) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := d.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	return err
}

func (d *DB) GetSetting(ctx context.Context, key string) (model.Setting, error) {
	var s model.Setting
	var value, updated string
	err := d.db.QueryRowContext(ctx, `SELECT key, value, updated_at FROM agency_settings WHERE key = ?`, key).Scan(&s.Key, &value, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Setting{}, backend.NotFoundError{Table: backend.TableSettings, ID: key}
	}
	if err != nil {
		return model.Setting{}, err
	}
	s.Value = json.RawMessage(value)
	s.UpdatedAt = parseTime(updated)
	return s, nil
}

func (d *DB) UpsertSetting(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return errors.New("setting value is not valid JSON")
	}
	_, ts := d.stamp()
	_, err := d.db.ExecContext(ctx, `INSERT INTO agency_settings(key, value, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, string(value), ts)
	return err
}
