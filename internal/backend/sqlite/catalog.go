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

func scanClient(s scanner) (model.Client, error) {
	var c model.Client
	var email, phone, by sql.NullString
	var created, updated string
	if err := s.Scan(&c.ID, &c.Name, &c.Color, &email, &phone, &by, &created, &updated); err != nil {
		return model.Client{}, err
	}
	c.ContactEmail, c.ContactPhone, c.CreatedBy = ptr(email), ptr(phone), ptr(by)
	c.CreatedAt, c.UpdatedAt = parseTime(created), parseTime(updated)
	return c, nil
}

func (d *DB) ListClients(ctx context.Context) ([]model.Client, error) {
	return readRows(ctx, d.db, `SELECT id, name, color, contact_email, contact_phone, created_by, created_at, updated_at
		FROM clients ORDER BY name COLLATE NOCASE`, scanClient)
}

func (d *DB) InsertClient(ctx context.Context, in model.NewClient) (model.Client, error) {
	if strings.TrimSpace(in.Name) == "" {
		return model.Client{}, errors.New("client name is empty")
	}
	now, ts := d.stamp()
	c := model.Client{
		ID:           d.newID(),
		Name:         strings.TrimSpace(in.Name),
		Color:        in.Color,
		ContactEmail: in.ContactEmail,
		ContactPhone: in.ContactPhone,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := d.db.ExecContext(ctx, `INSERT INTO clients(id, name, color, contact_email, contact_phone, created_by, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Color, null(c.ContactEmail), null(c.ContactPhone), null(c.CreatedBy), ts, ts); err != nil {
		return model.Client{}, err
	}
	d.publish(backend.TableClients, realtime.Insert, c, nil)
	return c, nil
}

func (d *DB) DeleteClient(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := affected(res, backend.TableClients, id); err != nil {
		return err
	}
	d.publish(backend.TableClients, realtime.Delete, nil, map[string]string{"id": id})
	return nil
}

func scanStatus(s scanner) (model.Status, error) {
	var st model.Status
	var icon sql.NullString
	var created string
	if err := s.Scan(&st.ID, &st.Name, &st.Color, &icon, &st.OrderIndex, &created); err != nil {
		return model.Status{}, err
	}
	st.Icon = ptr(icon)
	st.CreatedAt = parseTime(created)
	return st, nil
}

func (d *DB) ListStatuses(ctx context.Context) ([]model.Status, error) {
	return readRows(ctx, d.db, `SELECT id, name, color, icon, order_index, created_at FROM statuses ORDER BY order_index, id`, scanStatus)
}

func scanLabel(s scanner) (model.Label, error) {
	var l model.Label
	var created string
	if err := s.Scan(&l.ID, &l.Name, &l.Color, &created); err != nil {
		return model.Label{}, err
	}
	l.CreatedAt = parseTime(created)
	return l, nil
}

func (d *DB) ListLabels(ctx context.Context) ([]model.Label, error) {
	return readRows(ctx, d.db, `SELECT id, name, color, created_at FROM labels ORDER BY name`, scanLabel)
}

func scanUser(s scanner) (model.UserProfile, error) {
	var u model.UserProfile
	var avatar, prefs sql.NullString
	var role, created, updated string
	if err := s.Scan(&u.ID, &u.FullName, &role, &avatar, &prefs, &created, &updated); err != nil {
		return model.UserProfile{}, err
	}
	u.Role = model.Role(role)
	u.AvatarURL = ptr(avatar)
	if prefs.Valid && prefs.String != "" {
		var p model.Preferences
		if err := json.Unmarshal([]byte(prefs.String), &p); err == nil {
			u.Preferences = &p
		}
	}
	u.CreatedAt, u.UpdatedAt = parseTime(created), parseTime(updated)
	return u, nil
}

const userColumns = `id, full_name, role, avatar_url, preferences, created_at, updated_at`

func (d *DB) ListUsers(ctx context.Context) ([]model.UserProfile, error) {
	return readRows(ctx, d.db, `SELECT `+userColumns+` FROM user_profiles ORDER BY full_name COLLATE NOCASE`, scanUser)
}

func (d *DB) GetUser(ctx context.Context, id string) (model.UserProfile, error) {
	u, err := scanUser(d.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM user_profiles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserProfile{}, backend.NotFoundError{Table: backend.TableUserProfiles, ID: id}
	}
	return u, err
}

func marshalPrefs(p *model.Preferences) any {
	if p == nil {
		return nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return string(b)
}

func (d *DB) UpsertUser(ctx context.Context, u model.UserProfile) (model.UserProfile, error) {
	if _, err := model.ParseRole(string(u.Role)); err != nil {
		return model.UserProfile{}, err
	}
	now, ts := d.stamp()
	if strings.TrimSpace(u.ID) == "" {
		u.ID = d.newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if _, err := d.db.ExecContext(ctx, `INSERT INTO user_profiles(`+userColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET full_name = excluded.full_name, role = excluded.role,
			avatar_url = excluded.avatar_url, preferences = excluded.preferences, updated_at = excluded.updated_at`,
		u.ID, u.FullName, string(u.Role), null(u.AvatarURL), marshalPrefs(u.Preferences),
		u.CreatedAt.UTC().Format(timeLayout), ts); err != nil {
		return model.UserProfile{}, err
	}
	d.publish(backend.TableUserProfiles, realtime.Insert, u, nil)
	return u, nil
}

func (d *DB) UpdateUser(ctx context.Context, id string, patch model.ProfilePatch) error {
	var next model.UserProfile
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM user_profiles WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return backend.NotFoundError{Table: backend.TableUserProfiles, ID: id}
		}
		if err != nil {
			return err
		}
		now, ts := d.stamp()
		next = patch.Apply(cur)
		next.UpdatedAt = now
		_, err = tx.ExecContext(ctx, `UPDATE user_profiles SET full_name = ?, avatar_url = ?, preferences = ?, updated_at = ? WHERE id = ?`,
			next.FullName, null(next.AvatarURL), marshalPrefs(next.Preferences), ts, id)
		return err
	})
	if err != nil {
		return err
	}
	d.publish(backend.TableUserProfiles, realtime.Update, next, map[string]string{"id": id})
	return nil
}
