package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"parrillas/internal/backend"
	"parrillas/internal/model"
	"parrillas/internal/realtime"
)

const itemColumns = `id, title, description, status_id, client_id, due_date, priority, created_by, created_at, updated_at`

func scanItem(s scanner) (model.ContentItem, error) {
	var it model.ContentItem
	var desc, due, by sql.NullString
	var prio, created, updated string
	if err := s.Scan(&it.ID, &it.Title, &desc, &it.StatusID, &it.ClientID, &due, &prio, &by, &created, &updated); err != nil {
		return model.ContentItem{}, err
	}
	it.Description, it.DueDate, it.CreatedBy = ptr(desc), ptr(due), ptr(by)
	it.Priority = model.Priority(prio)
	it.CreatedAt, it.UpdatedAt = parseTime(created), parseTime(updated)
	return it, nil
}

func (d *DB) ListContentItems(ctx context.Context) ([]model.ContentItem, error) {
	return readRows(ctx, d.db, `SELECT `+itemColumns+` FROM parrillas ORDER BY created_at DESC, rowid DESC`, scanItem)
}

func (d *DB) InsertContentItem(ctx context.Context, in model.NewContentItem) (model.ContentItem, error) {
	if strings.TrimSpace(in.Title) == "" {
		return model.ContentItem{}, errors.New("title is empty")
	}
	prio := in.Priority
	if prio == "" {
		prio = model.PriorityMedium
	}
	now, ts := d.stamp()
	it := model.ContentItem{
		ID:          d.newID(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		StatusID:    in.StatusID,
		ClientID:    in.ClientID,
		DueDate:     in.DueDate,
		Priority:    prio,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := d.db.ExecContext(ctx, `INSERT INTO parrillas(`+itemColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.Title, null(it.Description), it.StatusID, it.ClientID, null(it.DueDate), string(it.Priority), null(it.CreatedBy), ts, ts); err != nil {
		return model.ContentItem{}, err
	}
	d.publish(backend.TableItems, realtime.Insert, it, nil)
	return it, nil
}

func (d *DB) UpdateContentItem(ctx context.Context, id string, patch model.ContentItemPatch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	now, ts := d.stamp()
	names := make([]string, 0, len(cols))
	for k := range cols {
		names = append(names, k)
	}
	sort.Strings(names)
	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+2)
	for _, k := range names {
		sets = append(sets, k+" = ?")
		args = append(args, cols[k])
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, ts, id)

	var next model.ContentItem
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE parrillas SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
		if err != nil {
			return err
		}
		if err := affected(res, backend.TableItems, id); err != nil {
			return err
		}
		next, err = scanItem(tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM parrillas WHERE id = ?`, id))
		return err
	})
	if err != nil {
		return err
	}
	next.UpdatedAt = now
	d.publish(backend.TableItems, realtime.Update, next, map[string]string{"id": id})
	return nil
}

func (d *DB) DeleteContentItem(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM parrillas WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := affected(res, backend.TableItems, id); err != nil {
		return err
	}
	d.publish(backend.TableItems, realtime.Delete, nil, map[string]string{"id": id})
	return nil
}

func (d *DB) ListAssignees(ctx context.Context) ([]model.Assignee, error) {
	return readRows(ctx, d.db, `SELECT parrilla_id, user_id, assigned_at FROM parrilla_assignees ORDER BY assigned_at, rowid`,
		func(s scanner) (model.Assignee, error) {
			var a model.Assignee
			var at string
			if err := s.Scan(&a.ParrillaID, &a.UserID, &at); err != nil {
				return model.Assignee{}, err
			}
			a.AssignedAt = parseTime(at)
			return a, nil
		})
}

func (d *DB) ListItemLabels(ctx context.Context) ([]model.ItemLabel, error) {
	return readRows(ctx, d.db, `SELECT parrilla_id, label_id FROM parrilla_labels ORDER BY rowid`,
		func(s scanner) (model.ItemLabel, error) {
			var l model.ItemLabel
			err := s.Scan(&l.ParrillaID, &l.LabelID)
			return l, err
		})
}

// junctionPlan decides, inside the write transaction, which ids to add and remove.
type junctionPlan func(tx *sql.Tx) (add, remove []string, err error)

func addOnly(ids []string) junctionPlan {
	return func(*sql.Tx) ([]string, []string, error) { return ids, nil, nil }
}

// toExactly diffs the stored ids read by query against desired.
func toExactly(ctx context.Context, query, itemID string, desired []string) junctionPlan {
	return func(tx *sql.Tx) ([]string, []string, error) {
		current, err := txStrings(ctx, tx, query, itemID)
		if err != nil {
			return nil, nil, err
		}
		add, remove := backend.Diff(current, desired)
		return add, remove, nil
	}
}

func txStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) InsertAssignees(ctx context.Context, itemID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return d.writeAssignees(ctx, itemID, addOnly(userIDs))
}

// SetAssignees makes userIDs the item's exact assignee set. The stored rows are read
// and diffed in the same transaction that applies the change.
func (d *DB) SetAssignees(ctx context.Context, itemID string, userIDs []string) error {
	return d.writeAssignees(ctx, itemID,
		toExactly(ctx, `SELECT user_id FROM parrilla_assignees WHERE parrilla_id = ? ORDER BY rowid`, itemID, userIDs))
}

func (d *DB) writeAssignees(ctx context.Context, itemID string, plan junctionPlan) error {
	_, ts := d.stamp()
	var added, removed []string
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		added, removed = nil, nil
		add, remove, err := plan(tx)
		if err != nil {
			return err
		}
		for _, uid := range remove {
			res, err := tx.ExecContext(ctx, `DELETE FROM parrilla_assignees WHERE parrilla_id = ? AND user_id = ?`, itemID, uid)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				removed = append(removed, uid)
			}
		}
		for _, uid := range add {
			res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO parrilla_assignees(parrilla_id, user_id, assigned_at) VALUES(?, ?, ?)`, itemID, uid, ts)
			if err != nil {
				return fmt.Errorf("assign %s: %w", uid, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added = append(added, uid)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, uid := range removed {
		d.publish(backend.TableAssignees, realtime.Delete, nil, model.Assignee{ParrillaID: itemID, UserID: uid})
	}
	for _, uid := range added {
		d.publish(backend.TableAssignees, realtime.Insert, model.Assignee{ParrillaID: itemID, UserID: uid, AssignedAt: parseTime(ts)}, nil)
	}
	return nil
}

func (d *DB) InsertItemLabels(ctx context.Context, itemID string, labelIDs []string) error {
	if len(labelIDs) == 0 {
		return nil
	}
	return d.writeItemLabels(ctx, itemID, addOnly(labelIDs))
}

func (d *DB) SetItemLabels(ctx context.Context, itemID string, labelIDs []string) error {
	return d.writeItemLabels(ctx, itemID,
		toExactly(ctx, `SELECT label_id FROM parrilla_labels WHERE parrilla_id = ? ORDER BY rowid`, itemID, labelIDs))
}

func (d *DB) writeItemLabels(ctx context.Context, itemID string, plan junctionPlan) error {
	var added, removed []string
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		added, removed = nil, nil
		add, remove, err := plan(tx)
		if err != nil {
			return err
		}
		for _, lid := range remove {
			res, err := tx.ExecContext(ctx, `DELETE FROM parrilla_labels WHERE parrilla_id = ? AND label_id = ?`, itemID, lid)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				removed = append(removed, lid)
			}
		}
		for _, lid := range add {
			res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO parrilla_labels(parrilla_id, label_id) VALUES(?, ?)`, itemID, lid)
			if err != nil {
				return fmt.Errorf("label %s: %w", lid, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added = append(added, lid)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, lid := range removed {
		d.publish(backend.TableItemLabels, realtime.Delete, nil, model.ItemLabel{ParrillaID: itemID, LabelID: lid})
	}
	for _, lid := range added {
		d.publish(backend.TableItemLabels, realtime.Insert, model.ItemLabel{ParrillaID: itemID, LabelID: lid}, nil)
	}
	return nil
}
