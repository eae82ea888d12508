package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"parrillas/internal/backend"
	"parrillas/internal/model"
	"parrillas/internal/realtime"
)

func scanImage(s scanner) (model.Image, error) {
	var im model.Image
	var caption, by sql.NullString
	var created string
	if err := s.Scan(&im.ID, &im.ParrillaID, &im.URL, &caption, &im.OrderIndex, &by, &created); err != nil {
		return model.Image{}, err
	}
	im.Caption, im.UploadedBy = ptr(caption), ptr(by)
	im.CreatedAt = parseTime(created)
	return im, nil
}

func (d *DB) ListImages(ctx context.Context) ([]model.Image, error) {
	return readRows(ctx, d.db, `SELECT id, parrilla_id, image_url, caption, order_index, uploaded_by, created_at
		FROM parrilla_images ORDER BY order_index, created_at`, scanImage)
}

func (d *DB) InsertImage(ctx context.Context, in model.NewImage) (model.Image, error) {
	if strings.TrimSpace(in.URL) == "" {
		return model.Image{}, errors.New("image url is empty")
	}
	now, ts := d.stamp()
	im := model.Image{
		ID:         d.newID(),
		ParrillaID: in.ParrillaID,
		URL:        in.URL,
		Caption:    in.Caption,
		OrderIndex: in.OrderIndex,
		UploadedBy: in.UploadedBy,
		CreatedAt:  now,
	}
	if _, err := d.db.ExecContext(ctx, `INSERT INTO parrilla_images(id, parrilla_id, image_url, caption, order_index, uploaded_by, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		im.ID, im.ParrillaID, im.URL, null(im.Caption), im.OrderIndex, null(im.UploadedBy), ts); err != nil {
		return model.Image{}, err
	}
	d.publish(backend.TableImages, realtime.Insert, im, nil)
	return im, nil
}

func (d *DB) DeleteImage(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM parrilla_images WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := affected(res, backend.TableImages, id); err != nil {
		return err
	}
	d.publish(backend.TableImages, realtime.Delete, nil, map[string]string{"id": id})
	return nil
}

func scanComment(s scanner) (model.Comment, error) {
	var c model.Comment
	var img, att, by sql.NullString
	var created string
	if err := s.Scan(&c.ID, &c.ParrillaID, &img, &c.Content, &att, &by, &created); err != nil {
		return model.Comment{}, err
	}
	c.ImageID, c.AttachmentURL, c.CreatedBy = ptr(img), ptr(att), ptr(by)
	c.CreatedAt = parseTime(created)
	return c, nil
}

func (d *DB) ListComments(ctx context.Context) ([]model.Comment, error) {
	return readRows(ctx, d.db, `SELECT id, parrilla_id, image_id, content, attachment_url, created_by, created_at
		FROM parrilla_comments ORDER BY created_at DESC, rowid DESC`, scanComment)
}

func (d *DB) InsertComment(ctx context.Context, in model.NewComment) (model.Comment, error) {
	if strings.TrimSpace(in.Content) == "" && in.AttachmentURL == nil {
		return model.Comment{}, errors.New("comment is empty")
	}
	now, ts := d.stamp()
	c := model.Comment{
		ID:            d.newID(),
		ParrillaID:    in.ParrillaID,
		ImageID:       in.ImageID,
		Content:       in.Content,
		AttachmentURL: in.AttachmentURL,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     now,
	}
	if _, err := d.db.ExecContext(ctx, `INSERT INTO parrilla_comments(id, parrilla_id, image_id, content, attachment_url, created_by, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ParrillaID, null(c.ImageID), c.Content, null(c.AttachmentURL), null(c.CreatedBy), ts); err != nil {
		return model.Comment{}, err
	}
	d.publish(backend.TableComments, realtime.Insert, c, nil)
	return c, nil
}
