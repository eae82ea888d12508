package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"parrillas/internal/backend"
	"parrillas/internal/filestore"
	"parrillas/internal/model"
)

// Attachment is a file handed to an upload operation.
type Attachment struct {
	Name string
	Body io.Reader
}

func (s *Store) upload(ctx context.Context, bucket, path string, f Attachment, upsert bool) (string, error) {
	if s.files == nil {
		return "", ErrNoStorage
	}
	return s.files.Upload(ctx, bucket, path, f.Body, filestore.ContentType(f.Name), upsert)
}

// AddComment posts text on an item as the session user, uploading att first when
// given. The board is reloaded afterwards, which also refreshes an open detail view.
func (s *Store) AddComment(ctx context.Context, itemID, text string, att *Attachment) (model.Comment, error) {
	a, err := s.actor()
	if err != nil {
		return model.Comment{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" && att == nil {
		return model.Comment{}, errors.New("comment is empty")
	}

	var attachmentURL *string
	if att != nil {
		path := fmt.Sprintf("%s/%d-comment.%s", itemID, s.now().UnixMilli(), filestore.Ext(att.Name, "bin"))
		url, err := s.upload(ctx, filestore.BucketImages, path, *att, false)
		if err != nil {
			return model.Comment{}, s.fail("add_comment", fmt.Errorf("upload attachment: %w", err))
		}
		attachmentURL = &url
	}

	c, err := s.be.InsertComment(ctx, model.NewComment{
		ParrillaID:    itemID,
		Content:       text,
		AttachmentURL: attachmentURL,
		CreatedBy:     &a.UserID,
	})
	if err != nil {
		return model.Comment{}, s.fail("add_comment", fmt.Errorf("add comment: %w", err))
	}
	s.metrics.Operation("add_comment", nil)
	return c, s.FetchAll(ctx)
}

// AddImage uploads f and attaches it to the item, mirroring the new image locally
// without a reload. Items hold at most model.MaxImagesPerItem images.
func (s *Store) AddImage(ctx context.Context, itemID string, f Attachment) (model.Image, error) {
	a, err := s.actor()
	if err != nil {
		return model.Image{}, err
	}
	it, ok := s.State().FindItem(itemID)
	if !ok {
		return model.Image{}, backend.NotFoundError{Table: backend.TableItems, ID: itemID}
	}
	if len(it.Images) >= model.MaxImagesPerItem {
		return model.Image{}, fmt.Errorf("%w: %d per item", ErrImageLimit, model.MaxImagesPerItem)
	}

	path := fmt.Sprintf("%s/%d.%s", itemID, s.now().UnixMilli(), filestore.Ext(f.Name, "bin"))
	url, err := s.upload(ctx, filestore.BucketImages, path, f, false)
	if err != nil {
		return model.Image{}, s.fail("add_image", fmt.Errorf("upload image: %w", err))
	}
	caption := f.Name
	img, err := s.be.InsertImage(ctx, model.NewImage{
		ParrillaID: itemID,
		URL:        url,
		Caption:    &caption,
		OrderIndex: len(it.Images),
		UploadedBy: &a.UserID,
	})
	if err != nil {
		if rmErr := s.files.Remove(ctx, filestore.BucketImages, path); rmErr != nil {
			s.log.WithError(rmErr).WithField("path", path).Warn("removing orphaned upload failed")
		}
		return model.Image{}, s.fail("add_image", fmt.Errorf("add image: %w", err))
	}
	s.metrics.Operation("add_image", nil)
	s.dispatchStamped(func(rev uint64) Action {
		return ImageAdded{ItemID: itemID, Image: img, Rev: rev}
	})
	return img, nil
}

// DeleteImage removes the stored object when url lies in the images bucket, then the
// image row. Storage failures are logged and do not stop the row delete.
func (s *Store) DeleteImage(ctx context.Context, itemID, imageID, url string) error {
	if path, ok := filestore.PathFromURL(filestore.BucketImages, url); ok && s.files != nil {
		if err := s.files.Remove(ctx, filestore.BucketImages, path); err != nil {
			s.metrics.Operation("remove_object", err)
			s.log.WithError(err).WithField("path", path).Warn("removing image object failed")
		}
	}
	if err := s.be.DeleteImage(ctx, imageID); err != nil {
		return s.fail("delete_image", fmt.Errorf("delete image: %w", err))
	}
	s.metrics.Operation("delete_image", nil)
	s.dispatchStamped(func(rev uint64) Action {
		return ImageRemoved{ItemID: itemID, ImageID: imageID, Rev: rev}
	})
	return nil
}

// UploadAvatar stores f as the session user's profile photo and points the profile at it.
func (s *Store) UploadAvatar(ctx context.Context, f Attachment) (string, error) {
	a, err := s.actor()
	if err != nil {
		return "", err
	}
	path := fmt.Sprintf("%s-%d.%s", a.UserID, s.now().UnixMilli(), filestore.Ext(f.Name, "png"))
	url, err := s.upload(ctx, filestore.BucketAvatars, path, f, true)
	if err != nil {
		return "", s.fail("upload_avatar", fmt.Errorf("upload avatar: %w", err))
	}
	if err := s.UpdateProfile(ctx, model.ProfilePatch{AvatarURL: &url}); err != nil {
		return "", err
	}
	return url, nil
}
