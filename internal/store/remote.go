package store

import (
	"context"

	"parrillas/internal/model"
)

// Changes reported by the realtime feed are authoritative: each one is stamped with a
// fresh revision so a fetch that started earlier cannot undo it.

// ApplyItemUpdate overwrites the item's own columns, keeping its joined relations.
func (s *Store) ApplyItemUpdate(it model.ContentItem) {
	s.dispatchStamped(func(rev uint64) Action {
		return ItemFieldsPatched{Item: it, Rev: rev}
	})
}

// RemoveItem drops an item deleted elsewhere, closing its detail view if open.
func (s *Store) RemoveItem(id string) {
	s.Dispatch(ItemRemoved{ID: id})
}

// ApplyComment prepends a hydrated comment to its item. A comment id already
// present is ignored.
func (s *Store) ApplyComment(c model.CommentWithAuthor) {
	s.dispatchStamped(func(rev uint64) Action {
		return CommentInserted{Comment: c, Rev: rev}
	})
}

// ResolveAuthor finds a profile in the loaded users, then asks the backend, and
// finally falls back to a placeholder.
func (s *Store) ResolveAuthor(ctx context.Context, userID string) model.UserProfile {
	if u, ok := s.State().FindUser(userID); ok {
		return u
	}
	u, err := s.be.GetUser(ctx, userID)
	if err == nil {
		return u
	}
	s.log.WithError(err).WithField("user_id", userID).Debug("author lookup failed, using placeholder")
	return PlaceholderAuthor(userID, s.now())
}
