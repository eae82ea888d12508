package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"parrillas/internal/backend"
	"parrillas/internal/model"
)

// CreateContentItem inserts an item owned by the session user, then links assignees
// and labels. Link failures are logged and left in place; the item stays created.
func (s *Store) CreateContentItem(ctx context.Context, in model.NewContentItem, assigneeIDs, labelIDs []string) (model.ContentItem, error) {
	a, err := s.actor()
	if err != nil {
		return model.ContentItem{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.CreatedBy = &a.UserID
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if err := model.Validate(in); err != nil {
		return model.ContentItem{}, s.fail("create_item", err)
	}

	created, err := s.be.InsertContentItem(ctx, in)
	if err != nil {
		return model.ContentItem{}, s.fail("create_item", fmt.Errorf("create item: %w", err))
	}
	log := s.log.WithField("item_id", created.ID)
	if len(assigneeIDs) > 0 {
		if err := s.be.InsertAssignees(ctx, created.ID, assigneeIDs); err != nil {
			s.metrics.Operation("insert_assignees", err)
			log.WithError(err).Warn("adding assignees failed")
		}
	}
	if len(labelIDs) > 0 {
		if err := s.be.InsertItemLabels(ctx, created.ID, labelIDs); err != nil {
			s.metrics.Operation("insert_labels", err)
			log.WithError(err).Warn("adding labels failed")
		}
	}
	s.metrics.Operation("create_item", nil)
	log.Info("item created")

	err = s.FetchAll(ctx)
	s.Dispatch(CreateClosed{})
	return created, err
}

// UpdateFields writes patch and reloads the board.
func (s *Store) UpdateFields(ctx context.Context, id string, patch model.ContentItemPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	if patch.Priority != nil {
		if _, err := model.ParsePriority(string(*patch.Priority)); err != nil {
			return s.fail("update_item", err)
		}
	}
	if err := s.be.UpdateContentItem(ctx, id, patch); err != nil {
		return s.fail("update_item", fmt.Errorf("update item: %w", err))
	}
	s.metrics.Operation("update_item", nil)
	return s.FetchAll(ctx)
}

// UpdateStatus moves an item to statusID at once and confirms with the backend.
// On failure the previous status comes back unless something newer has touched the
// item since. Until the write settles, loads keep the moved card. Success does not
// reload.
func (s *Store) UpdateStatus(ctx context.Context, id, statusID string) error {
	st := s.State()
	it, ok := st.FindItem(id)
	if !ok {
		return backend.NotFoundError{Table: backend.TableItems, ID: id}
	}
	if len(st.Statuses) > 0 {
		if _, ok := st.FindStatus(statusID); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownStatus, statusID)
		}
	}
	prev := it.StatusID
	if prev == statusID {
		return nil
	}

	_, rev := s.dispatchStamped(func(rev uint64) Action {
		return StatusChanged{ID: id, StatusID: statusID, Rev: rev}
	})
	err := s.be.UpdateContentItem(ctx, id, model.ContentItemPatch{StatusID: &statusID})
	s.metrics.Operation("update_status", err)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"item_id": id,
			"from":    prev,
			"to":      statusID,
		}).Warn("status update failed, rolling back")
		s.metrics.Rollback()
		s.Dispatch(StatusReverted{ID: id, StatusID: prev, Rev: rev})
		return fmt.Errorf("update status: %w", err)
	}
	s.dispatchStamped(func(seen uint64) Action {
		return StatusConfirmed{ID: id, Rev: rev, Seen: seen}
	})
	return nil
}

// UpdateAssignees makes userIDs the item's exact assignee set. The backend diffs
// against its stored rows, so assignments made by other sessions since the last
// fetch are replaced too.
func (s *Store) UpdateAssignees(ctx context.Context, id string, userIDs []string) error {
	if _, ok := s.State().FindItem(id); !ok {
		return backend.NotFoundError{Table: backend.TableItems, ID: id}
	}
	if err := s.be.SetAssignees(ctx, id, userIDs); err != nil {
		return s.fail("update_assignees", fmt.Errorf("update assignees: %w", err))
	}
	s.metrics.Operation("update_assignees", nil)
	return s.FetchAll(ctx)
}

func (s *Store) UpdateLabels(ctx context.Context, id string, labelIDs []string) error {
	if _, ok := s.State().FindItem(id); !ok {
		return backend.NotFoundError{Table: backend.TableItems, ID: id}
	}
	if err := s.be.SetItemLabels(ctx, id, labelIDs); err != nil {
		return s.fail("update_labels", fmt.Errorf("update labels: %w", err))
	}
	s.metrics.Operation("update_labels", nil)
	return s.FetchAll(ctx)
}

func (s *Store) DeleteContentItem(ctx context.Context, id string) error {
	if err := s.be.DeleteContentItem(ctx, id); err != nil {
		return s.fail("delete_item", fmt.Errorf("delete item: %w", err))
	}
	s.metrics.Operation("delete_item", nil)
	s.log.WithField("item_id", id).Info("item deleted")
	return s.FetchAll(ctx)
}
