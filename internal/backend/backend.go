// Package backend declares the relational data service the board talks to.
// Implementations live in backend/sqlite (local) and backend/postgres (Supabase).
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"parrillas/internal/model"
)

const (
	TableUserProfiles  = "user_profiles"
	TableClients       = "clients"
	TableStatuses      = "statuses"
	TableLabels        = "labels"
	TableItems         = "parrillas"
	TableAssignees     = "parrilla_assignees"
	TableItemLabels    = "parrilla_labels"
	TableImages        = "parrilla_images"
	TableComments      = "parrilla_comments"
	TableNotifications = "notifications"
	TableSettings      = "agency_settings"
)

var ErrNotFound = errors.New("not found")

type NotFoundError struct {
	Table string
	ID    string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Table, e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

type Catalog interface {
	ListClients(ctx context.Context) ([]model.Client, error)
	InsertClient(ctx context.Context, c model.NewClient) (model.Client, error)
	DeleteClient(ctx context.Context, id string) error
	// ListStatuses returns statuses ordered by order_index.
	ListStatuses(ctx context.Context) ([]model.Status, error)
	ListLabels(ctx context.Context) ([]model.Label, error)
}

type Profiles interface {
	ListUsers(ctx context.Context) ([]model.UserProfile, error)
	GetUser(ctx context.Context, id string) (model.UserProfile, error)
	UpsertUser(ctx context.Context, u model.UserProfile) (model.UserProfile, error)
	UpdateUser(ctx context.Context, id string, patch model.ProfilePatch) error
}

type Items interface {
	// ListContentItems returns items newest first.
	ListContentItems(ctx context.Context) ([]model.ContentItem, error)
	InsertContentItem(ctx context.Context, in model.NewContentItem) (model.ContentItem, error)
	UpdateContentItem(ctx context.Context, id string, patch model.ContentItemPatch) error
	DeleteContentItem(ctx context.Context, id string) error
}

type Junctions interface {
	ListAssignees(ctx context.Context) ([]model.Assignee, error)
	ListItemLabels(ctx context.Context) ([]model.ItemLabel, error)
	InsertAssignees(ctx context.Context, itemID string, userIDs []string) error
	InsertItemLabels(ctx context.Context, itemID string, labelIDs []string) error
	// SetAssignees replaces the item's assignees with exactly userIDs. The stored
	// rows are read, diffed and rewritten in one transaction.
	SetAssignees(ctx context.Context, itemID string, userIDs []string) error
	SetItemLabels(ctx context.Context, itemID string, labelIDs []string) error
}

type Media interface {
	// ListImages returns images ordered by order_index.
	ListImages(ctx context.Context) ([]model.Image, error)
	InsertImage(ctx context.Context, in model.NewImage) (model.Image, error)
	DeleteImage(ctx context.Context, id string) error
}

type Comments interface {
	// ListComments returns comments newest first.
	ListComments(ctx context.Context) ([]model.Comment, error)
	InsertComment(ctx context.Context, in model.NewComment) (model.Comment, error)
}

type Notifications interface {
	// ListNotifications returns at most limit notifications for userID, newest first.
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	InsertNotification(ctx context.Context, in model.NewNotification) (model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}

type Settings interface {
	GetSetting(ctx context.Context, key string) (model.Setting, error)
	UpsertSetting(ctx context.Context, key string, value json.RawMessage) error
}

type Backend interface {
	Catalog
	Profiles
	Items
	Junctions
	Media
	Comments
	Notifications
	Settings
	Close() error
}

// Diff returns the ids to add and remove to turn current into desired.
// Both results keep the order of their source slice and contain no duplicates.
func Diff(current, desired []string) (add, remove []string) {
	have := make(map[string]bool, len(current))
	for _, id := range current {
		have[id] = true
	}
	want := make(map[string]bool, len(desired))
	for _, id := range desired {
		if want[id] {
			continue
		}
		want[id] = true
		if !have[id] {
			add = append(add, id)
		}
	}
	seen := map[string]bool{}
	for _, id := range current {
		if !want[id] && !seen[id] {
			seen[id] = true
			remove = append(remove, id)
		}
	}
	return add, remove
}
