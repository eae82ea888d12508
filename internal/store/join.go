package store

import (
	"time"

	"parrillas/internal/model"
)

// Rows is one consistent read of every table the board joins.
type Rows struct {
	Items      []model.ContentItem
	Clients    []model.Client
	Statuses   []model.Status
	Labels     []model.Label
	Users      []model.UserProfile
	Assignees  []model.Assignee
	ItemLabels []model.ItemLabel
	Images     []model.Image
	Comments   []model.Comment
}

// PlaceholderAuthor stands in for a comment author whose profile is unavailable.
func PlaceholderAuthor(userID string, now time.Time) model.UserProfile {
	return model.UserProfile{
		ID:        userID,
		FullName:  "Usuario",
		Role:      model.RoleDesigner,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Join builds the denormalized items. Item order, image order and comment order
// follow the order of the input rows.
func Join(r Rows, now time.Time) []model.ContentItemWithRelations {
	clients := make(map[string]model.Client, len(r.Clients))
	for _, c := range r.Clients {
		clients[c.ID] = c
	}
	statuses := make(map[string]model.Status, len(r.Statuses))
	for _, st := range r.Statuses {
		statuses[st.ID] = st
	}
	users := make(map[string]model.UserProfile, len(r.Users))
	for _, u := range r.Users {
		users[u.ID] = u
	}
	labels := make(map[string]model.Label, len(r.Labels))
	for _, l := range r.Labels {
		labels[l.ID] = l
	}

	assignees := map[string][]model.UserProfile{}
	for _, a := range r.Assignees {
		if u, ok := users[a.UserID]; ok {
			assignees[a.ParrillaID] = append(assignees[a.ParrillaID], u)
		}
	}
	itemLabels := map[string][]model.Label{}
	for _, il := range r.ItemLabels {
		if l, ok := labels[il.LabelID]; ok {
			itemLabels[il.ParrillaID] = append(itemLabels[il.ParrillaID], l)
		}
	}
	images := map[string][]model.Image{}
	for _, img := range r.Images {
		images[img.ParrillaID] = append(images[img.ParrillaID], img)
	}
	comments := map[string][]model.CommentWithAuthor{}
	for _, c := range r.Comments {
		cw := model.CommentWithAuthor{Comment: c}
		if c.CreatedBy != nil {
			if u, ok := users[*c.CreatedBy]; ok {
				cw.User = u
			} else {
				cw.User = PlaceholderAuthor(*c.CreatedBy, now)
			}
		}
		comments[c.ParrillaID] = append(comments[c.ParrillaID], cw)
	}

	out := make([]model.ContentItemWithRelations, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, model.ContentItemWithRelations{
			ContentItem: it,
			Client:      clients[it.ClientID],
			Status:      statuses[it.StatusID],
			Assignees:   nonNil(assignees[it.ID]),
			Labels:      nonNil(itemLabels[it.ID]),
			Images:      nonNil(images[it.ID]),
			Comments:    nonNil(comments[it.ID]),
		})
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
