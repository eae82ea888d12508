// Package board derives the views the UI renders from store state: filtered item
// lists, kanban columns, calendar cells and the dashboard summary. Everything here
// is pure and cheap enough to call on every render.
package board

import (
	"strings"

	"parrillas/internal/model"
	"parrillas/internal/statusutil"
)

// Filters narrows the item list. Empty fields are inactive.
type Filters struct {
	ClientID string `json:"client_id,omitempty"`
	Date     string `json:"date,omitempty"`
	Role     string `json:"role,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Search   string `json:"search,omitempty"`
}

func (f Filters) Active() bool {
	return f != Filters{}
}

// FilterItems applies, in order, the client, exact due date, assignee role, assignee
// and text search filters. All active filters must hold.
func FilterItems(items []model.ContentItemWithRelations, f Filters) []model.ContentItemWithRelations {
	query := strings.ToLower(f.Search)
	out := make([]model.ContentItemWithRelations, 0, len(items))
	for _, it := range items {
		if f.ClientID != "" && it.ClientID != f.ClientID {
			continue
		}
		if f.Date != "" && (it.DueDate == nil || *it.DueDate != f.Date) {
			continue
		}
		if f.Role != "" && !hasAssigneeRole(it, f.Role) {
			continue
		}
		if f.UserID != "" && !it.HasAssignee(f.UserID) {
			continue
		}
		if query != "" && !matchesSearch(it, query) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func hasAssigneeRole(it model.ContentItemWithRelations, role string) bool {
	for _, u := range it.Assignees {
		if string(u.Role) == role {
			return true
		}
	}
	return false
}

// matchesSearch expects query already lower-cased.
func matchesSearch(it model.ContentItemWithRelations, query string) bool {
	if strings.Contains(strings.ToLower(it.Title), query) {
		return true
	}
	if strings.Contains(strings.ToLower(it.Client.Name), query) {
		return true
	}
	return it.Description != nil && strings.Contains(strings.ToLower(*it.Description), query)
}

// GroupByStatus buckets items by status id. Every known status is a key, with an
// empty (non-nil) slice when nothing matches.
func GroupByStatus(items []model.ContentItemWithRelations, statuses []model.Status) map[string][]model.ContentItemWithRelations {
	grouped := make(map[string][]model.ContentItemWithRelations, len(statuses))
	for _, st := range statuses {
		grouped[st.ID] = []model.ContentItemWithRelations{}
	}
	for _, it := range items {
		if bucket, ok := grouped[it.StatusID]; ok {
			grouped[it.StatusID] = append(bucket, it)
		}
	}
	return grouped
}

type Column struct {
	Status model.Status                     `json:"status"`
	Items  []model.ContentItemWithRelations `json:"items"`
}

// Columns returns one column per status in order_index order.
func Columns(items []model.ContentItemWithRelations, statuses []model.Status) []Column {
	ordered := statusutil.Ordered(statuses)
	grouped := GroupByStatus(items, ordered)
	cols := make([]Column, 0, len(ordered))
	for _, st := range ordered {
		cols = append(cols, Column{Status: st, Items: grouped[st.ID]})
	}
	return cols
}

// Find returns the item with id.
func Find(items []model.ContentItemWithRelations, id string) (model.ContentItemWithRelations, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return model.ContentItemWithRelations{}, false
}
