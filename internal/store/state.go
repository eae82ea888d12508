// Package store is the client-side view model: the joined board data, selection and
// filter state, and every read or write the UI performs against the backend.
//
// State is an immutable value. All changes go through Reduce with a typed Action, so
// the interleavings between optimistic writes, refetches and realtime events can be
// replayed in isolation.
package store

import (
	"parrillas/internal/board"
	"parrillas/internal/model"
)

type View string

const (
	ViewBoard         View = "board"
	ViewCalendar      View = "calendar"
	ViewDashboard     View = "dashboard"
	ViewSettings      View = "settings"
	ViewNotifications View = "notifications"
	ViewDesigns       View = "designs"
)

var Views = []View{ViewBoard, ViewCalendar, ViewDashboard, ViewSettings, ViewNotifications, ViewDesigns}

type State struct {
	Items       []model.ContentItemWithRelations `json:"parrillas"`
	Clients     []model.Client                   `json:"clients"`
	Statuses    []model.Status                   `json:"statuses"`
	Labels      []model.Label                    `json:"labels"`
	Users       []model.UserProfile              `json:"users"`
	CurrentUser *model.UserProfile               `json:"current_user,omitempty"`

	Selected       *model.ContentItemWithRelations `json:"selected,omitempty"`
	DetailOpen     bool                            `json:"detail_open"`
	CreateOpen     bool                            `json:"create_open"`
	CreateStatusID string                          `json:"create_status_id,omitempty"`
	View           View                            `json:"view"`
	Filters        board.Filters                   `json:"filters"`

	Loading bool   `json:"loading"`
	Err     string `json:"error,omitempty"`

	// Revisions holds the local revision last applied to each item.
	Revisions map[string]uint64 `json:"-"`
	// Pending maps items with an unconfirmed status write to that write's revision.
	// Loads never overwrite a pending item.
	Pending map[string]uint64 `json:"-"`
}

func initialState() State {
	return State{View: ViewBoard}
}

// FindItem returns the item with id.
func (s State) FindItem(id string) (model.ContentItemWithRelations, bool) {
	return board.Find(s.Items, id)
}

func (s State) FindUser(id string) (model.UserProfile, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return model.UserProfile{}, false
}

func (s State) FindClient(id string) (model.Client, bool) {
	for _, c := range s.Clients {
		if c.ID == id {
			return c, true
		}
	}
	return model.Client{}, false
}

func (s State) FindStatus(id string) (model.Status, bool) {
	for _, st := range s.Statuses {
		if st.ID == id {
			return st, true
		}
	}
	return model.Status{}, false
}

// Revision returns the local revision applied to item id, zero when untouched.
func (s State) Revision(id string) uint64 {
	return s.Revisions[id]
}

// StatusPending reports whether a status write for id is still in flight.
func (s State) StatusPending(id string) bool {
	_, ok := s.Pending[id]
	return ok
}

// FilteredItems applies the active filters.
func (s State) FilteredItems() []model.ContentItemWithRelations {
	return board.FilterItems(s.Items, s.Filters)
}

// ItemsByStatus groups the filtered items under every known status id.
func (s State) ItemsByStatus() map[string][]model.ContentItemWithRelations {
	return board.GroupByStatus(s.FilteredItems(), s.Statuses)
}

func (s State) Columns() []board.Column {
	return board.Columns(s.FilteredItems(), s.Statuses)
}
