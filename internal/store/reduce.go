package store

import (
	"sort"
	"strings"

	"parrillas/internal/board"
	"parrillas/internal/model"
)

// Action is a state transition applied by Reduce.
type Action interface {
	Name() string
}

type FilterField string

const (
	FilterClient FilterField = "client"
	FilterDate   FilterField = "date"
	FilterRole   FilterField = "role"
	FilterUser   FilterField = "user"
	FilterSearch FilterField = "search"
)

type (
	LoadStarted struct{}
	LoadFailed  struct{ Err string }

	// ItemsLoaded replaces the item collection and catalogs with a completed fetch.
	// Items whose applied revision is newer than AsOf keep their local version.
	ItemsLoaded struct {
		Items    []model.ContentItemWithRelations
		Clients  []model.Client
		Statuses []model.Status
		Labels   []model.Label
		Users    []model.UserProfile
		AsOf     uint64
	}

	CurrentUserLoaded struct{ User *model.UserProfile }
	ClientsLoaded     struct{ Clients []model.Client }
	ClientAdded       struct{ Client model.Client }
	ClientRemoved     struct{ ID string }

	// ItemFieldsPatched overwrites an item's own columns. Joined relations are kept.
	ItemFieldsPatched struct {
		Item model.ContentItem
		Rev  uint64
	}
	ItemRemoved struct{ ID string }

	StatusChanged struct {
		ID       string
		StatusID string
		Rev      uint64
	}
	// StatusConfirmed ends the pending write made at revision Rev. The item is
	// restamped at Seen so fetches started before the write committed cannot
	// replace it.
	StatusConfirmed struct {
		ID   string
		Rev  uint64
		Seen uint64
	}
	// StatusReverted restores StatusID only if the item is still at revision Rev.
	StatusReverted struct {
		ID       string
		StatusID string
		Rev      uint64
	}

	CommentInserted struct {
		Comment model.CommentWithAuthor
		Rev     uint64
	}
	ImageAdded struct {
		ItemID string
		Image  model.Image
		Rev    uint64
	}
	ImageRemoved struct {
		ItemID  string
		ImageID string
		Rev     uint64
	}

	DetailOpened struct{ ID string }
	DetailClosed struct{}
	CreateOpened struct{ StatusID string }
	CreateClosed struct{}

	FilterSet struct {
		Field FilterField
		Value string
	}
	FiltersCleared struct{}
	ViewSet        struct{ View View }
	ErrorSet       struct{ Err string }

	ProfilePatched struct {
		UserID string
		Patch  model.ProfilePatch
	}
)

func (LoadStarted) Name() string       { return "load_started" }
func (LoadFailed) Name() string        { return "load_failed" }
func (ItemsLoaded) Name() string       { return "items_loaded" }
func (CurrentUserLoaded) Name() string { return "current_user_loaded" }
func (ClientsLoaded) Name() string     { return "clients_loaded" }
func (ClientAdded) Name() string       { return "client_added" }
func (ClientRemoved) Name() string     { return "client_removed" }
func (ItemFieldsPatched) Name() string { return "item_fields_patched" }
func (ItemRemoved) Name() string       { return "item_removed" }
func (StatusChanged) Name() string     { return "status_changed" }
func (StatusConfirmed) Name() string   { return "status_confirmed" }
func (StatusReverted) Name() string    { return "status_reverted" }
func (CommentInserted) Name() string   { return "comment_inserted" }
func (ImageAdded) Name() string        { return "image_added" }
func (ImageRemoved) Name() string      { return "image_removed" }
func (DetailOpened) Name() string      { return "detail_opened" }
func (DetailClosed) Name() string      { return "detail_closed" }
func (CreateOpened) Name() string      { return "create_opened" }
func (CreateClosed) Name() string      { return "create_closed" }
func (FilterSet) Name() string         { return "filter_set" }
func (FiltersCleared) Name() string    { return "filters_cleared" }
func (ViewSet) Name() string           { return "view_set" }
func (ErrorSet) Name() string          { return "error_set" }
func (ProfilePatched) Name() string    { return "profile_patched" }

// Reduce returns the state after applying a. It never mutates s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoadStarted:
		s.Loading = true
		s.Err = ""
	case LoadFailed:
		s.Loading = false
		s.Err = a.Err
	case ItemsLoaded:
		s = applyLoaded(s, a)
	case CurrentUserLoaded:
		if a.User == nil {
			s.CurrentUser = nil
		} else {
			u := *a.User
			s.CurrentUser = &u
		}
	case ClientsLoaded:
		s.Clients = append([]model.Client(nil), a.Clients...)
	case ClientAdded:
		clients := make([]model.Client, 0, len(s.Clients)+1)
		for _, c := range s.Clients {
			if c.ID != a.Client.ID {
				clients = append(clients, c)
			}
		}
		clients = append(clients, a.Client)
		sort.SliceStable(clients, func(i, j int) bool {
			return strings.ToLower(clients[i].Name) < strings.ToLower(clients[j].Name)
		})
		s.Clients = clients
	case ClientRemoved:
		clients := make([]model.Client, 0, len(s.Clients))
		for _, c := range s.Clients {
			if c.ID != a.ID {
				clients = append(clients, c)
			}
		}
		s.Clients = clients
		if s.Filters.ClientID == a.ID {
			s.Filters.ClientID = ""
		}
	case ItemFieldsPatched:
		var ok bool
		if s, ok = stamp(s, a.Item.ID, a.Rev); !ok {
			return s
		}
		s = mapItem(s, a.Item.ID, func(it model.ContentItemWithRelations) model.ContentItemWithRelations {
			it.ContentItem = a.Item
			return rejoin(s, it)
		})
	case ItemRemoved:
		items := make([]model.ContentItemWithRelations, 0, len(s.Items))
		for _, it := range s.Items {
			if it.ID != a.ID {
				items = append(items, it)
			}
		}
		s.Items = items
		s.Revisions = withoutRevision(s.Revisions, a.ID)
		s.Pending = withoutRevision(s.Pending, a.ID)
		if s.Selected != nil && s.Selected.ID == a.ID {
			s.Selected = nil
			s.DetailOpen = false
		}
	case StatusChanged:
		var ok bool
		if s, ok = stamp(s, a.ID, a.Rev); !ok {
			return s
		}
		s.Pending = withRevision(s.Pending, a.ID, a.Rev)
		s = mapItem(s, a.ID, func(it model.ContentItemWithRelations) model.ContentItemWithRelations {
			it.StatusID = a.StatusID
			return rejoin(s, it)
		})
	case StatusConfirmed:
		if s.Pending[a.ID] == a.Rev {
			s.Pending = withoutRevision(s.Pending, a.ID)
		}
		if _, found := s.FindItem(a.ID); found {
			s, _ = stamp(s, a.ID, a.Seen)
		}
	case StatusReverted:
		if s.Pending[a.ID] == a.Rev {
			s.Pending = withoutRevision(s.Pending, a.ID)
		}
		if s.Revisions[a.ID] != a.Rev {
			return s
		}
		s = mapItem(s, a.ID, func(it model.ContentItemWithRelations) model.ContentItemWithRelations {
			it.StatusID = a.StatusID
			return rejoin(s, it)
		})
	case CommentInserted:
		itemID := a.Comment.ParrillaID
		it, found := s.FindItem(itemID)
		if !found || hasComment(it, a.Comment.ID) {
			return s
		}
		var ok bool
		if s, ok = stamp(s, itemID, a.Rev); !ok {
			return s
		}
		s = mapItem(s, itemID, func(it model.ContentItemWithRelations) model.ContentItemWithRelations {
			if hasComment(it, a.Comment.ID) {
				return it
			}
			it.Comments = append([]model.CommentWithAuthor{a.Comment}, it.Comments...)
			return it
		})
	case ImageAdded:
		var ok bool
		if s, ok = stamp(s, a.ItemID, a.Rev); !ok {
			return s
		}
		s = mapItem(s, a.ItemID, func(it model.ContentItemWithRelations) model.ContentItemWithRelations {
			for _, img := range it.Images {
				if img.ID == a.Image.ID {
					return it
				}
			}
			it.Images = append(it.Images, a.Image)
			return it
		})
	case ImageRemoved:
		var ok bool
		if s, ok = stamp(s, a.ItemID, a.Rev); !ok {
			return s
		}
		s = mapItem(s, a.ItemID, func(it model.ContentItemWithRelations) model.ContentItemWithRelations {
			imgs := it.Images[:0:0]
			for _, img := range it.Images {
				if img.ID != a.ImageID {
					imgs = append(imgs, img)
				}
			}
			it.Images = imgs
			return it
		})
	case DetailOpened:
		it, ok := s.FindItem(a.ID)
		if !ok {
			return s
		}
		sel := it.Clone()
		s.Selected = &sel
		s.DetailOpen = true
	case DetailClosed:
		s.Selected = nil
		s.DetailOpen = false
	case CreateOpened:
		s.CreateOpen = true
		s.CreateStatusID = a.StatusID
	case CreateClosed:
		s.CreateOpen = false
		s.CreateStatusID = ""
	case FilterSet:
		switch a.Field {
		case FilterClient:
			s.Filters.ClientID = a.Value
		case FilterDate:
			s.Filters.Date = a.Value
		case FilterRole:
			s.Filters.Role = a.Value
		case FilterUser:
			s.Filters.UserID = a.Value
		case FilterSearch:
			s.Filters.Search = a.Value
		}
	case FiltersCleared:
		s.Filters = initialState().Filters
	case ViewSet:
		s.View = a.View
	case ErrorSet:
		s.Err = a.Err
	case ProfilePatched:
		users := make([]model.UserProfile, len(s.Users))
		for i, u := range s.Users {
			if u.ID == a.UserID {
				u = a.Patch.Apply(u)
			}
			users[i] = u
		}
		s.Users = users
		if s.CurrentUser != nil && s.CurrentUser.ID == a.UserID {
			u := a.Patch.Apply(*s.CurrentUser)
			s.CurrentUser = &u
		}
	}
	return s
}

func applyLoaded(s State, a ItemsLoaded) State {
	s.Clients = append([]model.Client(nil), a.Clients...)
	s.Statuses = append([]model.Status(nil), a.Statuses...)
	s.Labels = append([]model.Label(nil), a.Labels...)
	s.Users = append([]model.UserProfile(nil), a.Users...)

	items := make([]model.ContentItemWithRelations, 0, len(a.Items))
	revs := map[string]uint64{}
	for _, it := range a.Items {
		if r := s.Revisions[it.ID]; r > a.AsOf || s.StatusPending(it.ID) {
			if local, ok := s.FindItem(it.ID); ok {
				items = append(items, local)
				revs[it.ID] = r
				continue
			}
		}
		items = append(items, it)
	}
	s.Items = items
	s.Revisions = revs
	s.Loading = false
	s.Err = ""

	if s.Selected != nil {
		if it, ok := board.Find(items, s.Selected.ID); ok {
			sel := it.Clone()
			s.Selected = &sel
		} else {
			s.Selected = nil
			s.DetailOpen = false
		}
	}
	return s
}

// stamp records rev as the applied revision of id. It refuses revisions older than
// the one already applied.
func stamp(s State, id string, rev uint64) (State, bool) {
	if rev < s.Revisions[id] {
		return s, false
	}
	s.Revisions = withRevision(s.Revisions, id, rev)
	return s, true
}

func withRevision(revs map[string]uint64, id string, rev uint64) map[string]uint64 {
	out := make(map[string]uint64, len(revs)+1)
	for k, v := range revs {
		out[k] = v
	}
	out[id] = rev
	return out
}

func withoutRevision(revs map[string]uint64, id string) map[string]uint64 {
	if _, ok := revs[id]; !ok {
		return revs
	}
	out := make(map[string]uint64, len(revs))
	for k, v := range revs {
		if k != id {
			out[k] = v
		}
	}
	return out
}

// mapItem rebuilds the item slice with fn applied to id, mirroring the change into
// the open detail view.
func mapItem(s State, id string, fn func(model.ContentItemWithRelations) model.ContentItemWithRelations) State {
	items := make([]model.ContentItemWithRelations, len(s.Items))
	for i, it := range s.Items {
		if it.ID == id {
			it = fn(it.Clone())
		}
		items[i] = it
	}
	s.Items = items
	if s.Selected != nil && s.Selected.ID == id {
		sel := fn(s.Selected.Clone())
		s.Selected = &sel
	}
	return s
}

// rejoin refreshes the joined client and status after their ids changed.
func rejoin(s State, it model.ContentItemWithRelations) model.ContentItemWithRelations {
	if it.Client.ID != it.ClientID {
		if c, ok := s.FindClient(it.ClientID); ok {
			it.Client = c
		}
	}
	if it.Status.ID != it.StatusID {
		if st, ok := s.FindStatus(it.StatusID); ok {
			it.Status = st
		}
	}
	return it
}

func hasComment(it model.ContentItemWithRelations, id string) bool {
	for _, c := range it.Comments {
		if c.ID == id {
			return true
		}
	}
	return false
}
