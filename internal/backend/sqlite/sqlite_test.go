package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parrillas/internal/backend"
	"parrillas/internal/model"
	"parrillas/internal/realtime"
)

type recorder struct{ events []realtime.Event }

func (r *recorder) Publish(e realtime.Event) { r.events = append(r.events, e) }

func tickingClock() func() time.Time {
	t := time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func openTest(t *testing.T, opts ...Option) *DB {
	t.Helper()
	opts = append([]Option{WithClock(tickingClock())}, opts...)
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "parrillas.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedBoard(t *testing.T, db *DB) (model.Status, model.Client, model.UserProfile) {
	t.Helper()
	ctx := context.Background()
	_, err := db.Seed(ctx, false)
	require.NoError(t, err)
	statuses, err := db.ListStatuses(ctx)
	require.NoError(t, err)
	c, err := db.InsertClient(ctx, model.NewClient{Name: "Café Aroma", Color: "#8B4513"})
	require.NoError(t, err)
	u, err := db.UpsertUser(ctx, model.UserProfile{FullName: "Ana García", Role: model.RoleContentManager})
	require.NoError(t, err)
	return statuses[0], c, u
}

func TestSeed_IdempotentAndOrdered(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	res, err := db.Seed(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Statuses: 4, Labels: 8, Clients: 6}, res)

	res, err = db.Seed(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, res)

	statuses, err := db.ListStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 4)
	assert.Equal(t, "Contenido", statuses[0].Name)
	assert.Equal(t, "Entrega Final", statuses[3].Name)
	require.NotNil(t, statuses[1].Icon)
	assert.Equal(t, "diseno", *statuses[1].Icon)
}

func TestItems_CreateListUpdateDelete(t *testing.T) {
	hub := &recorder{}
	db := openTest(t, WithPublisher(hub))
	ctx := context.Background()
	st, c, u := seedBoard(t, db)

	due := "2026-01-20"
	first, err := db.InsertContentItem(ctx, model.NewContentItem{Title: "Post lanzamiento", StatusID: st.ID, ClientID: c.ID, DueDate: &due, CreatedBy: &u.ID})
	require.NoError(t, err)
	second, err := db.InsertContentItem(ctx, model.NewContentItem{Title: "Reel promo", StatusID: st.ID, ClientID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, model.PriorityMedium, second.Priority)

	items, err := db.ListContentItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID, "newest first")
	assert.Equal(t, "2026-01-20", *items[1].DueDate)

	title := "Post lanzamiento v2"
	empty := ""
	require.NoError(t, db.UpdateContentItem(ctx, first.ID, model.ContentItemPatch{Title: &title, DueDate: &empty}))
	items, err = db.ListContentItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, title, items[1].Title)
	assert.Nil(t, items[1].DueDate)

	last := hub.events[len(hub.events)-1]
	assert.Equal(t, backend.TableItems, last.Table)
	assert.Equal(t, realtime.Update, last.Type)
	var row model.ContentItem
	require.NoError(t, last.DecodeNew(&row))
	assert.Equal(t, title, row.Title)

	err = db.UpdateContentItem(ctx, "missing", model.ContentItemPatch{Title: &title})
	assert.ErrorIs(t, err, backend.ErrNotFound)

	require.NoError(t, db.DeleteContentItem(ctx, first.ID))
	assert.ErrorIs(t, db.DeleteContentItem(ctx, first.ID), backend.ErrNotFound)
	last = hub.events[len(hub.events)-1]
	assert.Equal(t, realtime.Delete, last.Type)
	assert.JSONEq(t, `{"id":"`+first.ID+`"}`, string(last.Old))
}

func TestJunctions_SetIsTransactional(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	st, c, u := seedBoard(t, db)
	other, err := db.UpsertUser(ctx, model.UserProfile{FullName: "Pablo Herrera", Role: model.RoleDesigner})
	require.NoError(t, err)
	it, err := db.InsertContentItem(ctx, model.NewContentItem{Title: "x", StatusID: st.ID, ClientID: c.ID})
	require.NoError(t, err)

	require.NoError(t, db.InsertAssignees(ctx, it.ID, []string{u.ID}))
	require.NoError(t, db.SetAssignees(ctx, it.ID, []string{other.ID}))
	as, err := db.ListAssignees(ctx)
	require.NoError(t, err)
	require.Len(t, as, 1)
	assert.Equal(t, other.ID, as[0].UserID)

	// An unknown user violates the foreign key; the removal in the same write must not stick.
	err = db.SetAssignees(ctx, it.ID, []string{"nobody"})
	require.Error(t, err)
	as, err = db.ListAssignees(ctx)
	require.NoError(t, err)
	require.Len(t, as, 1)
	assert.Equal(t, other.ID, as[0].UserID)

	labels, err := db.ListLabels(ctx)
	require.NoError(t, err)
	require.NoError(t, db.SetItemLabels(ctx, it.ID, []string{labels[0].ID, labels[1].ID}))
	require.NoError(t, db.SetItemLabels(ctx, it.ID, []string{labels[1].ID}))
	ils, err := db.ListItemLabels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.ItemLabel{{ParrillaID: it.ID, LabelID: labels[1].ID}}, ils)

	require.NoError(t, db.DeleteContentItem(ctx, it.ID))
	as, err = db.ListAssignees(ctx)
	require.NoError(t, err)
	assert.Empty(t, as, "assignees cascade with the item")
}

func TestJunctions_SetReplacesRowsWrittenElsewhere(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	st, c, u := seedBoard(t, db)
	other, err := db.UpsertUser(ctx, model.UserProfile{FullName: "Pablo Herrera", Role: model.RoleDesigner})
	require.NoError(t, err)
	it, err := db.InsertContentItem(ctx, model.NewContentItem{Title: "x", StatusID: st.ID, ClientID: c.ID})
	require.NoError(t, err)
	labels, err := db.ListLabels(ctx)
	require.NoError(t, err)

	require.NoError(t, db.InsertAssignees(ctx, it.ID, []string{u.ID, other.ID}))
	require.NoError(t, db.InsertItemLabels(ctx, it.ID, []string{labels[0].ID, labels[2].ID}))

	require.NoError(t, db.SetAssignees(ctx, it.ID, []string{other.ID}))
	require.NoError(t, db.SetItemLabels(ctx, it.ID, []string{labels[1].ID}))

	as, err := db.ListAssignees(ctx)
	require.NoError(t, err)
	require.Len(t, as, 1)
	assert.Equal(t, other.ID, as[0].UserID)
	ils, err := db.ListItemLabels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.ItemLabel{{ParrillaID: it.ID, LabelID: labels[1].ID}}, ils)

	require.NoError(t, db.SetAssignees(ctx, it.ID, nil))
	as, err = db.ListAssignees(ctx)
	require.NoError(t, err)
	assert.Empty(t, as)
}

func TestMediaAndComments(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	st, c, u := seedBoard(t, db)
	it, err := db.InsertContentItem(ctx, model.NewContentItem{Title: "x", StatusID: st.ID, ClientID: c.ID})
	require.NoError(t, err)

	im2, err := db.InsertImage(ctx, model.NewImage{ParrillaID: it.ID, URL: "file:///b.png", OrderIndex: 1})
	require.NoError(t, err)
	im1, err := db.InsertImage(ctx, model.NewImage{ParrillaID: it.ID, URL: "file:///a.png", OrderIndex: 0})
	require.NoError(t, err)
	images, err := db.ListImages(ctx)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, im1.ID, images[0].ID)
	assert.Equal(t, im2.ID, images[1].ID)

	c1, err := db.InsertComment(ctx, model.NewComment{ParrillaID: it.ID, Content: "primero", CreatedBy: &u.ID})
	require.NoError(t, err)
	c2, err := db.InsertComment(ctx, model.NewComment{ParrillaID: it.ID, Content: "segundo", ImageID: &im1.ID})
	require.NoError(t, err)
	comments, err := db.ListComments(ctx)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, c2.ID, comments[0].ID)
	assert.Equal(t, c1.ID, comments[1].ID)

	require.NoError(t, db.DeleteImage(ctx, im1.ID))
	comments, err = db.ListComments(ctx)
	require.NoError(t, err)
	assert.Nil(t, comments[0].ImageID, "image reference cleared")
}

func TestNotificationsAndSettings(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	for i := 0; i < 55; i++ {
		_, err := db.InsertNotification(ctx, model.NewNotification{UserID: "u-1", Title: "t", Message: "m"})
		require.NoError(t, err)
	}
	_, err := db.InsertNotification(ctx, model.NewNotification{UserID: "u-2", Title: "other"})
	require.NoError(t, err)

	ns, err := db.ListNotifications(ctx, "u-1", 50)
	require.NoError(t, err)
	require.Len(t, ns, 50)
	assert.True(t, ns[0].CreatedAt.After(ns[49].CreatedAt))
	assert.Equal(t, model.NotificationInfo, ns[0].Type)

	require.NoError(t, db.MarkNotificationRead(ctx, ns[0].ID))
	assert.ErrorIs(t, db.MarkNotificationRead(ctx, "missing"), backend.ErrNotFound)
	require.NoError(t, db.MarkAllNotificationsRead(ctx, "u-1"))
	ns, err = db.ListNotifications(ctx, "u-1", 100)
	require.NoError(t, err)
	for _, n := range ns {
		assert.True(t, n.IsRead)
	}
	other, err := db.ListNotifications(ctx, "u-2", 50)
	require.NoError(t, err)
	assert.False(t, other[0].IsRead)

	_, err = db.GetSetting(ctx, model.SettingDriveURL)
	assert.ErrorIs(t, err, backend.ErrNotFound)
	require.NoError(t, db.UpsertSetting(ctx, model.SettingDriveURL, json.RawMessage(`{"url":"https://drive.example/a"}`)))
	require.NoError(t, db.UpsertSetting(ctx, model.SettingDriveURL, json.RawMessage(`{"url":"https://drive.example/b"}`)))
	s, err := db.GetSetting(ctx, model.SettingDriveURL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"https://drive.example/b"}`, string(s.Value))
	assert.Error(t, db.UpsertSetting(ctx, "k", json.RawMessage(`{`)))
}

func TestProfiles(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	u, err := db.UpsertUser(ctx, model.UserProfile{ID: "u-1", FullName: "Ana", Role: model.RoleCEO})
	require.NoError(t, err)
	_, err = db.UpsertUser(ctx, model.UserProfile{FullName: "x", Role: "Boss"})
	assert.Error(t, err)

	off := false
	avatar := "file:///avatars/u-1.jpg"
	require.NoError(t, db.UpdateUser(ctx, u.ID, model.ProfilePatch{
		AvatarURL:   &avatar,
		Preferences: &model.Preferences{Notifications: &model.NotificationPrefs{All: &off}},
	}))
	got, err := db.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, avatar, *got.AvatarURL)
	assert.False(t, got.Preferences.NotificationsEnabled())
	assert.Equal(t, "Ana", got.FullName)

	_, err = db.GetUser(ctx, "nope")
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.ErrorIs(t, db.UpdateUser(ctx, "nope", model.ProfilePatch{}), backend.ErrNotFound)
}

func TestDataVersionSeesOtherConnections(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := Open(ctx, path)
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(ctx, path)
	require.NoError(t, err)
	defer b.Close()

	v1, err := a.DataVersion(ctx)
	require.NoError(t, err)
	_, err = b.InsertClient(ctx, model.NewClient{Name: "TechStart", Color: "#6366f1"})
	require.NoError(t, err)
	v2, err := a.DataVersion(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)
}
