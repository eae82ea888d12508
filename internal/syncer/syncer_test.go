package syncer

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parrillas/internal/auth"
	"parrillas/internal/backend"
	"parrillas/internal/backend/sqlite"
	"parrillas/internal/metrics"
	"parrillas/internal/model"
	"parrillas/internal/realtime"
	"parrillas/internal/store"
)

type fixture struct {
	db       *sqlite.DB
	path     string
	hub      *realtime.Hub
	store    *store.Store
	sync     *Synchronizer
	statuses []model.Status
	client   model.Client
	author   model.UserProfile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	hub := realtime.NewHub()
	path := filepath.Join(t.TempDir(), "parrillas.db")
	db, err := sqlite.Open(ctx, path, sqlite.WithPublisher(hub))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Seed(ctx, false)
	require.NoError(t, err)

	f := &fixture{db: db, path: path, hub: hub}
	f.statuses, err = db.ListStatuses(ctx)
	require.NoError(t, err)
	f.client, err = db.InsertClient(ctx, model.NewClient{Name: "Café Aroma", Color: "#8B4513"})
	require.NoError(t, err)
	f.author, err = db.UpsertUser(ctx, model.UserProfile{ID: "u-marta", FullName: "Marta Ruiz", Role: model.RoleCreativeDirector})
	require.NoError(t, err)

	f.store = store.New(db, auth.NewStatic(f.author.ID, ""))
	f.sync = New(f.store, hub, nil, metrics.New())
	return f
}

func (f *fixture) insertItem(t *testing.T, title string) model.ContentItem {
	t.Helper()
	it, err := f.db.InsertContentItem(context.Background(), model.NewContentItem{
		Title:    title,
		StatusID: f.statuses[0].ID,
		ClientID: f.client.ID,
		Priority: model.PriorityHigh,
	})
	require.NoError(t, err)
	return it
}

func rowEvent(t *testing.T, table string, typ realtime.EventType, newRow, oldRow any) realtime.Event {
	t.Helper()
	e := realtime.Event{Table: table, Type: typ}
	if newRow != nil {
		b, err := json.Marshal(newRow)
		require.NoError(t, err)
		e.New = b
	}
	if oldRow != nil {
		b, err := json.Marshal(oldRow)
		require.NoError(t, err)
		e.Old = b
	}
	return e
}

func TestHandle_ItemLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.insertItem(t, "Post")

	require.NoError(t, f.sync.Handle(ctx, rowEvent(t, backend.TableItems, realtime.Insert, it, nil)))
	require.Len(t, f.store.State().Items, 1, "insert reloads the board")
	f.store.OpenDetail(it.ID)

	upd := it
	upd.Title = "Post actualizado"
	upd.StatusID = f.statuses[2].ID
	require.NoError(t, f.sync.Handle(ctx, rowEvent(t, backend.TableItems, realtime.Update, upd, map[string]string{"id": it.ID})))
	st := f.store.State()
	got, _ := st.FindItem(it.ID)
	assert.Equal(t, "Post actualizado", got.Title)
	assert.Equal(t, f.statuses[2].Name, got.Status.Name)
	assert.Equal(t, "Café Aroma", got.Client.Name)
	require.NotNil(t, st.Selected)
	assert.Equal(t, "Post actualizado", st.Selected.Title)

	require.NoError(t, f.sync.Handle(ctx, rowEvent(t, backend.TableItems, realtime.Delete, nil, map[string]string{"id": it.ID})))
	st = f.store.State()
	assert.Empty(t, st.Items)
	assert.False(t, st.DetailOpen)
}

func TestHandle_UpdateWinsOverPendingFetch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.insertItem(t, "Post")
	require.NoError(t, f.store.FetchAll(ctx))

	upd := it
	upd.StatusID = f.statuses[3].ID
	require.NoError(t, f.sync.Handle(ctx, rowEvent(t, backend.TableItems, realtime.Update, upd, nil)))
	got, _ := f.store.State().FindItem(it.ID)
	assert.Equal(t, f.statuses[3].ID, got.StatusID)
	assert.NotZero(t, f.store.State().Revision(it.ID))
}

func TestHandle_Comments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.insertItem(t, "Post")
	require.NoError(t, f.store.FetchAll(ctx))

	c := model.Comment{ID: "cm-1", ParrillaID: it.ID, Content: "¡Me encanta!", CreatedBy: &f.author.ID}
	require.NoError(t, f.sync.Handle(ctx, rowEvent(t, backend.TableComments, realtime.Insert, c, nil)))
	require.NoError(t, f.sync.Handle(ctx, rowEvent(t, backend.TableComments, realtime.Insert, c, nil)))
	got, _ := f.store.State().FindItem(it.ID)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "Marta Ruiz", got.Comments[0].User.FullName)

	ghost := "u-ghost"
	c2 := model.Comment{ID: "cm-2", ParrillaID: it.ID, Content: "ok", CreatedBy: &ghost}
	require.NoError(t, f.sync.Handle(ctx, rowEvent(t, backend.TableComments, realtime.Insert, c2, nil)))
	got, _ = f.store.State().FindItem(it.ID)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "cm-2", got.Comments[0].ID)
	assert.Equal(t, "Usuario", got.Comments[0].User.FullName)
	assert.Equal(t, model.RoleDesigner, got.Comments[0].User.Role)

	anon := model.Comment{ID: "cm-3", ParrillaID: it.ID, Content: "sin autor"}
	require.NoError(t, f.sync.Handle(ctx, rowEvent(t, backend.TableComments, realtime.Insert, anon, nil)))
	got, _ = f.store.State().FindItem(it.ID)
	assert.Len(t, got.Comments, 2)
}

func TestHandle_Malformed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assert.Error(t, f.sync.Handle(ctx, realtime.Event{Table: backend.TableItems, Type: realtime.Update}))
	assert.Error(t, f.sync.Handle(ctx, rowEvent(t, backend.TableItems, realtime.Delete, nil, map[string]string{})))
	assert.NoError(t, f.sync.Handle(ctx, realtime.Event{Table: backend.TableLabels, Type: realtime.Insert}))
}

func TestRun_FollowsHub(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.sync.Run(ctx) }()
	require.Eventually(t, func() bool { return f.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	it := f.insertItem(t, "Desde otro equipo")
	require.Eventually(t, func() bool {
		_, ok := f.store.State().FindItem(it.ID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	title := "Renombrado"
	require.NoError(t, f.db.UpdateContentItem(context.Background(), it.ID, model.ContentItemPatch{Title: &title}))
	require.Eventually(t, func() bool {
		got, _ := f.store.State().FindItem(it.ID)
		return got.Title == title
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.db.DeleteContentItem(context.Background(), it.ID))
	require.Eventually(t, func() bool { return len(f.store.State().Items) == 0 }, 2*time.Second, 10*time.Millisecond)

	// A second handle publishes nothing, like a write made while disconnected.
	quiet, err := sqlite.Open(context.Background(), f.path)
	require.NoError(t, err)
	defer quiet.Close()
	other, err := quiet.InsertContentItem(context.Background(), model.NewContentItem{
		Title: "Perdido", StatusID: f.statuses[0].ID, ClientID: f.client.ID, Priority: model.PriorityLow,
	})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, ok := f.store.State().FindItem(other.ID)
	require.False(t, ok)
	f.hub.Reconnected()
	require.Eventually(t, func() bool {
		_, ok := f.store.State().FindItem(other.ID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
