package notify

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parrillas/internal/auth"
	"parrillas/internal/backend"
	"parrillas/internal/backend/sqlite"
	"parrillas/internal/model"
	"parrillas/internal/realtime"
	"parrillas/internal/store"
)

type fakeDesktop struct {
	allowed bool
	shown   []string
}

func (d *fakeDesktop) Permitted() bool { return d.allowed }

func (d *fakeDesktop) Notify(_ context.Context, n model.Notification) error {
	d.shown = append(d.shown, n.Title)
	return nil
}

type brokenMarks struct {
	backend.Backend
}

func (brokenMarks) MarkNotificationRead(context.Context, string) error {
	return errors.New("timeout")
}

func (brokenMarks) MarkAllNotificationsRead(context.Context, string) error {
	return errors.New("timeout")
}

type harness struct {
	db      *sqlite.DB
	hub     *realtime.Hub
	store   *store.Store
	bell    *bytes.Buffer
	desktop *fakeDesktop
	toasts  *ChanToaster
	center  *Center
	me      model.UserProfile
	other   model.UserProfile
}

func newHarness(t *testing.T, session auth.Session) *harness {
	t.Helper()
	ctx := context.Background()
	hub := realtime.NewHub()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "parrillas.db"), sqlite.WithPublisher(hub))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{db: db, hub: hub, bell: &bytes.Buffer{}, desktop: &fakeDesktop{allowed: true}, toasts: NewChanToaster(4)}
	h.me, err = db.UpsertUser(ctx, model.UserProfile{ID: "u-ana", FullName: "Ana García", Role: model.RoleContentManager})
	require.NoError(t, err)
	h.other, err = db.UpsertUser(ctx, model.UserProfile{ID: "u-luis", FullName: "Luis Pérez", Role: model.RoleDesigner})
	require.NoError(t, err)
	if session == nil {
		session = auth.NewStatic(h.me.ID, "")
	}
	h.store = store.New(db, session)
	h.center = New(h.store, hub, WithCue(Bell{W: h.bell}), WithDesktop(h.desktop), WithToaster(h.toasts))
	return h
}

func (h *harness) notify(t *testing.T, userID, title string) model.Notification {
	t.Helper()
	n, err := h.db.InsertNotification(context.Background(), model.NewNotification{
		UserID: userID, Title: title, Message: "Revisa la parrilla", Type: model.NotificationInfo,
	})
	require.NoError(t, err)
	return n
}

func TestFetch_LimitsAndCounts(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	for i := 0; i < Limit+5; i++ {
		h.notify(t, h.me.ID, "Aviso")
	}
	h.notify(t, h.other.ID, "Ajeno")

	require.NoError(t, h.center.Fetch(ctx))
	snap := h.center.Snapshot()
	assert.Len(t, snap.Items, Limit)
	assert.Equal(t, Limit, snap.Unread)
	for _, n := range snap.Items {
		assert.Equal(t, h.me.ID, n.UserID)
	}
}

func TestMarkRead(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	first := h.notify(t, h.me.ID, "Uno")
	h.notify(t, h.me.ID, "Dos")
	require.NoError(t, h.center.Fetch(ctx))
	require.Equal(t, 2, h.center.Unread())

	require.NoError(t, h.center.MarkRead(ctx, first.ID))
	assert.Equal(t, 1, h.center.Unread())

	require.NoError(t, h.center.MarkAllRead(ctx))
	assert.Zero(t, h.center.Unread())

	require.NoError(t, h.center.Fetch(ctx))
	assert.Zero(t, h.center.Unread(), "reads were persisted")
}

func TestMarkRead_FailureKeepsLocalState(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	n := h.notify(t, h.me.ID, "Uno")
	broken := New(store.New(brokenMarks{Backend: h.db}, auth.NewStatic(h.me.ID, "")), nil)
	require.NoError(t, broken.Fetch(ctx))

	assert.Error(t, broken.MarkRead(ctx, n.ID))
	assert.Error(t, broken.MarkAllRead(ctx))
	assert.Equal(t, 1, broken.Unread())
}

func TestRequiresSession(t *testing.T) {
	h := newHarness(t, auth.NewStatic("", ""))
	ctx := context.Background()
	assert.ErrorIs(t, h.center.Fetch(ctx), auth.ErrNoSession)
	assert.ErrorIs(t, h.center.MarkRead(ctx, "n-1"), auth.ErrNoSession)
	assert.ErrorIs(t, h.center.MarkAllRead(ctx), auth.ErrNoSession)
	assert.ErrorIs(t, h.center.Run(ctx), auth.ErrNoSession)
	_, err := h.center.Send(ctx, model.NewNotification{UserID: "u-luis", Title: "Hola"})
	assert.ErrorIs(t, err, auth.ErrNoSession)
}

func TestSend_Validates(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	n, err := h.center.Send(ctx, model.NewNotification{UserID: h.other.ID, Title: " Nueva tarea "})
	require.NoError(t, err)
	assert.Equal(t, "Nueva tarea", n.Title)
	assert.Equal(t, model.NotificationInfo, n.Type)

	_, err = h.center.Send(ctx, model.NewNotification{UserID: h.other.ID})
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
	_, err = h.center.Send(ctx, model.NewNotification{UserID: h.other.ID, Title: "x", Type: "loud"})
	assert.Error(t, err)
}

func TestHandle_RaisesAlerts(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	n := h.notify(t, h.me.ID, "Comentario nuevo")
	e := realtime.Event{Table: backend.TableNotifications, Type: realtime.Insert}
	e.New = []byte(`{"id":"` + n.ID + `","user_id":"u-ana","title":"Comentario nuevo","message":"","type":"info","is_read":false}`)

	require.NoError(t, h.center.Handle(ctx, e))
	assert.Equal(t, "\a", h.bell.String())
	assert.Equal(t, []string{"Comentario nuevo"}, h.desktop.shown)
	select {
	case got := <-h.toasts.C:
		assert.Equal(t, n.ID, got.ID)
	default:
		t.Fatal("expected a toast")
	}
	assert.Equal(t, 1, h.center.Unread())
}

func TestHandle_RespectsPreferences(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	off := false
	require.NoError(t, h.store.UpdatePreferences(ctx, model.Preferences{Notifications: &model.NotificationPrefs{All: &off}}))
	require.NoError(t, h.store.FetchCurrentUser(ctx))
	h.desktop.allowed = false

	n := h.notify(t, h.me.ID, "Silencioso")
	e := realtime.Event{Table: backend.TableNotifications, Type: realtime.Insert,
		New: []byte(`{"id":"` + n.ID + `","user_id":"u-ana","title":"Silencioso"}`)}
	require.NoError(t, h.center.Handle(ctx, e))

	assert.Empty(t, h.bell.String())
	assert.Empty(t, h.desktop.shown)
	assert.Empty(t, h.toasts.C)
	assert.Equal(t, 1, h.center.Unread(), "inbox still refreshes")
}

func TestRun_OnlyOwnNotifications(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.center.Run(ctx) }()
	require.Eventually(t, func() bool { return h.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.notify(t, h.other.ID, "Para Luis")
	mine := h.notify(t, h.me.ID, "Para Ana")

	select {
	case got := <-h.toasts.C:
		assert.Equal(t, mine.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no toast")
	}
	require.Eventually(t, func() bool { return h.center.Unread() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestChanToaster_DropsOldest(t *testing.T) {
	toasts := NewChanToaster(2)
	for _, id := range []string{"a", "b", "c"} {
		toasts.Toast(model.Notification{ID: id})
	}
	assert.Equal(t, "b", (<-toasts.C).ID)
	assert.Equal(t, "c", (<-toasts.C).ID)
}

func TestNotifySendArgs(t *testing.T) {
	args := notifySendArgs(model.Notification{Title: "Error", Message: "falló", Type: model.NotificationError})
	assert.Equal(t, []string{"--app-name=parrillas", "--urgency=critical", "--", "Error", "falló"}, args)
	args = notifySendArgs(model.Notification{Title: "t", Type: model.NotificationWarning})
	assert.Contains(t, args, "--urgency=normal")

	// Titles and messages that look like flags stay positional.
	args = notifySendArgs(model.Notification{Title: "--help", Message: "-u critical", Type: model.NotificationInfo})
	assert.Equal(t, []string{"--app-name=parrillas", "--urgency=low", "--", "--help", "-u critical"}, args)

	var missing *NotifySend
	assert.False(t, missing.Permitted())
	assert.Error(t, (&NotifySend{}).Notify(context.Background(), model.Notification{}))
}
