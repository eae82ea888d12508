package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parrillas/internal/board"
	"parrillas/internal/model"
	"parrillas/internal/notify"
	"parrillas/internal/statusutil"
	"parrillas/internal/store"
)

type mode int

const (
	modeBoard mode = iota
	modeSearch
	modeDetail
	modeComment
	modeInbox
)

// toastTTL is how long an incoming notification stays in the footer.
const toastTTL = 4 * time.Second

type (
	stateChangedMsg struct{}
	toastMsg        struct{ n model.Notification }
	toastExpiredMsg struct{ seq int }
	opDoneMsg       struct {
		op  string
		err error
	}
)

type appModel struct {
	ctx     context.Context
	store   *store.Store
	center  *notify.Center
	changes <-chan struct{}
	toasts  <-chan model.Notification

	keys    keyMap
	help    help.Model
	search  textinput.Model
	comment textinput.Model
	detail  viewport.Model

	mode          mode
	width, height int

	// Selection is tracked by item id so it follows an item across columns.
	col    int
	row    int
	itemID string

	inboxRow int

	toast    *model.Notification
	toastSeq int
	flash    string
}

func newAppModel(ctx context.Context, s *store.Store, center *notify.Center, changes <-chan struct{}, toasts <-chan model.Notification) appModel {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "título, cliente o descripción"

	comment := textinput.New()
	comment.Prompt = "> "
	comment.Placeholder = "escribe un comentario"
	comment.CharLimit = 2000

	m := appModel{
		ctx:     ctx,
		store:   s,
		center:  center,
		changes: changes,
		toasts:  toasts,
		keys:    defaultKeyMap(),
		help:    help.New(),
		search:  search,
		comment: comment,
		detail:  viewport.New(80, 20),
		width:   100,
		height:  30,
	}
	m.clampSelection()
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.changes), waitForToast(m.toasts))
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

func waitForToast(ch <-chan model.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return toastMsg{n: n}
	}
}

// run executes fn off the update loop and reports its outcome as an opDoneMsg.
func (m appModel) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.detail.Width = msg.Width
		m.detail.Height = m.bodyHeight()
		if m.mode == modeDetail || m.mode == modeComment {
			m.refreshDetail()
		}
		return m, nil

	case stateChangedMsg:
		m.clampSelection()
		if m.mode == modeDetail || m.mode == modeComment {
			if m.store.State().Selected == nil {
				m.mode = modeBoard
				m.flash = "El contenido ya no existe"
			} else {
				m.refreshDetail()
			}
		}
		return m, waitForChange(m.changes)

	case toastMsg:
		n := msg.n
		m.toast = &n
		m.toastSeq++
		seq := m.toastSeq
		return m, tea.Batch(
			waitForToast(m.toasts),
			tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} }),
		)

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case opDoneMsg:
		if msg.err != nil {
			m.flash = fmt.Sprintf("%s: %v", msg.op, msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeDetail:
			return m.updateDetail(msg)
		case modeComment:
			return m.updateComment(msg)
		case modeInbox:
			return m.updateInbox(msg)
		default:
			return m.updateBoard(msg)
		}
	}
	return m, nil
}

func (m appModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	cols := m.store.State().Columns()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Left):
		m.selectColumn(cols, m.col-1)
	case key.Matches(msg, m.keys.Right):
		m.selectColumn(cols, m.col+1)
	case key.Matches(msg, m.keys.Up):
		m.selectRow(cols, m.row-1)
	case key.Matches(msg, m.keys.Down):
		m.selectRow(cols, m.row+1)
	case key.Matches(msg, m.keys.MoveLeft):
		return m, m.moveSelected(-1)
	case key.Matches(msg, m.keys.MoveRight):
		return m, m.moveSelected(1)
	case key.Matches(msg, m.keys.Open):
		if m.itemID == "" {
			return m, nil
		}
		m.store.OpenDetail(m.itemID)
		m.mode = modeDetail
		m.detail.Height = m.bodyHeight()
		m.refreshDetail()
		m.detail.GotoTop()
	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.search.SetValue(m.store.State().Filters.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Client):
		m.store.SetFilterClient(nextClient(m.store.State()))
		m.clampSelection()
	case key.Matches(msg, m.keys.Mine):
		st := m.store.State()
		switch {
		case st.CurrentUser == nil:
			m.flash = "Sin usuario activo"
		case st.Filters.UserID == st.CurrentUser.ID:
			m.store.SetFilterUser("")
		default:
			m.store.SetFilterUser(st.CurrentUser.ID)
		}
		m.clampSelection()
	case key.Matches(msg, m.keys.ClearFilters):
		m.store.ClearFilters()
		m.search.Reset()
		m.clampSelection()
	case key.Matches(msg, m.keys.Inbox):
		if m.center == nil {
			m.flash = "Notificaciones no disponibles"
			return m, nil
		}
		m.mode = modeInbox
		m.inboxRow = 0
		m.store.SetView(store.ViewNotifications)
	case key.Matches(msg, m.keys.Reload):
		return m, m.run("recargar", m.store.FetchAll)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m appModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.search.Blur()
		m.mode = modeBoard
		m.clampSelection()
		return m, nil
	case tea.KeyEsc:
		m.search.Blur()
		m.search.Reset()
		m.store.SetSearch("")
		m.mode = modeBoard
		m.clampSelection()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if q := m.search.Value(); q != m.store.State().Filters.Search {
		m.store.SetSearch(q)
		m.clampSelection()
	}
	return m, cmd
}

func (m appModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	switch {
	case key.Matches(msg, m.keys.Back), msg.String() == "q":
		m.store.CloseDetail()
		m.mode = modeBoard
		return m, nil
	case key.Matches(msg, m.keys.MoveLeft):
		return m, m.moveSelected(-1)
	case key.Matches(msg, m.keys.MoveRight):
		return m, m.moveSelected(1)
	case key.Matches(msg, m.keys.Comment):
		m.mode = modeComment
		m.comment.Reset()
		return m, m.comment.Focus()
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m appModel) updateComment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.comment.Blur()
		m.mode = modeDetail
		return m, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(m.comment.Value())
		m.comment.Blur()
		m.comment.Reset()
		m.mode = modeDetail
		if text == "" {
			return m, nil
		}
		id := m.itemID
		return m, m.run("comentar", func(ctx context.Context) error {
			_, err := m.store.AddComment(ctx, id, text, nil)
			return err
		})
	}
	var cmd tea.Cmd
	m.comment, cmd = m.comment.Update(msg)
	return m, cmd
}

func (m appModel) updateInbox(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	items := m.center.Snapshot().Items
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Inbox), msg.String() == "q":
		m.mode = modeBoard
		m.store.SetView(store.ViewBoard)
	case key.Matches(msg, m.keys.Up):
		if m.inboxRow > 0 {
			m.inboxRow--
		}
	case key.Matches(msg, m.keys.Down):
		if m.inboxRow < len(items)-1 {
			m.inboxRow++
		}
	case key.Matches(msg, m.keys.Open):
		if m.inboxRow < 0 || m.inboxRow >= len(items) || items[m.inboxRow].IsRead {
			return m, nil
		}
		id := items[m.inboxRow].ID
		return m, m.run("marcar leída", func(ctx context.Context) error { return m.center.MarkRead(ctx, id) })
	case key.Matches(msg, m.keys.ReadAll):
		return m, m.run("marcar todas", m.center.MarkAllRead)
	}
	return m, nil
}

// moveSelected moves the selected item one status to the left or right. The move
// is applied optimistically by the store; a failed write comes back as a flash.
func (m appModel) moveSelected(delta int) tea.Cmd {
	st := m.store.State()
	it, ok := st.FindItem(m.itemID)
	if !ok {
		return nil
	}
	next, ok := statusutil.Neighbor(st.Statuses, it.StatusID, delta)
	if !ok {
		return nil
	}
	id := it.ID
	return m.run("mover", func(ctx context.Context) error {
		return m.store.UpdateStatus(ctx, id, next.ID)
	})
}

func (m *appModel) selectColumn(cols []board.Column, col int) {
	if len(cols) == 0 {
		m.col, m.row, m.itemID = 0, 0, ""
		return
	}
	if col < 0 {
		col = 0
	}
	if col >= len(cols) {
		col = len(cols) - 1
	}
	m.col = col
	m.selectRow(cols, m.row)
}

func (m *appModel) selectRow(cols []board.Column, row int) {
	if m.col >= len(cols) {
		m.itemID = ""
		return
	}
	items := cols[m.col].Items
	if len(items) == 0 {
		m.row, m.itemID = 0, ""
		return
	}
	if row < 0 {
		row = 0
	}
	if row >= len(items) {
		row = len(items) - 1
	}
	m.row = row
	m.itemID = items[row].ID
}

// clampSelection keeps the selected item selected wherever it now lives, or falls
// back to the nearest position when it left the filtered board.
func (m *appModel) clampSelection() {
	cols := m.store.State().Columns()
	for ci, c := range cols {
		for ri, it := range c.Items {
			if it.ID == m.itemID {
				m.col, m.row = ci, ri
				return
			}
		}
	}
	m.selectColumn(cols, m.col)
}

func (m *appModel) refreshDetail() {
	sel := m.store.State().Selected
	if sel == nil {
		m.detail.SetContent("")
		return
	}
	m.detail.SetContent(renderDetail(*sel, m.width))
}

func (m appModel) helpKeys() help.KeyMap {
	switch m.mode {
	case modeDetail, modeComment:
		return detailKeys{m.keys}
	case modeInbox:
		return inboxKeys{m.keys}
	}
	return boardKeys{m.keys}
}

func (m appModel) bodyHeight() int {
	// header, filter line, footer, help
	h := m.height - 3 - lipgloss.Height(m.help.View(m.helpKeys()))
	if h < 3 {
		h = 3
	}
	return h
}

// nextClient cycles the client filter through every client by name, then back to none.
func nextClient(st store.State) string {
	clients := append([]model.Client(nil), st.Clients...)
	sort.SliceStable(clients, func(i, j int) bool {
		return strings.ToLower(clients[i].Name) < strings.ToLower(clients[j].Name)
	})
	if len(clients) == 0 {
		return ""
	}
	cur := st.Filters.ClientID
	if cur == "" {
		return clients[0].ID
	}
	for i, c := range clients {
		if c.ID == cur && i+1 < len(clients) {
			return clients[i+1].ID
		}
	}
	return ""
}
