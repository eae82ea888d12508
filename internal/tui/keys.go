package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Left, Right, Up, Down key.Binding
	MoveLeft, MoveRight   key.Binding
	Open, Back            key.Binding
	Search, Client, Mine  key.Binding
	ClearFilters          key.Binding
	Comment               key.Binding
	Inbox, ReadAll        key.Binding
	Reload, Help, Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Left:         key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/l", "column")),
		Right:        key.NewBinding(key.WithKeys("l", "right")),
		Up:           key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("j/k", "item")),
		Down:         key.NewBinding(key.WithKeys("j", "down")),
		MoveLeft:     key.NewBinding(key.WithKeys("H", "shift+left"), key.WithHelp("H/L", "move status")),
		MoveRight:    key.NewBinding(key.WithKeys("L", "shift+right")),
		Open:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Search:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Client:       key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "client")),
		Mine:         key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mine")),
		ClearFilters: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filters")),
		Comment:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comment")),
		Inbox:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "inbox")),
		ReadAll:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "read all")),
		Reload:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// boardKeys satisfies help.KeyMap for the board screen.
type boardKeys struct{ k keyMap }

func (b boardKeys) ShortHelp() []key.Binding {
	return []key.Binding{b.k.Left, b.k.Up, b.k.MoveLeft, b.k.Open, b.k.Search, b.k.Inbox, b.k.Help, b.k.Quit}
}

func (b boardKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{b.k.Left, b.k.Up, b.k.MoveLeft, b.k.Open},
		{b.k.Search, b.k.Client, b.k.Mine, b.k.ClearFilters},
		{b.k.Inbox, b.k.Reload, b.k.Help, b.k.Quit},
	}
}

type detailKeys struct{ k keyMap }

func (d detailKeys) ShortHelp() []key.Binding {
	return []key.Binding{d.k.Up, d.k.MoveLeft, d.k.Comment, d.k.Back}
}

func (d detailKeys) FullHelp() [][]key.Binding { return [][]key.Binding{d.ShortHelp()} }

type inboxKeys struct{ k keyMap }

func (i inboxKeys) ShortHelp() []key.Binding {
	return []key.Binding{i.k.Up, key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "mark read")), i.k.ReadAll, i.k.Back}
}

func (i inboxKeys) FullHelp() [][]key.Binding { return [][]key.Binding{i.ShortHelp()} }
