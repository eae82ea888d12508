package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"parrillas/internal/board"
	"parrillas/internal/model"
	"parrillas/internal/notify"
)

// ColumnWidth is the width of one board column in text output.
const ColumnWidth = 28

// WriteText renders the payloads the CLI knows how to draw; anything else falls
// back to indented JSON. Colors are only emitted when w is a color terminal.
func WriteText(w io.Writer, v any) error {
	t := newTheme(lipgloss.NewRenderer(w))
	var out string
	switch x := v.(type) {
	case []board.Column:
		out = t.board(x)
	case []model.ContentItemWithRelations:
		out = t.itemList(x)
	case model.ContentItemWithRelations:
		out = t.itemDetail(x)
	case []model.CommentWithAuthor:
		out = t.comments(x)
	case board.Month:
		out = t.calendar(x)
	case board.Summary:
		out = t.dashboard(x)
	case []model.Client:
		out = t.clients(x)
	case []model.UserProfile:
		out = t.users(x)
	case notify.Snapshot:
		out = t.notifications(x)
	case string:
		out = x
	default:
		return WriteJSON(w, v, true)
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(out, "\n"))
	return err
}

type theme struct {
	r      *lipgloss.Renderer
	title  lipgloss.Style
	muted  lipgloss.Style
	urgent lipgloss.Style
	column lipgloss.Style
}

func newTheme(r *lipgloss.Renderer) theme {
	return theme{
		r:      r,
		title:  r.NewStyle().Bold(true),
		muted:  r.NewStyle().Faint(true),
		urgent: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5484D")),
		column: r.NewStyle().Width(ColumnWidth).PaddingRight(2),
	}
}

func (t theme) colored(hex, s string) string {
	if strings.TrimSpace(hex) == "" {
		return s
	}
	return t.r.NewStyle().Foreground(lipgloss.Color(hex)).Render(s)
}

func truncate(s string, n int) string {
	return ansi.Truncate(s, n, "…")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func priorityMark(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return "!!"
	case model.PriorityHigh:
		return "!"
	}
	return ""
}

func (t theme) card(it model.ContentItemWithRelations, width int) string {
	line := shortID(it.ID) + " " + it.Title
	if m := priorityMark(it.Priority); m != "" {
		line = t.urgent.Render(m) + " " + line
	}
	meta := t.colored(it.Client.Color, it.Client.Name)
	if it.DueDate != nil {
		meta += t.muted.Render(" · " + *it.DueDate)
	}
	return truncate(line, width) + "\n  " + truncate(meta, width-2)
}

func (t theme) board(cols []board.Column) string {
	rendered := make([]string, 0, len(cols))
	for _, c := range cols {
		var b strings.Builder
		head := fmt.Sprintf("%s %s (%d)", board.StatusIcon(c.Status.Icon), c.Status.Name, len(c.Items))
		b.WriteString(t.title.Render(t.colored(c.Status.Color, truncate(head, ColumnWidth))))
		b.WriteString("\n")
		if len(c.Items) == 0 {
			b.WriteString(t.muted.Render("sin contenido"))
		}
		for i, it := range c.Items {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(t.card(it, ColumnWidth))
		}
		rendered = append(rendered, t.column.Render(b.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (t theme) itemList(items []model.ContentItemWithRelations) string {
	if len(items) == 0 {
		return t.muted.Render("no items")
	}
	var b strings.Builder
	for _, it := range items {
		due := "-"
		if it.DueDate != nil {
			due = *it.DueDate
		}
		fmt.Fprintf(&b, "%s  %-10s  %-14s  %-16s  %s\n",
			shortID(it.ID),
			due,
			truncate(it.Status.Name, 14),
			truncate(it.Client.Name, 16),
			it.Title)
	}
	return b.String()
}

func names(users []model.UserProfile) string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.FullName)
	}
	return strings.Join(out, ", ")
}

func (t theme) itemDetail(it model.ContentItemWithRelations) string {
	var b strings.Builder
	b.WriteString(t.title.Render(it.Title))
	b.WriteString("\n")
	b.WriteString(t.muted.Render(it.ID))
	b.WriteString("\n\n")
	field := func(k, v string) {
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(&b, "%-10s %s\n", k+":", v)
	}
	field("status", board.StatusIcon(it.Status.Icon)+" "+it.Status.Name)
	field("client", t.colored(it.Client.Color, it.Client.Name))
	field("priority", string(it.Priority))
	if it.DueDate != nil {
		field("due", *it.DueDate)
	}
	field("assignees", names(it.Assignees))
	labels := make([]string, 0, len(it.Labels))
	for _, l := range it.Labels {
		labels = append(labels, t.colored(l.Color, l.Name))
	}
	field("labels", strings.Join(labels, " "))
	if len(it.Images) > 0 {
		field("images", fmt.Sprintf("%d/%d", len(it.Images), model.MaxImagesPerItem))
	}
	if it.Description != nil && strings.TrimSpace(*it.Description) != "" {
		b.WriteString("\n")
		b.WriteString(*it.Description)
		b.WriteString("\n")
	}
	if len(it.Comments) > 0 {
		b.WriteString("\n")
		b.WriteString(t.comments(it.Comments))
	}
	return b.String()
}

func (t theme) comments(cs []model.CommentWithAuthor) string {
	if len(cs) == 0 {
		return t.muted.Render("no comments")
	}
	var b strings.Builder
	for _, c := range cs {
		b.WriteString(t.title.Render(c.User.FullName))
		b.WriteString(t.muted.Render("  " + c.CreatedAt.Local().Format("2006-01-02 15:04")))
		b.WriteString("\n")
		if c.Content != "" {
			b.WriteString(c.Content)
			b.WriteString("\n")
		}
		if c.AttachmentURL != nil {
			b.WriteString(t.muted.Render("↳ " + *c.AttachmentURL))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (t theme) calendar(m board.Month) string {
	var b strings.Builder
	b.WriteString(t.title.Render(fmt.Sprintf("%s %d", m.Month, m.Year)))
	b.WriteString("\n")
	b.WriteString(t.muted.Render(" Do  Lu  Ma  Mi  Ju  Vi  Sá"))
	b.WriteString("\n")
	col := 0
	for ; col < m.Lead; col++ {
		b.WriteString("    ")
	}
	for i, d := range m.Days {
		cell := fmt.Sprintf("%3d", i+1)
		if len(d.Items) > 0 {
			cell = t.title.Render(cell) + "*"
		} else {
			cell += " "
		}
		b.WriteString(cell)
		col++
		if col%7 == 0 {
			b.WriteString("\n")
		}
	}
	if col%7 != 0 {
		b.WriteString("\n")
	}
	for _, d := range m.Days {
		for _, it := range d.Items {
			fmt.Fprintf(&b, "\n%s  %s  %s", d.Date, shortID(it.ID), it.Title)
		}
	}
	return b.String()
}

func (t theme) dashboard(s board.Summary) string {
	var b strings.Builder
	scope := "mis contenidos"
	if s.Management {
		scope = "toda la agencia"
	}
	b.WriteString(t.title.Render("Dashboard"))
	b.WriteString(t.muted.Render(" · " + scope))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%-22s %d\n", "Activos", s.Active)
	fmt.Fprintf(&b, "%-22s %s\n", "Urgentes", t.urgent.Render(fmt.Sprint(s.Urgent)))
	fmt.Fprintf(&b, "%-22s %d\n", "Vencen hoy o antes", s.OverdueOrToday)
	fmt.Fprintf(&b, "%-22s %d\n", "Revisiones pendientes", s.ReviewsPending)
	b.WriteString("\n")
	for _, bk := range s.Distribution {
		bar := strings.Repeat("█", int(bk.Percent/5))
		fmt.Fprintf(&b, "%-12s %3d %5.1f%% %s\n", bk.Name, bk.Count, bk.Percent, bar)
	}
	if len(s.Upcoming) > 0 {
		b.WriteString("\n")
		b.WriteString(t.title.Render("Próximas entregas"))
		b.WriteString("\n")
		b.WriteString(t.itemList(s.Upcoming))
	}
	return b.String()
}

func (t theme) clients(cs []model.Client) string {
	if len(cs) == 0 {
		return t.muted.Render("no clients")
	}
	var b strings.Builder
	for _, c := range cs {
		fmt.Fprintf(&b, "%s  %s  %s\n", shortID(c.ID), t.colored(c.Color, "●"), c.Name)
	}
	return b.String()
}

func (t theme) users(us []model.UserProfile) string {
	if len(us) == 0 {
		return t.muted.Render("no users")
	}
	var b strings.Builder
	for _, u := range us {
		fmt.Fprintf(&b, "%s  %-18s  %s\n", shortID(u.ID), string(u.Role), u.FullName)
	}
	return b.String()
}

func (t theme) notifications(s notify.Snapshot) string {
	var b strings.Builder
	b.WriteString(t.title.Render(fmt.Sprintf("%d sin leer", s.Unread)))
	b.WriteString("\n")
	for _, n := range s.Items {
		mark := " "
		if !n.IsRead {
			mark = "•"
		}
		fmt.Fprintf(&b, "%s %s  %s", mark, shortID(n.ID), n.Title)
		if n.Message != "" {
			b.WriteString(t.muted.Render(" · " + n.Message))
		}
		b.WriteString("\n")
	}
	return b.String()
}
