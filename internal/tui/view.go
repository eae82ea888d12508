package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"parrillas/internal/board"
	"parrillas/internal/model"
	"parrillas/internal/store"
)

const minColumnWidth = 18

func (m appModel) View() string {
	st := m.store.State()
	var body string
	switch m.mode {
	case modeDetail, modeComment:
		body = m.detail.View()
		if m.mode == modeComment {
			body = fitPane(body, m.width, m.bodyHeight()-1) + "\n" + m.comment.View()
		}
	case modeInbox:
		body = m.renderInbox(m.bodyHeight())
	default:
		body = renderColumns(st.Columns(), m.itemID, m.width, m.bodyHeight())
	}

	parts := []string{
		m.renderHeader(st),
		m.renderFilterLine(st),
		fitPane(body, m.width, m.bodyHeight()),
		m.renderFooter(st),
		m.help.View(m.helpKeys()),
	}
	return strings.Join(parts, "\n")
}

func (m appModel) renderHeader(st store.State) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render("Parrillas")
	right := ""
	if st.CurrentUser != nil {
		right = st.CurrentUser.FullName
	}
	if m.center != nil {
		if n := m.center.Unread(); n > 0 {
			right += fmt.Sprintf(" %s%d sin leer", glyphSep(), n)
		}
	}
	if st.Loading {
		right = "cargando" + glyphEllipsis() + "  " + right
	}
	gap := m.width - xansi.StringWidth(title) - xansi.StringWidth(right)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + styleMuted().Render(right)
}

func (m appModel) renderFilterLine(st store.State) string {
	if m.mode == modeSearch {
		return m.search.View()
	}
	f := st.Filters
	if !f.Active() {
		return styleMuted().Render(fmt.Sprintf("%d contenidos", len(st.Items)))
	}
	var parts []string
	if f.ClientID != "" {
		name := f.ClientID
		if c, ok := st.FindClient(f.ClientID); ok {
			name = c.Name
		}
		parts = append(parts, "cliente: "+name)
	}
	if f.UserID != "" {
		name := f.UserID
		if u, ok := st.FindUser(f.UserID); ok {
			name = u.FullName
		}
		parts = append(parts, "asignado: "+name)
	}
	if f.Role != "" {
		parts = append(parts, "rol: "+f.Role)
	}
	if f.Date != "" {
		parts = append(parts, "fecha: "+f.Date)
	}
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("buscar: %q", f.Search))
	}
	return styleMuted().Render(fmt.Sprintf("%d de %d%s%s", len(st.FilteredItems()), len(st.Items), glyphSep(), strings.Join(parts, glyphSep())))
}

func (m appModel) renderFooter(st store.State) string {
	switch {
	case m.toast != nil:
		return toastStyle(m.toast.Type).Render(xansi.Truncate(m.toast.Title+glyphSep()+m.toast.Message, m.width, glyphEllipsis()))
	case m.flash != "":
		return lipgloss.NewStyle().Foreground(colorError).Render(xansi.Truncate(m.flash, m.width, glyphEllipsis()))
	case st.Err != "":
		return lipgloss.NewStyle().Foreground(colorError).Render(xansi.Truncate(st.Err, m.width, glyphEllipsis()))
	}
	return ""
}

func toastStyle(t model.NotificationType) lipgloss.Style {
	st := lipgloss.NewStyle().Bold(true)
	switch t {
	case model.NotificationError:
		return st.Foreground(colorError)
	case model.NotificationSuccess:
		return st.Foreground(colorSuccess)
	case model.NotificationWarning:
		return st.Foreground(colorWarning)
	}
	return st.Foreground(colorAccent)
}

// renderColumns draws one column per status. Columns shrink to fit the width but
// never below minColumnWidth; overflowing columns are cut at the right edge.
func renderColumns(cols []board.Column, selectedID string, width, height int) string {
	n := len(cols)
	if n == 0 {
		return styleMuted().Render("sin estados")
	}
	gap := 1
	colW := (width - gap*(n-1)) / n
	if colW < minColumnWidth {
		colW = minColumnWidth
	}
	inner := colW - 2

	card := lipgloss.NewStyle().Width(colW).Padding(0, 1)
	selected := card.Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)
	meta := faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))

	rendered := make([]string, 0, n)
	for _, c := range cols {
		header := lipgloss.NewStyle().Bold(true).Width(colW).Padding(0, 1).
			Background(colorControlBg).Foreground(hexColor(c.Status.Color)).
			Render(xansi.Truncate(fmt.Sprintf("%s %s (%d)", board.StatusIcon(c.Status.Icon), c.Status.Name, len(c.Items)), inner, glyphEllipsis()))
		lines := []string{header}
		if len(c.Items) == 0 {
			lines = append(lines, card.Render(meta.Render("sin contenido")))
		}
		for _, it := range c.Items {
			title := xansi.Truncate(priorityMark(it.Priority)+it.Title, inner, glyphEllipsis())
			sub := it.Client.Name
			if it.DueDate != nil {
				sub += glyphSep() + *it.DueDate
			}
			if len(it.Comments) > 0 {
				sub += fmt.Sprintf("%s%d com.", glyphSep(), len(it.Comments))
			}
			sub = xansi.Truncate(sub, inner, glyphEllipsis())
			if it.ID == selectedID {
				lines = append(lines, selected.Render(title), selected.Render(sub))
			} else {
				lines = append(lines, card.Render(title), card.Render(meta.Render(sub)))
			}
		}
		rendered = append(rendered, fitPane(strings.Join(lines, "\n"), colW, height))
	}

	sep := strings.TrimSuffix(strings.Repeat(strings.Repeat(" ", gap)+"\n", height), "\n")
	joined := make([]string, 0, 2*n-1)
	for i, r := range rendered {
		if i > 0 {
			joined = append(joined, sep)
		}
		joined = append(joined, r)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, joined...)
}

func priorityMark(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return "!! "
	case model.PriorityHigh:
		return "! "
	}
	return ""
}

// renderDetail is the scrollable content of the item pane.
func renderDetail(it model.ContentItemWithRelations, width int) string {
	bold := lipgloss.NewStyle().Bold(true)
	muted := styleMuted()
	var b strings.Builder

	b.WriteString(bold.Render(it.Title) + "\n")
	field := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		b.WriteString(muted.Render(fmt.Sprintf("%-11s", label)) + value + "\n")
	}
	field("Estado", board.StatusIcon(it.Status.Icon)+" "+lipgloss.NewStyle().Foreground(hexColor(it.Status.Color)).Render(it.Status.Name))
	field("Cliente", lipgloss.NewStyle().Foreground(hexColor(it.Client.Color)).Render(it.Client.Name))
	field("Prioridad", string(it.Priority))
	if it.DueDate != nil {
		field("Entrega", *it.DueDate)
	}
	names := make([]string, 0, len(it.Assignees))
	for _, u := range it.Assignees {
		names = append(names, fmt.Sprintf("%s (%s)", u.FullName, u.Role))
	}
	field("Asignados", strings.Join(names, ", "))
	labels := make([]string, 0, len(it.Labels))
	for _, l := range it.Labels {
		labels = append(labels, lipgloss.NewStyle().Foreground(hexColor(l.Color)).Render("#"+l.Name))
	}
	field("Etiquetas", strings.Join(labels, " "))

	if it.Description != nil && strings.TrimSpace(*it.Description) != "" {
		b.WriteString("\n" + renderMarkdown(*it.Description, width-2) + "\n")
	}

	if len(it.Images) > 0 {
		b.WriteString("\n" + bold.Render(fmt.Sprintf("Imágenes (%d/%d)", len(it.Images), model.MaxImagesPerItem)) + "\n")
		for _, img := range it.Images {
			b.WriteString("  " + xansi.Truncate(img.URL, width-2, glyphEllipsis()) + "\n")
		}
	}

	b.WriteString("\n" + bold.Render(fmt.Sprintf("Comentarios (%d)", len(it.Comments))) + "\n")
	for _, c := range it.Comments {
		b.WriteString(muted.Render(fmt.Sprintf("%s%s%s", c.User.FullName, glyphSep(), c.CreatedAt.Local().Format("02/01 15:04"))) + "\n")
		if strings.TrimSpace(c.Content) != "" {
			b.WriteString(renderMarkdown(c.Content, width-4) + "\n")
		}
		if c.AttachmentURL != nil {
			b.WriteString("  adjunto: " + *c.AttachmentURL + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m appModel) renderInbox(height int) string {
	snap := m.center.Snapshot()
	if len(snap.Items) == 0 {
		return styleMuted().Render("Sin notificaciones")
	}
	lines := []string{lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Notificaciones%s%d sin leer", glyphSep(), snap.Unread))}
	for i, n := range snap.Items {
		mark := "  "
		if !n.IsRead {
			mark = glyphUnread() + " "
		}
		line := xansi.Truncate(fmt.Sprintf("%s%s  %s%s%s", mark, n.CreatedAt.Local().Format("02/01 15:04"), n.Title, glyphSep(), n.Message), m.width-2, glyphEllipsis())
		st := lipgloss.NewStyle().Padding(0, 1)
		if i == m.inboxRow {
			st = st.Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)
		} else if n.IsRead {
			st = faintIfDark(st.Foreground(colorMuted))
		}
		lines = append(lines, st.Render(line))
		if len(lines) >= height {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// fitPane forces s to exactly width columns (ANSI-aware) and height lines.
func fitPane(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	for i, ln := range lines {
		w := xansi.StringWidth(ln)
		if w > width {
			ln = xansi.Truncate(ln, width, glyphEllipsis())
			w = xansi.StringWidth(ln)
		}
		if w < width {
			ln += strings.Repeat(" ", width-w)
		}
		lines[i] = ln
	}
	return strings.Join(lines, "\n")
}
