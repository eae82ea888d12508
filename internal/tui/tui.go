// Package tui is the interactive board: kanban columns over the store, an item
// pane with markdown rendering, search and client filters, and the notification
// inbox. It redraws whenever the store or the notification center changes.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"parrillas/internal/model"
	"parrillas/internal/notify"
	"parrillas/internal/store"
)

// Run blocks until the user quits or ctx is canceled. center and toasts may be nil.
func Run(ctx context.Context, s *store.Store, center *notify.Center, toasts <-chan model.Notification) error {
	applyThemePreference()
	applyColorProfilePreference()
	applyGlyphPreference()

	changes, unsubscribe := s.Subscribe()
	defer unsubscribe()

	m := newAppModel(ctx, s, center, changes, toasts)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
