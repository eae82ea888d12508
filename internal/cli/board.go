package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"parrillas/internal/board"
	"parrillas/internal/model"
	"parrillas/internal/store"
)

type filterFlags struct {
	client string
	date   string
	role   string
	user   string
	search string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.client, "client", "", "Only items of this client (id or name)")
	cmd.Flags().StringVar(&f.date, "date", "", "Only items due on this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.role, "role", "", "Only items with an assignee of this role")
	cmd.Flags().StringVar(&f.user, "user", "", "Only items assigned to this user (id or name)")
	cmd.Flags().StringVar(&f.search, "search", "", "Search title, client name and description")
}

// apply resolves the flags against the loaded board and sets the store filters.
func (f *filterFlags) apply(s *store.Store) error {
	st := s.State()
	if f.client != "" {
		c, err := resolveClient(st, f.client)
		if err != nil {
			return err
		}
		s.SetFilterClient(c.ID)
	}
	if f.date != "" {
		if _, err := time.Parse(board.DateLayout, f.date); err != nil {
			return fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", f.date)
		}
		s.SetFilterDate(f.date)
	}
	if f.role != "" {
		r, err := model.ParseRole(f.role)
		if err != nil {
			return err
		}
		s.SetFilterRole(string(r))
	}
	if f.user != "" {
		u, err := resolveUser(st, f.user)
		if err != nil {
			return err
		}
		s.SetFilterUser(u.ID)
	}
	if f.search != "" {
		s.SetSearch(f.search)
	}
	return nil
}

func newBoardCmd(app *App) *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the board: one column per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				if err := f.apply(rt.store); err != nil {
					return err
				}
				return writeOut(cmd, app, rt.store.State().Columns())
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newListCmd(app *App) *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items matching the filters, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				if err := f.apply(rt.store); err != nil {
					return err
				}
				return writeOut(cmd, app, rt.store.FilteredItems())
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <item>",
		Short: "Show one item with its relations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				it, err := resolveItem(rt.store.State(), args[0])
				if err != nil {
					return err
				}
				return writeOut(cmd, app, it)
			})
		},
	}
}

func newCalendarCmd(app *App) *cobra.Command {
	var (
		month string
		f     filterFlags
	)
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show items by due date for one month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now()
			if strings.TrimSpace(month) != "" {
				t, err := time.Parse("2006-01", month)
				if err != nil {
					return fmt.Errorf("invalid --month %q (expected YYYY-MM)", month)
				}
				at = t
			}
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				if err := f.apply(rt.store); err != nil {
					return err
				}
				return writeOut(cmd, app, board.CalendarMonth(rt.store.FilteredItems(), at.Year(), at.Month()))
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to show (YYYY-MM, default: current)")
	f.register(cmd)
	return cmd
}

func newDashboardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize workload for the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				st := rt.store.State()
				if st.CurrentUser == nil {
					return fmt.Errorf("dashboard needs an acting user with a profile; %s", noUserHint)
				}
				return writeOut(cmd, app, board.Dashboard(st.Items, *st.CurrentUser, time.Now()))
			})
		},
	}
}
