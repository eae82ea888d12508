package cli

import (
	"context"

	"github.com/spf13/cobra"

	"parrillas/internal/backend"
	"parrillas/internal/model"
	"parrillas/internal/notify"
)

func newNotificationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"inbox"},
		Short:   "Notification inbox commands",
	}
	cmd.AddCommand(newNotificationsListCmd(app))
	cmd.AddCommand(newNotificationsReadCmd(app))
	cmd.AddCommand(newNotificationsReadAllCmd(app))
	cmd.AddCommand(newNotificationsSendCmd(app))
	return cmd
}

// withInbox is withStore plus a loaded notification center for the acting user.
func withInbox(cmd *cobra.Command, app *App, fn func(ctx context.Context, rt *runtime, c *notify.Center) error) error {
	return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
		c := notify.New(rt.store, rt.feed, notify.WithLogger(app.log), notify.WithMetrics(app.metrics))
		if err := c.Fetch(ctx); err != nil {
			return err
		}
		return fn(ctx, rt, c)
	})
}

func newNotificationsListCmd(app *App) *cobra.Command {
	var unread bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show your latest notifications and the unread count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInbox(cmd, app, func(ctx context.Context, rt *runtime, c *notify.Center) error {
				snap := c.Snapshot()
				if unread {
					items := []model.Notification{}
					for _, n := range snap.Items {
						if !n.IsRead {
							items = append(items, n)
						}
					}
					snap.Items = items
				}
				return writeOut(cmd, app, snap)
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "Only unread notifications")
	return cmd
}

func newNotificationsReadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark one notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInbox(cmd, app, func(ctx context.Context, rt *runtime, c *notify.Center) error {
				n, err := resolve(backend.TableNotifications, args[0], c.Snapshot().Items,
					func(n model.Notification) string { return n.ID }, nil)
				if err != nil {
					return err
				}
				if err := c.MarkRead(ctx, n.ID); err != nil {
					return err
				}
				return writeOut(cmd, app, c.Snapshot())
			})
		},
	}
}

func newNotificationsReadAllCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInbox(cmd, app, func(ctx context.Context, rt *runtime, c *notify.Center) error {
				if err := c.MarkAllRead(ctx); err != nil {
					return err
				}
				return writeOut(cmd, app, c.Snapshot())
			})
		},
	}
}

func newNotificationsSendCmd(app *App) *cobra.Command {
	var to, title, message, typ, link string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a notification to a team member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseNotificationType(typ)
			if err != nil {
				return err
			}
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				u, err := resolveUser(rt.store.State(), to)
				if err != nil {
					return err
				}
				in := model.NewNotification{UserID: u.ID, Title: title, Message: message, Type: t}
				if link != "" {
					in.Link = &link
				}
				c := notify.New(rt.store, rt.feed, notify.WithLogger(app.log), notify.WithMetrics(app.metrics))
				n, err := c.Send(ctx, in)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, n)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Recipient (id or name)")
	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&message, "message", "", "Message")
	cmd.Flags().StringVar(&typ, "type", "info", "Type (info|success|warning|error)")
	cmd.Flags().StringVar(&link, "link", "", "Optional link")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}
