package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"parrillas/internal/model"
	"parrillas/internal/statusutil"
)

func newCreateCmd(app *App) *cobra.Command {
	var (
		status, client, due, priority, description string
		assignees, labels                           []string
	)
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a content item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				st := rt.store.State()
				in := model.NewContentItem{Title: strings.Join(args, " ")}

				if status == "" {
					ordered := statusutil.Ordered(st.Statuses)
					if len(ordered) > 0 {
						in.StatusID = ordered[0].ID
					}
				} else {
					s, err := resolveStatus(st, status)
					if err != nil {
						return err
					}
					in.StatusID = s.ID
				}
				c, err := resolveClient(st, client)
				if err != nil {
					return err
				}
				in.ClientID = c.ID
				if due != "" {
					in.DueDate = &due
				}
				if description != "" {
					in.Description = &description
				}
				p, err := model.ParsePriority(priority)
				if err != nil {
					return err
				}
				in.Priority = p

				users, err := userIDs(st, assignees)
				if err != nil {
					return err
				}
				lbls, err := labelIDs(st, labels)
				if err != nil {
					return err
				}
				created, err := rt.store.CreateContentItem(ctx, in, users, lbls)
				if err != nil {
					return err
				}
				if it, ok := rt.store.State().FindItem(created.ID); ok {
					return writeOut(cmd, app, it)
				}
				return writeOut(cmd, app, created)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Status (id, name or icon tag; default: first column)")
	cmd.Flags().StringVar(&client, "client", "", "Client (id or name)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&priority, "priority", "medium", "Priority (low|medium|high|urgent)")
	cmd.Flags().StringVar(&description, "description", "", "Description (markdown)")
	cmd.Flags().StringSliceVar(&assignees, "assignee", nil, "Assignee (id or name); repeatable")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "Label (id or name); repeatable")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}

func newUpdateCmd(app *App) *cobra.Command {
	var title, description, due, priority, client string
	cmd := &cobra.Command{
		Use:   "update <item>",
		Short: "Change an item's fields (empty --due or --description clears them)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				st := rt.store.State()
				it, err := resolveItem(st, args[0])
				if err != nil {
					return err
				}
				var patch model.ContentItemPatch
				flags := cmd.Flags()
				if flags.Changed("title") {
					patch.Title = &title
				}
				if flags.Changed("description") {
					patch.Description = &description
				}
				if flags.Changed("due") {
					patch.DueDate = &due
				}
				if flags.Changed("priority") {
					p, err := model.ParsePriority(priority)
					if err != nil {
						return err
					}
					patch.Priority = &p
				}
				if flags.Changed("client") {
					c, err := resolveClient(st, client)
					if err != nil {
						return err
					}
					patch.ClientID = &c.ID
				}
				if err := rt.store.UpdateFields(ctx, it.ID, patch); err != nil {
					return err
				}
				return writeItem(cmd, app, rt, it.ID)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&priority, "priority", "", "New priority (low|medium|high|urgent)")
	cmd.Flags().StringVar(&client, "client", "", "New client (id or name)")
	return cmd
}

func newMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <item> <status>",
		Short: "Move an item to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				st := rt.store.State()
				it, err := resolveItem(st, args[0])
				if err != nil {
					return err
				}
				s, err := resolveStatus(st, args[1])
				if err != nil {
					return err
				}
				if err := rt.store.UpdateStatus(ctx, it.ID, s.ID); err != nil {
					return err
				}
				return writeItem(cmd, app, rt, it.ID)
			})
		},
	}
}

func newAssignCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <item> [user...]",
		Short: "Set the exact assignees of an item (no users clears them)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				st := rt.store.State()
				it, err := resolveItem(st, args[0])
				if err != nil {
					return err
				}
				ids, err := userIDs(st, args[1:])
				if err != nil {
					return err
				}
				if err := rt.store.UpdateAssignees(ctx, it.ID, ids); err != nil {
					return err
				}
				return writeItem(cmd, app, rt, it.ID)
			})
		},
	}
}

func newLabelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "label <item> [label...]",
		Short: "Set the exact labels of an item (no labels clears them)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				st := rt.store.State()
				it, err := resolveItem(st, args[0])
				if err != nil {
					return err
				}
				ids, err := labelIDs(st, args[1:])
				if err != nil {
					return err
				}
				if err := rt.store.UpdateLabels(ctx, it.ID, ids); err != nil {
					return err
				}
				return writeItem(cmd, app, rt, it.ID)
			})
		},
	}
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <item>",
		Short: "Delete an item with its comments and images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				it, err := resolveItem(rt.store.State(), args[0])
				if err != nil {
					return err
				}
				for _, img := range it.Images {
					if err := rt.store.DeleteImage(ctx, it.ID, img.ID, img.URL); err != nil {
						warnf(cmd, "image %s not removed: %v", img.ID, err)
					}
				}
				if err := rt.store.DeleteContentItem(ctx, it.ID); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]string{"deleted": it.ID})
			})
		},
	}
}

func writeItem(cmd *cobra.Command, app *App, rt *runtime, id string) error {
	it, ok := rt.store.State().FindItem(id)
	if !ok {
		return writeOut(cmd, app, map[string]string{"id": id})
	}
	return writeOut(cmd, app, it)
}
