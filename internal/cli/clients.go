package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"parrillas/internal/model"
)

func newClientsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Client commands",
	}
	cmd.AddCommand(newClientsListCmd(app))
	cmd.AddCommand(newClientsCreateCmd(app))
	cmd.AddCommand(newClientsDeleteCmd(app))
	return cmd
}

func newClientsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List clients by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				return writeOut(cmd, app, rt.store.State().Clients)
			})
		},
	}
}

func newClientsCreateCmd(app *App) *cobra.Command {
	var color, email, phone string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Add a client",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				in := model.NewClient{Name: strings.Join(args, " "), Color: color}
				if email != "" {
					in.ContactEmail = &email
				}
				if phone != "" {
					in.ContactPhone = &phone
				}
				c, err := rt.store.CreateClient(ctx, in)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, c)
			})
		},
	}
	cmd.Flags().StringVar(&color, "color", "#6366f1", "Hex color")
	cmd.Flags().StringVar(&email, "email", "", "Contact email")
	cmd.Flags().StringVar(&phone, "phone", "", "Contact phone")
	return cmd
}

func newClientsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <client>",
		Short: "Delete a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				c, err := resolveClient(rt.store.State(), args[0])
				if err != nil {
					return err
				}
				if err := rt.store.DeleteClient(ctx, c.ID); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]string{"deleted": c.ID})
			})
		},
	}
}
