package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"parrillas/internal/backend"
	"parrillas/internal/store"
)

func newImagesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Image commands",
	}
	cmd.AddCommand(newImagesAddCmd(app))
	cmd.AddCommand(newImagesRemoveCmd(app))
	return cmd
}

func newImagesAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <item> <file>",
		Short: "Upload an image and attach it to an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				it, err := resolveItem(rt.store.State(), args[0])
				if err != nil {
					return err
				}
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				img, err := rt.store.AddImage(ctx, it.ID, store.Attachment{Name: filepath.Base(args[1]), Body: f})
				if err != nil {
					return err
				}
				return writeOut(cmd, app, img)
			})
		},
	}
}

func newImagesRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <item> <image-id>",
		Aliases: []string{"remove"},
		Short:   "Remove an image from an item",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				it, err := resolveItem(rt.store.State(), args[0])
				if err != nil {
					return err
				}
				for _, img := range it.Images {
					if img.ID == args[1] {
						if err := rt.store.DeleteImage(ctx, it.ID, img.ID, img.URL); err != nil {
							return err
						}
						return writeOut(cmd, app, map[string]string{"deleted": img.ID})
					}
				}
				return backend.NotFoundError{Table: backend.TableImages, ID: args[1]}
			})
		},
	}
}
