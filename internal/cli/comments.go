package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"parrillas/internal/store"
)

func newCommentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Comment commands",
	}
	cmd.AddCommand(newCommentsAddCmd(app))
	cmd.AddCommand(newCommentsListCmd(app))
	return cmd
}

func newCommentsAddCmd(app *App) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add <item> [text...]",
		Short: "Comment on an item, optionally attaching a file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				it, err := resolveItem(rt.store.State(), args[0])
				if err != nil {
					return err
				}
				var att *store.Attachment
				if file != "" {
					f, err := os.Open(file)
					if err != nil {
						return err
					}
					defer f.Close()
					att = &store.Attachment{Name: filepath.Base(file), Body: f}
				}
				c, err := rt.store.AddComment(ctx, it.ID, strings.Join(args[1:], " "), att)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, c)
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Attach this file")
	return cmd
}

func newCommentsListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list <item>",
		Short: "List comments on an item, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				it, err := resolveItem(rt.store.State(), args[0])
				if err != nil {
					return err
				}
				comments := it.Comments
				if limit > 0 && len(comments) > limit {
					comments = comments[:limit]
				}
				return writeOut(cmd, app, comments)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many (0 = all)")
	return cmd
}
