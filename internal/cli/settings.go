package cli

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Agency-wide settings",
	}
	cmd.AddCommand(newSettingsDriveURLCmd(app))
	return cmd
}

func newSettingsDriveURLCmd(app *App) *cobra.Command {
	var set string
	cmd := &cobra.Command{
		Use:   "drive-url",
		Short: "Show or change the shared drive link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				if cmd.Flags().Changed("set") {
					if v := strings.TrimSpace(set); v != "" {
						if u, err := url.Parse(v); err != nil || u.Scheme == "" || u.Host == "" {
							return fmt.Errorf("invalid --set %q (expected an absolute URL)", set)
						}
					}
					if err := rt.store.SetDriveURL(ctx, set); err != nil {
						return err
					}
				}
				v, err := rt.store.DriveURL(ctx)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]string{"url": v})
			})
		},
	}
	cmd.Flags().StringVar(&set, "set", "", "New link (empty clears it)")
	return cmd
}
