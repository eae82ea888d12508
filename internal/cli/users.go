package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"parrillas/internal/model"
	"parrillas/internal/store"
)

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Team member commands",
	}
	cmd.AddCommand(newUsersListCmd(app))
	cmd.AddCommand(newUsersAddCmd(app))
	return cmd
}

func newUsersListCmd(app *App) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List team members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				users := rt.store.State().Users
				if role == "" {
					return writeOut(cmd, app, users)
				}
				r, err := model.ParseRole(role)
				if err != nil {
					return err
				}
				out := []model.UserProfile{}
				for _, u := range users {
					if u.Role == r {
						out = append(out, u)
					}
				}
				return writeOut(cmd, app, out)
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "Only members with this role")
	return cmd
}

func newUsersAddCmd(app *App) *cobra.Command {
	var role, id string
	cmd := &cobra.Command{
		Use:   "add <full name>",
		Short: "Register a team member profile",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := model.ParseRole(role)
			if err != nil {
				return err
			}
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				u, err := rt.be.UpsertUser(ctx, model.UserProfile{
					ID:       strings.TrimSpace(id),
					FullName: strings.Join(args, " "),
					Role:     r,
				})
				if err != nil {
					return err
				}
				return writeOut(cmd, app, u)
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", string(model.RoleDesigner), "Role (Designer|Content Manager|Creative Director|CEO)")
	cmd.Flags().StringVar(&id, "id", "", "Profile id (default: generated; remote profiles use the auth user id)")
	return cmd
}

func newProfileCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change the acting user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				u, err := currentUser(rt)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, u)
			})
		},
	}
	cmd.AddCommand(newProfileNameCmd(app))
	cmd.AddCommand(newProfileAvatarCmd(app))
	cmd.AddCommand(newProfilePrefsCmd(app))
	return cmd
}

func currentUser(rt *runtime) (model.UserProfile, error) {
	u := rt.store.State().CurrentUser
	if u == nil {
		return model.UserProfile{}, errors.New("no profile for the acting user; " + noUserHint)
	}
	return *u, nil
}

func writeProfile(cmd *cobra.Command, app *App, rt *runtime) error {
	u, err := currentUser(rt)
	if err != nil {
		return err
	}
	return writeOut(cmd, app, u)
}

func newProfileNameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "name <full name>",
		Short: "Change your display name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				name := strings.TrimSpace(strings.Join(args, " "))
				if name == "" {
					return errors.New("name is empty")
				}
				if err := rt.store.UpdateProfile(ctx, model.ProfilePatch{FullName: &name}); err != nil {
					return err
				}
				return writeProfile(cmd, app, rt)
			})
		},
	}
}

func newProfileAvatarCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "avatar <file>",
		Short: "Upload a profile photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				if _, err := rt.store.UploadAvatar(ctx, store.Attachment{Name: filepath.Base(args[0]), Body: f}); err != nil {
					return err
				}
				return writeProfile(cmd, app, rt)
			})
		},
	}
}

func newProfilePrefsCmd(app *App) *cobra.Command {
	var notifications, email string
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Change notification preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, rt *runtime) error {
				u, err := currentUser(rt)
				if err != nil {
					return err
				}
				prefs := model.Preferences{Notifications: &model.NotificationPrefs{}}
				if u.Preferences != nil && u.Preferences.Notifications != nil {
					n := *u.Preferences.Notifications
					prefs.Notifications = &n
				}
				if cmd.Flags().Changed("notifications") {
					v, err := parseOnOff("notifications", notifications)
					if err != nil {
						return err
					}
					prefs.Notifications.All = &v
				}
				if cmd.Flags().Changed("email") {
					v, err := parseOnOff("email", email)
					if err != nil {
						return err
					}
					prefs.Notifications.Email = &v
				}
				if err := rt.store.UpdatePreferences(ctx, prefs); err != nil {
					return err
				}
				return writeProfile(cmd, app, rt)
			})
		},
	}
	cmd.Flags().StringVar(&notifications, "notifications", "", "In-app alerts (on|off)")
	cmd.Flags().StringVar(&email, "email", "", "Email notifications (on|off)")
	return cmd
}

func parseOnOff(flag, v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid --%s %q (expected on|off)", flag, v)
}
