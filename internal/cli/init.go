package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"parrillas/internal/backend/sqlite"
	"parrillas/internal/config"
	"parrillas/internal/model"
)

func newInitCmd(app *App) *cobra.Command {
	var (
		demo bool
		name string
		role string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the config file and prepare the local database",
		Long: strings.TrimSpace(`
Writes <config dir>/config.json with the effective settings. For the local backend
it also creates the SQLite database, seeds the default statuses and labels, and with
--name registers the acting user.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := app.configDir()
			if err != nil {
				return err
			}
			cfg := app.cfg
			out := map[string]any{
				"config":  config.Path(dir),
				"backend": cfg.Backend,
			}

			if cfg.Backend == config.BackendLocal {
				db, err := sqlite.Open(cmd.Context(), cfg.Local.DBPath)
				if err != nil {
					return err
				}
				defer db.Close()
				seeded, err := db.Seed(cmd.Context(), demo)
				if err != nil {
					return err
				}
				out["db"] = cfg.Local.DBPath
				out["seeded"] = seeded

				if strings.TrimSpace(name) != "" {
					r, err := model.ParseRole(role)
					if err != nil {
						return err
					}
					u, err := db.UpsertUser(cmd.Context(), model.UserProfile{
						ID:       cfg.UserID,
						FullName: strings.TrimSpace(name),
						Role:     r,
					})
					if err != nil {
						return err
					}
					cfg.UserID = u.ID
					out["user"] = u
				}
			}

			if err := cfg.Save(dir); err != nil {
				return err
			}
			return writeOut(cmd, app, out)
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "Also insert sample clients")
	cmd.Flags().StringVar(&name, "name", "", "Register the acting user with this full name")
	cmd.Flags().StringVar(&role, "role", string(model.RoleContentManager), "Role of the registered user")
	return cmd
}
