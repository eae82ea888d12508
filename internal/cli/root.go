package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"parrillas/internal/config"
	"parrillas/internal/format"
	"parrillas/internal/logging"
	"parrillas/internal/metrics"
)

type App struct {
	ConfigDir  string
	Backend    string
	DBPath     string
	UserID     string
	PrettyJSON bool
	Format     string
	LogLevel   string

	cfg     *config.Config
	log     *logrus.Logger
	metrics *metrics.Metrics
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "parrillas",
		Short:        "Content calendar board for the agency (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive board
  parrillas

  # Scriptable commands
  parrillas list --client "Café Aroma" --date 2026-01-20
  parrillas move <item-id> "Diseño"

  # Direct item lookup (shortcut for: parrillas show <item-id>)
  parrillas 0f8fad5b-d9cb-469f-a165-70867728950e
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive board.
			if len(args) == 0 {
				return runWatch(cmd, app, watchOptions{poll: defaultPoll})
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup()
	}

	cmd.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", envOr("PARRILLAS_CONFIG_DIR", ""), "Config directory (default: ~/.parrillas)")
	cmd.PersistentFlags().StringVar(&app.Backend, "backend", "", "Backend (local|remote); overrides config")
	cmd.PersistentFlags().StringVar(&app.DBPath, "db", "", "SQLite database path for the local backend")
	cmd.PersistentFlags().StringVar(&app.UserID, "as", "", "Acting user id for the local backend")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("PARRILLAS_FORMAT", "json"), "Output format (json|text)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newBoardCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newCreateCmd(app))
	cmd.AddCommand(newUpdateCmd(app))
	cmd.AddCommand(newMoveCmd(app))
	cmd.AddCommand(newAssignCmd(app))
	cmd.AddCommand(newLabelCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newCommentsCmd(app))
	cmd.AddCommand(newImagesCmd(app))
	cmd.AddCommand(newClientsCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newNotificationsCmd(app))
	cmd.AddCommand(newSettingsCmd(app))
	cmd.AddCommand(newProfileCmd(app))
	cmd.AddCommand(newCalendarCmd(app))
	cmd.AddCommand(newDashboardCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// setup loads config, applies flag overrides and builds the logger.
func (app *App) setup() error {
	cfg, err := config.Load(app.ConfigDir)
	if err != nil {
		return err
	}
	if app.Backend != "" {
		cfg.Backend = app.Backend
	}
	if app.DBPath != "" {
		cfg.Local.DBPath = app.DBPath
	}
	if app.UserID != "" {
		cfg.UserID = app.UserID
	}
	if app.LogLevel != "" {
		cfg.Log.Level = app.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, System: "parrillas"})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	app.cfg = cfg
	app.log = log
	app.metrics = metrics.New()
	return nil
}

func (app *App) configDir() (string, error) {
	if strings.TrimSpace(app.ConfigDir) != "" {
		return app.ConfigDir, nil
	}
	return config.Dir()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// warnf reports a best-effort failure without failing the command.
func warnf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: "+format+"\n", args...)
}
