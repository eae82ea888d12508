package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"

	"parrillas/internal/auth"
	"parrillas/internal/backend"
	"parrillas/internal/backend/postgres"
	"parrillas/internal/backend/sqlite"
	"parrillas/internal/config"
	"parrillas/internal/filestore"
	"parrillas/internal/logging"
	"parrillas/internal/realtime"
	"parrillas/internal/realtime/phoenix"
	"parrillas/internal/store"
)

const noUserHint = "run `parrillas init --name ...` or pass --as <user-id>"

// runtime is the wired set of collaborators one command runs against.
type runtime struct {
	be      backend.Backend
	files   filestore.Storage
	session auth.Session
	feed    realtime.Feed
	store   *store.Store

	// local is set for the SQLite backend; hub receives its change events.
	local *sqlite.DB
	hub   *realtime.Hub

	closers []func() error
}

func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type openOptions struct {
	// live opens a realtime feed. Only long-running commands need one.
	live bool
}

func openRuntime(ctx context.Context, app *App, opts openOptions) (*runtime, error) {
	var (
		rt  *runtime
		err error
	)
	switch app.cfg.Backend {
	case config.BackendRemote:
		rt, err = openRemote(ctx, app, opts)
	default:
		rt, err = openLocal(ctx, app)
	}
	if err != nil {
		return nil, err
	}
	rt.store = store.New(rt.be, rt.session,
		store.WithFiles(rt.files),
		store.WithLogger(app.log),
		store.WithMetrics(app.metrics),
	)
	return rt, nil
}

func openLocal(ctx context.Context, app *App) (*runtime, error) {
	hub := realtime.NewHub()
	db, err := sqlite.Open(ctx, app.cfg.Local.DBPath, sqlite.WithPublisher(hub))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", app.cfg.Local.DBPath, err)
	}
	rt := &runtime{
		be:      db,
		local:   db,
		hub:     hub,
		feed:    hub,
		session: auth.NewStatic(app.cfg.UserID, ""),
		closers: []func() error{db.Close},
	}
	files, err := filestore.NewLocal(app.cfg.Local.FilesDir, app.cfg.Local.FilesBaseURL)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("open files dir: %w", err)
	}
	rt.files = files
	return rt, nil
}

func openRemote(ctx context.Context, app *App, opts openOptions) (*runtime, error) {
	sb := app.cfg.Supabase
	session, err := auth.FromAccessToken(sb.AccessToken, []byte(sb.JWTSecret))
	if err != nil {
		return nil, err
	}
	gormLog := logger.New(logging.Component(app.log, "gorm"), logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormLevel(app.log.GetLevel()),
		IgnoreRecordNotFoundError: true,
	})
	db, err := postgres.Open(sb.DatabaseURL, postgres.Options{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rt := &runtime{be: db, session: session, closers: []func() error{db.Close}}

	if sb.S3AccessKey != "" {
		files, err := filestore.NewS3(filestore.S3Config{
			Endpoint:      sb.S3Endpoint,
			Region:        sb.S3Region,
			AccessKey:     sb.S3AccessKey,
			SecretKey:     sb.S3SecretKey,
			PublicBaseURL: strings.TrimRight(sb.URL, "/") + "/storage/v1/object/public",
		})
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.files = files
	}

	if opts.live {
		feed, err := phoenix.New(phoenix.Config{
			URL:         sb.URL,
			APIKey:      sb.AnonKey,
			AccessToken: session.Token(),
		}, app.log, phoenix.WithMetrics(app.metrics))
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("realtime: %w", err)
		}
		rt.feed = feed
		rt.closers = append(rt.closers, feed.Close)
	}
	return rt, nil
}

func gormLevel(l logrus.Level) logger.LogLevel {
	switch {
	case l >= logrus.DebugLevel:
		return logger.Info
	case l >= logrus.WarnLevel:
		return logger.Warn
	default:
		return logger.Error
	}
}

// withStore opens a runtime, loads the board and the session user, runs fn, and
// closes everything.
func withStore(cmd *cobra.Command, app *App, fn func(ctx context.Context, rt *runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := openRuntime(ctx, app, openOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()
	if err := rt.store.FetchAll(ctx); err != nil {
		return err
	}
	if err := rt.store.FetchCurrentUser(ctx); err != nil && !errors.Is(err, backend.ErrNotFound) {
		return err
	}
	err = fn(ctx, rt)
	if errors.Is(err, auth.ErrNoSession) && rt.local != nil {
		return fmt.Errorf("%w; %s", err, noUserHint)
	}
	return err
}

// pollDataVersion signals hub whenever another process commits to the SQLite file,
// which makes subscribers reload as after a reconnect.
func pollDataVersion(ctx context.Context, db *sqlite.DB, hub *realtime.Hub, every time.Duration, log logrus.FieldLogger) {
	last, err := db.DataVersion(ctx)
	if err != nil {
		log.WithError(err).Warn("data_version unavailable, cross-process changes will not show")
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			v, err := db.DataVersion(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.WithError(err).Debug("data_version poll failed")
				}
				continue
			}
			if v != last {
				last = v
				hub.Reconnected()
			}
		}
	}
}
