package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"parrillas/internal/auth"
	"parrillas/internal/backend"
	"parrillas/internal/logging"
	"parrillas/internal/notify"
	"parrillas/internal/syncer"
	"parrillas/internal/tui"
)

// defaultPoll is how often the local database is checked for changes made by
// other processes.
const defaultPoll = 2 * time.Second

type watchOptions struct {
	metricsAddr string
	poll        time.Duration
	// headless skips the board UI and prints incoming notifications instead.
	headless bool
}

func newWatchCmd(app *App) *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the live board (realtime sync + notifications)",
		Long: `Opens the interactive board and keeps it in sync with other users.

With --headless no UI is drawn: the board still syncs and each incoming
notification is printed, which is useful for scripts and for serving metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, app, opts)
		},
	}
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", envOr("PARRILLAS_METRICS_ADDR", ""), "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().DurationVar(&opts.poll, "poll", defaultPoll, "How often to check the local database for changes made by other processes (0 disables)")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "Sync and print notifications without the board UI")
	return cmd
}

func runWatch(cmd *cobra.Command, app *App, opts watchOptions) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !opts.headless && app.cfg.Log.File == "" {
		// Log lines on stderr would tear the full-screen board.
		dir, err := app.configDir()
		if err != nil {
			return err
		}
		log, err := logging.New(logging.Options{Level: app.cfg.Log.Level, File: filepath.Join(dir, "parrillas.log"), System: "parrillas"})
		if err != nil {
			return err
		}
		app.log = log
	}

	rt, err := openRuntime(ctx, app, openOptions{live: true})
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

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	y := syncer.New(rt.store, rt.feed, app.log, app.metrics)
	g.Go(func() error { return y.Run(gctx) })

	var (
		center  *notify.Center
		toaster = notify.NewChanToaster(8)
	)
	if _, err := auth.Require(rt.session); err == nil {
		nopts := []notify.Option{
			notify.WithToaster(toaster),
			notify.WithLogger(app.log),
			notify.WithMetrics(app.metrics),
		}
		if app.cfg.Notify.SoundEnabled() && !opts.headless {
			nopts = append(nopts, notify.WithCue(notify.Bell{W: cmd.ErrOrStderr()}))
		}
		if app.cfg.Notify.DesktopEnabled() {
			if d := notify.NewNotifySend(); d.Permitted() {
				nopts = append(nopts, notify.WithDesktop(d))
			}
		}
		center = notify.New(rt.store, rt.feed, nopts...)
		g.Go(func() error { return center.Run(gctx) })
	} else {
		app.log.Warn("no acting user, notifications are off")
	}

	if rt.local != nil && opts.poll > 0 {
		g.Go(func() error {
			pollDataVersion(gctx, rt.local, rt.hub, opts.poll, app.log)
			return nil
		})
	}
	if opts.metricsAddr != "" {
		g.Go(func() error { return app.metrics.Serve(gctx, opts.metricsAddr, app.log) })
	}

	if opts.headless {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case n := <-toaster.C:
					if err := writeOut(cmd, app, n); err != nil {
						return err
					}
				}
			}
		})
	} else {
		g.Go(func() error {
			defer cancel()
			return tui.Run(gctx, rt.store, center, toaster.C)
		})
	}
	return g.Wait()
}
