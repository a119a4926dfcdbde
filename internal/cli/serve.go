package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hypewatch/internal/api"
	"hypewatch/internal/scheduler"
)

// serveCmd runs the long-lived daemon: scheduler plus HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracker daemon (scheduler + HTTP API)",
	Long: `Start the long-running tracker: recurring source fetches, analysis and
synthesis cycles on their configured cadences, and the local HTTP API.

Only one instance may run against a data directory at a time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(true)
		if err != nil {
			return err
		}
		defer app.close()

		// A second daemon against the same data directory would double-fetch
		// and race the scheduler.
		lock := flock.New(filepath.Join(app.cfg.DataDir, "hypewatch.lock"))
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire instance lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("another hypewatch instance is already running against %s", app.cfg.DataDir)
		}
		defer func() { _ = lock.Unlock() }()

		if err := seedFromConfig(cmd.Context(), app); err != nil {
			return err
		}

		sched := scheduler.New(app.pipe, app.cfg.Schedule, app.logger)
		sched.Start(cmd.Context())
		defer sched.Stop()

		server := api.NewServer(app.store, app.pipe, app.cfg.API, app.logger)

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			app.logger.Info("shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("api server: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

// seedFromConfig loads the source seed file named in configuration, if any.
func seedFromConfig(ctx context.Context, app *app) error {
	if app.cfg.Sources.SeedFile == "" {
		return nil
	}
	srcs, err := readSeedFile(app.cfg.Sources.SeedFile)
	if err != nil {
		return fmt.Errorf("seed file %s: %w", app.cfg.Sources.SeedFile, err)
	}
	if err := app.store.SeedSources(ctx, srcs); err != nil {
		return err
	}
	app.logger.Info("sources seeded", zap.Int("count", len(srcs)), zap.String("file", app.cfg.Sources.SeedFile))
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
