package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/actharvest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/actharvest/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/actharvest/internal/app"
	"github.com/custodia-labs/actharvest/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the API and run scheduled jobs",
	Long: `Starts the HTTP API and the scheduler. Jobs declared under [[jobs]] in the
config file are registered at start and re-applied whenever the file
changes. SIGINT or SIGTERM stops accepting requests, waits for in-flight
work and exits.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if err := settings.ValidateForServe(); err != nil {
		return err
	}
	tokens, err := httpapi.NewTokens(settings.Auth)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer closeApp(a)

	server, err := httpapi.New(&httpapi.Ports{
		Acts:      a.Acts,
		Ingestor:  a.Ingestor,
		Runs:      a.Runs,
		Tokens:    tokens,
		Pipeline:  a.Pipeline,
		Scheduler: a.Scheduler,
		Metrics:   a.Metrics.Handler(),
	}, settings.Server)
	if err != nil {
		return err
	}

	if err := a.Scheduler.ApplyDeclared(ctx, settings.Jobs); err != nil {
		logger.Warn("scheduler: some declared jobs were not registered: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.Scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler: %v", err)
		}
	}()

	if configStore != nil {
		if err := watchConfig(ctx, &wg, a, configStore); err != nil {
			logger.Warn("config: not watching for changes: %v", err)
		}
	}

	logger.Info("actharvest %s serving on %s", version, settings.Server.Addr)
	serveErr := server.Run(ctx)

	stop()
	if err := a.Scheduler.Stop(); err != nil {
		logger.Warn("scheduler: stop: %v", err)
	}
	wg.Wait()
	logger.Info("actharvest stopped")
	return serveErr
}

// watchConfig re-applies declared jobs whenever the config file changes.
func watchConfig(ctx context.Context, wg *sync.WaitGroup, a *app.App, store *file.ConfigStore) error {
	w, err := file.NewWatcher(store, func() {
		settings, err := loadSettings()
		if err != nil {
			logger.Warn("config: keeping previous jobs: %v", err)
			return
		}
		if err := a.Scheduler.ApplyDeclared(ctx, settings.Jobs); err != nil {
			logger.Warn("config: re-applying jobs: %v", err)
		}
	})
	if err != nil {
		return err
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.Run(ctx); err != nil {
			logger.Warn("config: watcher stopped: %v", err)
		}
	}()
	return nil
}
