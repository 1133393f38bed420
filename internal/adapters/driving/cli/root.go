// Package cli is the actharvest command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/actharvest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/actharvest/internal/app"
	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driving"
	"github.com/custodia-labs/actharvest/internal/core/services"
	"github.com/custodia-labs/actharvest/internal/logger"
)

var version = "dev"

var (
	verbose   bool
	configDir string
)

// Collaborators are created on first use; tests replace them.
var (
	settingsService driving.SettingsService
	configStore     *file.ConfigStore
	buildApp        = app.New
	settingsMu    sync.Mutex
)

var rootCmd = &cobra.Command{
	Use:   "actharvest",
	Short: "Harvest normative acts from the federal registry",
	Long: `actharvest scrapes recently published acts from the registry search page,
normalises them and loads them into a deduplicated store.

Run "actharvest serve" for the API and scheduler, or "actharvest run" for a
single pipeline run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"directory holding config.toml (default ~/.actharvest)")
}

// Execute runs the command line.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the reported build version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// settingsSvc returns the settings service, opening the config file on
// first use.
func settingsSvc() (driving.SettingsService, error) {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	if settingsService != nil {
		return settingsService, nil
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	configStore = store
	settingsService = services.NewSettingsService(store)
	return settingsService, nil
}

func loadSettings() (*domain.Settings, error) {
	svc, err := settingsSvc()
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", svc.Path(), err)
	}
	return settings, nil
}

func openApp(ctx context.Context) (*app.App, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	a, err := buildApp(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return a, nil
}

// closeApp logs instead of failing the command; the work is already done.
func closeApp(a *app.App) {
	if err := a.Close(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("close: %v", err)
	}
}
