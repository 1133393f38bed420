package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/actharvest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/actharvest/internal/app"
	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/services"
)

// setupTestCLI points the commands at in-memory settings and returns the
// buffer capturing their output.
func setupTestCLI(t *testing.T, values map[string]any) *bytes.Buffer {
	t.Helper()

	oldSettings, oldStore, oldBuild := settingsService, configStore, buildApp
	t.Cleanup(func() {
		settingsService, configStore, buildApp = oldSettings, oldStore, oldBuild
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	store := memory.NewConfigStore()
	require.NoError(t, store.Set("storage.driver", "memory"))
	for k, v := range values {
		require.NoError(t, store.Set(k, v))
	}
	settingsService = services.NewSettingsService(store)
	configStore = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	return buf
}

// useApp makes every command share a, so state survives between them.
func useApp(t *testing.T, a *app.App) {
	t.Helper()
	buildApp = func(context.Context, *domain.Settings) (*app.App, error) { return a, nil }
}

func newMemoryApp(t *testing.T) *app.App {
	t.Helper()
	settings := domain.DefaultSettings()
	settings.Storage.Driver = domain.StorageMemory
	a, err := app.New(context.Background(), &settings)
	require.NoError(t, err)
	return a
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}
