package driving

import "github.com/custodia-labs/actharvest/internal/core/domain"

// SettingsService resolves application settings.
type SettingsService interface {
	// Get resolves settings from defaults, the config file and the environment.
	Get() (*domain.Settings, error)

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings

	// Reload re-reads the config file.
	Reload() error

	// Path returns the config file path.
	Path() string
}
