package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
	"github.com/custodia-labs/actharvest/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyServerAddr       = "server.addr"
	keyRateLimitRPS     = "server.rate_limit_rps"
	keyRateLimitBurst   = "server.rate_limit_burst"
	keyAuthSecret       = "auth.secret_key"
	keyAuthTTLMinutes   = "auth.token_ttl_minutes"
	keyAdminUsername    = "auth.admin_username"
	keyAdminPassword    = "auth.admin_password"
	keyStorageDriver    = "storage.driver"
	keyStorageDataDir   = "storage.data_dir"
	keyStorageDSN       = "storage.dsn"
	keyPipelineMode     = "pipeline.mode"
	keyAPIBaseURL       = "pipeline.api_base_url"
	keyChunkSize        = "pipeline.chunk_size"
	keySingleFlight     = "pipeline.single_flight"
	keyLoginTimeout     = "pipeline.login_timeout"
	keySubmitTimeout    = "pipeline.submit_timeout"
	keyExtractorURL     = "extractor.url"
	keyChromePath       = "extractor.chrome_path"
	keyRenderTimeout    = "extractor.render_timeout"
	keyLookbackDays     = "extractor.lookback_days"
	keyPageRate         = "extractor.page_rate"
	keySchedulerTick    = "scheduler.tick"
	keySchedulerHistory = "scheduler.history_limit"
	keyRedisAddr        = "redis.addr"
	keyRedisPassword    = "redis.password"
	keyRedisDB          = "redis.db"
	keyJobs             = "jobs"
)

// SettingsService resolves settings from the config store.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get resolves and validates the current settings. Missing keys keep
// their defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()
	var errs []error

	settings := &domain.Settings{
		Server: domain.ServerSettings{
			Addr:           s.getString(keyServerAddr, d.Server.Addr),
			RateLimitRPS:   s.getInt(keyRateLimitRPS, d.Server.RateLimitRPS),
			RateLimitBurst: s.getInt(keyRateLimitBurst, d.Server.RateLimitBurst),
		},
		Auth: domain.AuthSettings{
			SecretKey:     s.configStore.GetString(keyAuthSecret),
			TokenTTL:      time.Duration(s.getInt(keyAuthTTLMinutes, int(d.Auth.TokenTTL/time.Minute))) * time.Minute,
			AdminUsername: s.configStore.GetString(keyAdminUsername),
			AdminPassword: s.configStore.GetString(keyAdminPassword),
		},
		Storage: domain.StorageSettings{
			Driver:  domain.StorageDriver(strings.ToLower(s.getString(keyStorageDriver, string(d.Storage.Driver)))),
			DataDir: s.configStore.GetString(keyStorageDataDir),
			DSN:     s.configStore.GetString(keyStorageDSN),
		},
		Pipeline: domain.PipelineSettings{
			Mode:          domain.GatewayMode(strings.ToLower(s.getString(keyPipelineMode, string(d.Pipeline.Mode)))),
			APIBaseURL:    strings.TrimRight(s.getString(keyAPIBaseURL, d.Pipeline.APIBaseURL), "/"),
			ChunkSize:     s.getInt(keyChunkSize, d.Pipeline.ChunkSize),
			SingleFlight:  domain.SingleFlight(strings.ToLower(s.getString(keySingleFlight, string(d.Pipeline.SingleFlight)))),
			LoginTimeout:  s.getDuration(keyLoginTimeout, d.Pipeline.LoginTimeout, &errs),
			SubmitTimeout: s.getDuration(keySubmitTimeout, d.Pipeline.SubmitTimeout, &errs),
		},
		Extractor: domain.ExtractorSettings{
			URL:           s.getString(keyExtractorURL, d.Extractor.URL),
			ChromePath:    s.configStore.GetString(keyChromePath),
			RenderTimeout: s.getDuration(keyRenderTimeout, d.Extractor.RenderTimeout, &errs),
			LookbackDays:  s.getInt(keyLookbackDays, d.Extractor.LookbackDays),
			PageRate:      s.getFloat(keyPageRate, d.Extractor.PageRate),
		},
		Scheduler: domain.SchedulerConfig{
			Tick:         s.getDuration(keySchedulerTick, d.Scheduler.Tick, &errs),
			HistoryLimit: s.getInt(keySchedulerHistory, d.Scheduler.HistoryLimit),
		},
		Redis: domain.RedisSettings{
			Addr:     s.configStore.GetString(keyRedisAddr),
			Password: s.configStore.GetString(keyRedisPassword),
			DB:       s.configStore.GetInt(keyRedisDB),
		},
	}

	jobs, err := s.getJobs()
	if err != nil {
		errs = append(errs, err)
	}
	settings.Jobs = jobs

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Reload re-reads the config file.
func (s *SettingsService) Reload() error {
	return s.configStore.Load()
}

// Path returns the config file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// getJobs decodes the [[jobs]] tables into schedule requests.
func (s *SettingsService) getJobs() ([]domain.ScheduleRequest, error) {
	tables := s.configStore.GetTables(keyJobs)
	if len(tables) == 0 {
		return nil, nil
	}

	reqs := make([]domain.ScheduleRequest, 0, len(tables))
	for i, table := range tables {
		var req domain.ScheduleRequest
		req.ID, _ = table["id"].(string)
		req.Trigger, _ = table["trigger"].(string)

		for field, dst := range map[string]**int{"hours": &req.Hours, "minutes": &req.Minutes} {
			raw, ok := table[field]
			if !ok {
				continue
			}
			n, ok := asInt(raw)
			if !ok {
				return nil, fmt.Errorf("%w: jobs[%d].%s must be an integer", domain.ErrInvalidInput, i, field)
			}
			*dst = &n
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// getString returns a string value or the default.
func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

// getInt returns an int value or the default.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

// getFloat returns a float value or the default.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

// getDuration accepts a Go duration string ("20s") or whole seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration, errs *[]error) time.Duration {
	raw, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	switch v := raw.(type) {
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return time.Duration(secs) * time.Second
		}
	case int64:
		return time.Duration(v) * time.Second
	case int:
		return time.Duration(v) * time.Second
	}
	*errs = append(*errs, fmt.Errorf("%w: %s must be a duration like \"30s\"", domain.ErrInvalidInput, key))
	return defaultVal
}
