package domain

import (
	"strings"
	"time"
)

// StorageDriver selects the persistence backend.
type StorageDriver string

// Available storage drivers.
const (
	StorageSQLite   StorageDriver = "sqlite"
	StoragePostgres StorageDriver = "postgres"
	StorageMemory   StorageDriver = "memory"
)

// IsValid returns true if the driver is recognised.
func (d StorageDriver) IsValid() bool {
	switch d {
	case StorageSQLite, StoragePostgres, StorageMemory:
		return true
	default:
		return false
	}
}

// GatewayMode selects how the pipeline reaches the ingestion boundary.
type GatewayMode string

// Available gateway modes.
const (
	// GatewayLocal calls the Ingestor in-process.
	GatewayLocal GatewayMode = "local"

	// GatewayHTTP logs into the API and submits batches over HTTP.
	GatewayHTTP GatewayMode = "http"
)

// IsValid returns true if the mode is recognised.
func (m GatewayMode) IsValid() bool {
	return m == GatewayLocal || m == GatewayHTTP
}

// SingleFlight selects cross-run mutual exclusion.
type SingleFlight string

// Available single-flight modes.
const (
	SingleFlightNone  SingleFlight = "none"
	SingleFlightLocal SingleFlight = "local"
	SingleFlightRedis SingleFlight = "redis"
)

// IsValid returns true if the mode is recognised.
func (s SingleFlight) IsValid() bool {
	switch s {
	case SingleFlightNone, SingleFlightLocal, SingleFlightRedis:
		return true
	default:
		return false
	}
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr           string
	RateLimitRPS   int
	RateLimitBurst int
}

// AuthSettings configures token issuance and the administrative login.
type AuthSettings struct {
	SecretKey     string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string
}

// StorageSettings configures persistence.
type StorageSettings struct {
	Driver  StorageDriver
	DataDir string
	DSN     string
}

// PipelineSettings configures the run entry point.
type PipelineSettings struct {
	Mode          GatewayMode
	APIBaseURL    string
	ChunkSize     int
	SingleFlight  SingleFlight
	LoginTimeout  time.Duration
	SubmitTimeout time.Duration
}

// ExtractorSettings configures the registry scraper.
type ExtractorSettings struct {
	URL           string
	ChromePath    string
	RenderTimeout time.Duration
	LookbackDays  int
	PageRate      float64
}

// RedisSettings configures the optional redis connection.
type RedisSettings struct {
	Addr     string
	Password string
	DB       int
}

// Settings is the full application configuration.
type Settings struct {
	Server    ServerSettings
	Auth      AuthSettings
	Storage   StorageSettings
	Pipeline  PipelineSettings
	Extractor ExtractorSettings
	Scheduler SchedulerConfig
	Redis     RedisSettings
	Jobs      []ScheduleRequest
}

// DefaultRegistryURL is the registry search page the extractor drives.
const DefaultRegistryURL = "http://normas.receita.fazenda.gov.br/sijut2consulta/consulta.action"

// DefaultSettings returns sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Addr:           ":8000",
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Auth: AuthSettings{
			TokenTTL: 30 * time.Minute,
		},
		Storage: StorageSettings{
			Driver: StorageSQLite,
		},
		Pipeline: PipelineSettings{
			Mode:          GatewayLocal,
			APIBaseURL:    "http://localhost:8000",
			ChunkSize:     DefaultChunkSize,
			SingleFlight:  SingleFlightNone,
			LoginTimeout:  30 * time.Second,
			SubmitTimeout: 60 * time.Second,
		},
		Extractor: ExtractorSettings{
			URL:           DefaultRegistryURL,
			RenderTimeout: 20 * time.Second,
			LookbackDays:  3,
			PageRate:      2,
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}

// Validate checks the settings for consistency.
func (s Settings) Validate() error {
	if !s.Storage.Driver.IsValid() {
		return invalid("unknown storage driver %q", s.Storage.Driver)
	}
	if s.Storage.Driver == StoragePostgres && strings.TrimSpace(s.Storage.DSN) == "" {
		return invalid("storage.dsn is required for postgres")
	}
	if !s.Pipeline.Mode.IsValid() {
		return invalid("unknown pipeline mode %q", s.Pipeline.Mode)
	}
	if s.Pipeline.Mode == GatewayHTTP {
		if s.Pipeline.APIBaseURL == "" {
			return invalid("pipeline.api_base_url is required for http mode")
		}
		if s.Auth.AdminUsername == "" || s.Auth.AdminPassword == "" {
			return invalid("auth.admin_username and auth.admin_password are required for http mode")
		}
	}
	if !s.Pipeline.SingleFlight.IsValid() {
		return invalid("unknown single_flight mode %q", s.Pipeline.SingleFlight)
	}
	if s.Pipeline.SingleFlight == SingleFlightRedis && s.Redis.Addr == "" {
		return invalid("redis.addr is required for redis single_flight")
	}
	if s.Pipeline.ChunkSize < 1 {
		return invalid("pipeline.chunk_size must be >= 1")
	}
	if s.Extractor.LookbackDays < 0 {
		return invalid("extractor.lookback_days must not be negative")
	}
	if s.Extractor.RenderTimeout <= 0 {
		return invalid("extractor.render_timeout must be positive")
	}
	if s.Scheduler.Tick <= 0 {
		return invalid("scheduler.tick must be positive")
	}
	return nil
}

// ValidateForServe adds the checks needed to issue tokens.
func (s Settings) ValidateForServe() error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Auth.SecretKey == "" {
		return invalid("auth.secret_key is required to serve")
	}
	if s.Auth.AdminUsername == "" || s.Auth.AdminPassword == "" {
		return invalid("auth.admin_username and auth.admin_password are required to serve")
	}
	return nil
}
