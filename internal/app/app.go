// Package app assembles the services and adapters described by the
// settings into one running application.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/actharvest/internal/adapters/driven/browser"
	"github.com/custodia-labs/actharvest/internal/adapters/driven/gateway"
	"github.com/custodia-labs/actharvest/internal/adapters/driven/metrics"
	"github.com/custodia-labs/actharvest/internal/adapters/driven/runlock"
	"github.com/custodia-labs/actharvest/internal/connectors/sijut"
	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
	"github.com/custodia-labs/actharvest/internal/core/ports/driving"
	"github.com/custodia-labs/actharvest/internal/core/services"
	"github.com/custodia-labs/actharvest/internal/logger"
	"github.com/custodia-labs/actharvest/internal/normalisers/act"
)

// App holds every wired component. Close releases them.
type App struct {
	Settings  *domain.Settings
	Stores    *Stores
	Metrics   *metrics.Metrics
	Acts      driving.ActService
	Ingestor  driving.Ingestor
	Runs      driving.RunAuditor
	Pipeline  driving.Pipeline
	Scheduler *services.Scheduler

	redis *redis.Client
}

// New opens storage and builds the pipeline for settings.
func New(ctx context.Context, settings *domain.Settings) (*App, error) {
	stores, err := OpenStores(ctx, settings.Storage)
	if err != nil {
		return nil, err
	}

	a := &App{
		Settings: settings,
		Stores:   stores,
		Metrics:  metrics.New(),
	}
	a.Acts = services.NewActService(stores.Acts)
	a.Runs = services.NewRunService(stores.Runs)
	ingestor := services.NewIngestService(stores.Acts, stores.Runs, a.Metrics, settings.Pipeline.ChunkSize)
	a.Ingestor = ingestor

	lock, err := a.runLock(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	extractor := sijut.New(&browser.Launcher{ChromePath: settings.Extractor.ChromePath},
		sijut.ConfigFromSettings(settings.Extractor))

	opts := []services.PipelineOption{services.WithPipelineMetrics(a.Metrics)}
	if lock != nil {
		opts = append(opts, services.WithRunLock(lock))
	}
	a.Pipeline = services.NewPipelineService(extractor, act.New(), a.gateway(ingestor), a.Runs, opts...)

	a.Scheduler = services.NewScheduler(settings.Scheduler, stores.Jobs, a.Pipeline.Run, a.Metrics)
	return a, nil
}

func (a *App) gateway(ingestor driving.Ingestor) driven.IngestionGateway {
	p := a.Settings.Pipeline
	if p.Mode == domain.GatewayHTTP {
		logger.Debug("app: submitting batches to %s", p.APIBaseURL)
		return gateway.NewHTTP(gateway.HTTPConfig{
			BaseURL:       p.APIBaseURL,
			Username:      a.Settings.Auth.AdminUsername,
			Password:      a.Settings.Auth.AdminPassword,
			LoginTimeout:  p.LoginTimeout,
			SubmitTimeout: p.SubmitTimeout,
		})
	}
	return gateway.NewLocal(ingestor)
}

func (a *App) runLock(ctx context.Context) (driven.RunLock, error) {
	switch a.Settings.Pipeline.SingleFlight {
	case domain.SingleFlightLocal:
		return runlock.NewLocal(), nil
	case domain.SingleFlightRedis:
		r := a.Settings.Redis
		a.redis = runlock.NewRedisClient(r.Addr, r.Password, r.DB)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", r.Addr, err)
		}
		return runlock.NewRedis(a.redis, runlock.DefaultTTL), nil
	default:
		return nil, nil
	}
}

// Close releases storage and connections.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Stores != nil {
		errs = append(errs, a.Stores.Close())
	}
	return errors.Join(errs...)
}
