// Package app is the scheduler daemon's composition root: it reads
// config, wires a storage backend, constructs the scheduler, registers
// the demo handlers, and attaches the metrics observer: one App type
// wiring every collaborator before the daemon's dispatch loop begins.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/whotracksme/job-scheduler/internal/config"
	"github.com/whotracksme/job-scheduler/internal/handlers"
	"github.com/whotracksme/job-scheduler/internal/metrics"
	"github.com/whotracksme/job-scheduler/internal/platform/logger"
	"github.com/whotracksme/job-scheduler/internal/scheduler"
	"github.com/whotracksme/job-scheduler/internal/storage"
	"github.com/whotracksme/job-scheduler/internal/storage/pgstore"
	"github.com/whotracksme/job-scheduler/internal/storage/redisstore"
)

// App bundles every long-lived collaborator the daemon needs.
type App struct {
	Config    config.Config
	Log       *logger.Logger
	Scheduler *scheduler.Scheduler
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry

	closeStore func() error
}

// New loads config, dials storage, and wires a fully registered scheduler.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("app: load config: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("app: build logger: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("app: open storage: %w", err)
	}

	sched := scheduler.New(scheduler.Options{
		Store:           store,
		Log:             log,
		GlobalJobLimit:  cfg.GlobalJobLimit,
		MaxClockJump:    cfg.MaxClockJump,
		PersistDebounce: cfg.PersistDebounce,
	})

	if err := sched.Init(ctx); err != nil {
		return nil, fmt.Errorf("app: init scheduler: %w", err)
	}

	if err := handlers.RegisterAll(sched); err != nil {
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}
	if _, errs := handlers.Seed(sched); anyNonNil(errs) {
		log.Error("seed jobs rejected", "errors", errs)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Attach(sched.Observer())

	return &App{
		Config:     cfg,
		Log:        log,
		Scheduler:  sched,
		Metrics:    m,
		Registry:   reg,
		closeStore: closeStore,
	}, nil
}

func anyNonNil(errs []error) bool {
	for _, err := range errs {
		if err != nil {
			return true
		}
	}
	return false
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, func() error, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		s, err := pgstore.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	default:
		s, err := redisstore.New(ctx, redisstore.Config{
			Addr: cfg.RedisAddr,
			Key:  cfg.RedisKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
}

// Close flushes a final snapshot and releases the storage connection.
func (a *App) Close(ctx context.Context) error {
	if err := a.Scheduler.Sync(ctx); err != nil {
		a.Log.Error("final sync failed", "error", err)
	}
	a.Scheduler.Unload()
	a.Log.Sync()
	if a.closeStore != nil {
		return a.closeStore()
	}
	return nil
}
