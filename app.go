package main

import (
	"context"
	"fmt"

	"yard_parking/internal/config"
	"yard_parking/internal/logger"
	"yard_parking/internal/metrics"
	"yard_parking/internal/repository"
	"yard_parking/internal/repository/memory"
	"yard_parking/internal/repository/postgresql"
	"yard_parking/internal/repository/sqlite"
	"yard_parking/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// app holds what every command needs: config, logger, metrics and an open store.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	store      *repository.Store
	closeStore func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	log.Info("store opened", zap.String("driver", cfg.StoreDriver))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &app{
		cfg:        cfg,
		log:        log,
		registry:   reg,
		metrics:    metrics.New(reg),
		store:      store,
		closeStore: closeStore,
	}, nil
}

func (a *app) yard(notifier service.Notifier) *service.Yard {
	return service.NewYard(a.store, service.NewCalendar(a.cfg.Location()), notifier, a.metrics, a.log)
}

func (a *app) Close() {
	if err := a.closeStore(); err != nil {
		a.log.Warn("closing store", zap.Error(err))
	}
	_ = a.log.Sync()
}

func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, func() error, error) {
	switch cfg.StoreDriver {
	case "memory":
		return memory.NewStore(), func() error { return nil }, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: pool: %w", err)
		}
		return sqlite.NewStore(db), sqlDB.Close, nil
	default:
		db, err := postgresql.NewDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return postgresql.NewStore(db), db.Close, nil
	}
}
