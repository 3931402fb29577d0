package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/catalog"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/db"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/observability"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Catalog  *catalog.Catalog
	Clients  Clients
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics

	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	ctx, cancel := context.WithCancel(context.Background())
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "merch-pipeline",
		Environment: logMode,
	})
	metrics := observability.Init(log)

	cat, err := catalog.Load(log)
	if err != nil {
		cancel()
		log.Sync()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	theDB, err := db.Open(log, cfg.DB)
	if err != nil {
		cancel()
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(log, theDB); err != nil {
		cancel()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		cancel()
		log.Sync()
		return nil, err
	}
	reposet := wireRepos(theDB, log, clients.Neo4j)
	serviceset := wireServices(log, cfg, cat, reposet, clients)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Catalog:      cat,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		cancel:       cancel,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the optional metrics endpoint and Redis collector.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.Metrics == nil {
		return
	}
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
}

// Close drains pending history writes before releasing clients.
func (a *App) Close() {
	if a == nil {
		return
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Services.Recorder.Flush(flushCtx); err != nil && a.Log != nil {
		a.Log.Warn("history flush incomplete", "error", err)
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(flushCtx)
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
