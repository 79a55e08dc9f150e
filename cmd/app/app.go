// Package main is the entry point for the rate service.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rateservice/internal/config"
	"rateservice/internal/metrics"
	"rateservice/internal/provider"
	"rateservice/internal/repository"
	"rateservice/internal/service"
	"rateservice/internal/worker"
)

// App holds all application dependencies and manages their lifecycle.
type App struct {
	cfg         *config.Config
	logger      *zap.SugaredLogger
	db          *sql.DB
	rdbCache    *redis.Client
	rdbAsynq    *redis.Client
	store       repository.Store
	registry    *service.Registry
	coordinator *service.RefreshCoordinator
	resolver    *service.RateResolver
	promReg     *prometheus.Registry
	metrics     *metrics.RateMetrics
	asynqClient *asynq.Client
	asynqServer *asynq.Server
	asynqMux    *asynq.ServeMux
	asynqmon    *asynqmon.HTTPHandler
	enqueuer    *worker.AsynqEnqueuer
	scheduler   *worker.Scheduler
	httpServer  *http.Server
}

// NewApp initializes all dependencies and returns a ready-to-run App.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	app := &App{
		cfg:    cfg,
		logger: logger,
	}

	app.promReg = prometheus.NewRegistry()
	app.promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.NewRateMetrics(app.promReg)

	if err := app.initStorage(ctx); err != nil {
		_ = app.close()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.close()
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// close releases database and Redis connections
func (app *App) close() error {
	var errs []error
	if app.asynqmon != nil {
		if err := app.asynqmon.Close(); err != nil {
			errs = append(errs, fmt.Errorf("asynqmon close: %w", err))
		}
	}
	if app.asynqClient != nil {
		if err := app.asynqClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("asynq client close: %w", err))
		}
	}
	if app.rdbAsynq != nil {
		if err := app.rdbAsynq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis asynq close: %w", err))
		}
	}
	if app.rdbCache != nil {
		if err := app.rdbCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis cache close: %w", err))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("db close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// initStorage connects the configured rate store. The cache Redis is connected whenever
// an address is set: it backs the provider response cache even with another backend.
func (app *App) initStorage(ctx context.Context) error {
	if app.cfg.Redis.CacheAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: app.cfg.Redis.CacheAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			if app.cfg.Storage.Backend == config.BackendRedis {
				return fmt.Errorf("connect to Redis (cache, %s): %w", app.cfg.Redis.CacheAddr, err)
			}
			app.logger.Warnw("Cache Redis unavailable, provider cache disabled", "addr", app.cfg.Redis.CacheAddr, "error", err)
		} else {
			app.rdbCache = rdb
			app.logger.Infow("Connected to Redis cache", "addr", app.cfg.Redis.CacheAddr)
		}
	}

	switch app.cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := repository.NewPostgresDB(ctx, &app.cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to Postgres: %w", err)
		}
		app.db = db
		if err := repository.RunMigrations(app.db, app.logger); err != nil {
			return fmt.Errorf("run DB migrations: %w", err)
		}
		app.store = repository.NewPostgresStore(app.db)
	case config.BackendRedis:
		app.store = repository.NewRedisStore(app.rdbCache)
	default:
		fs, err := repository.NewFileStore(app.cfg.Storage.File.CachePath, app.cfg.Storage.File.HistoryPath)
		if err != nil {
			return fmt.Errorf("init file store: %w", err)
		}
		app.store = fs
	}
	app.logger.Infow("Rate store ready", "backend", app.cfg.Storage.Backend)
	return nil
}

func (app *App) initServices() error {
	app.registry = service.NewRegistryFromConfig(app.cfg.Currencies)

	adapters := newAdapters(app.cfg, app.rdbCache, app.logger)
	if len(adapters) == 0 {
		app.logger.Warnw("No rate feeds enabled, refresh cycles will only prune the cache")
	}

	app.coordinator = service.NewRefreshCoordinator(app.store, app.registry, adapters, app.logger,
		service.WithMetrics(app.metrics))
	app.resolver = service.NewRateResolver(app.store, app.registry, app.coordinator, app.cfg.Rates, app.logger,
		service.WithMetrics(app.metrics))

	if app.cfg.Scheduler.Enabled {
		app.scheduler = worker.NewScheduler(app.coordinator,
			time.Duration(app.cfg.Scheduler.IntervalSec)*time.Second, app.logger)
	}

	if app.cfg.Worker.Enabled {
		redisOpt := asynq.RedisClientOpt{Addr: app.cfg.Redis.AsynqAddr}

		app.rdbAsynq = redis.NewClient(&redis.Options{Addr: app.cfg.Redis.AsynqAddr})
		app.asynqClient = asynq.NewClient(redisOpt)
		app.asynqServer = asynq.NewServer(
			redisOpt,
			asynq.Config{
				Concurrency:              app.cfg.Worker.Concurrency,
				DelayedTaskCheckInterval: time.Duration(app.cfg.Worker.CheckIntervalSec) * time.Second,
				TaskCheckInterval:        time.Duration(app.cfg.Worker.CheckIntervalSec) * time.Second,
				Logger:                   app.logger,
			},
		)
		app.enqueuer = worker.NewAsynqEnqueuer(
			app.asynqClient,
			app.cfg.Worker.MaxRetry,
			time.Duration(app.cfg.Worker.TimeoutSec)*time.Second,
		)
		app.asynqMux = asynq.NewServeMux()
		app.asynqMux.HandleFunc(worker.TaskTypeRefreshRates, worker.NewRefreshHandler(app.coordinator, app.logger))

		if app.cfg.Server.ServeAsynqmon {
			app.asynqmon = asynqmon.New(asynqmon.Options{
				RootPath:     "/monitoring",
				RedisConnOpt: redisOpt,
			})
		}
		app.logger.Infow("Asynq configured", "addr", app.cfg.Redis.AsynqAddr)
	}
	return nil
}

// newAdapters builds the enabled feeds in merge order: crypto first, then fiat. The fiat
// feed falls back from ExchangeRate-API to Frankfurter, and every feed is wrapped with the
// Redis response cache when one is connected.
func newAdapters(cfg *config.Config, cache *redis.Client, logger *zap.SugaredLogger) []provider.SourceAdapter {
	cacheTTL := time.Duration(cfg.Provider.CacheTTLSec) * time.Second
	wrap := func(a provider.SourceAdapter) provider.SourceAdapter {
		if cache == nil || cacheTTL <= 0 {
			return a
		}
		return provider.NewCachedAdapter(a, cache, cacheTTL, logger)
	}

	var adapters []provider.SourceAdapter
	if cfg.Crypto.Enabled {
		adapters = append(adapters, wrap(provider.NewCoinGeckoAdapter(
			cfg.Crypto.BaseURL, cfg.Crypto.APIKey, cfg.Crypto.IDs,
			cfg.Crypto.Timeout, cfg.Crypto.RequestsPerMinute, logger)))
	}

	if cfg.Fiat.Enabled {
		var chain []provider.SourceAdapter
		chain = append(chain, wrap(provider.NewExchangeRateAdapter(
			cfg.Fiat.BaseURL, cfg.Fiat.APIKey, cfg.Fiat.Base, cfg.Fiat.Currencies,
			cfg.Fiat.Timeout, cfg.Fiat.RequestsPerMinute, logger)))
		if cfg.Frankfurter.BaseURL != "" {
			chain = append(chain, wrap(provider.NewFrankfurterAdapter(
				cfg.Frankfurter.BaseURL, cfg.Fiat.Base, cfg.Fiat.Currencies,
				cfg.Frankfurter.Timeout, logger)))
		}
		if len(chain) == 1 {
			adapters = append(adapters, chain[0])
		} else {
			adapters = append(adapters, provider.NewFallbackAdapter(chain...))
		}
	}
	return adapters
}

// Run starts the HTTP server, the scheduler and the Asynq worker, blocking until the
// context is canceled.
func (app *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if app.asynqServer != nil {
		g.Go(func() error {
			app.logger.Infow("Starting Asynq worker server")
			if err := app.asynqServer.Start(app.asynqMux); err != nil {
				return fmt.Errorf("asynq worker failed to start: %w", err)
			}
			<-ctx.Done()
			return nil
		})
	}

	if app.scheduler != nil {
		g.Go(func() error {
			if err := app.scheduler.Start(ctx); err != nil {
				return fmt.Errorf("scheduler failed to start: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		app.logger.Infow("HTTP server listening", "port", app.cfg.Server.Port)
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown: triggered by context cancellation (signal or component failure).
	g.Go(func() error {
		<-ctx.Done()
		return app.shutdown()
	})

	return g.Wait()
}

// shutdown performs ordered teardown: HTTP server -> scheduler -> Asynq worker -> connections.
func (app *App) shutdown() error {
	app.logger.Infow("Shutting down server...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 1. Stop accepting new HTTP requests, drain in-flight
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Errorw("HTTP server shutdown error", "error", err)
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	// 2. Wait for a running scheduled cycle
	if app.scheduler != nil {
		if err := app.scheduler.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
		}
	}

	// 3. Drain in-flight Asynq tasks
	if app.asynqServer != nil {
		app.asynqServer.Shutdown()
	}

	// 4. Close connections (asynq client, Redis, database)
	if err := app.close(); err != nil {
		app.logger.Errorw("Connection cleanup errors", "error", err)
		errs = append(errs, err)
	}

	app.logger.Infow("Shutdown complete")
	return errors.Join(errs...)
}
