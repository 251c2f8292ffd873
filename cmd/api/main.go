package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_router_backend/internal/activity"
	"lead_router_backend/internal/events"
	apphttp "lead_router_backend/internal/http"
	"lead_router_backend/internal/http/router"
	"lead_router_backend/internal/routing"
	"lead_router_backend/internal/routing/handler"
	"lead_router_backend/internal/routing/metrics"
	"lead_router_backend/internal/routing/repository"
	"lead_router_backend/internal/routing/tuning"
	"lead_router_backend/internal/scheduler"
	"lead_router_backend/migrations"
	"lead_router_backend/platform/cache"
	"lead_router_backend/platform/config"
	"lead_router_backend/platform/db"
	"lead_router_backend/platform/logger"
	"lead_router_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "store", cfg.GetStoreDriver())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tn, err := tuning.Load(cfg.GetRoutingTuningFile())
	if err != nil {
		log.Error("failed to load routing tuning", "error", err)
		panic("failed to load routing tuning: " + err.Error())
	}

	// ========================================================================
	// Storage
	// ========================================================================

	var (
		backend routing.Backend
		health  apphttp.HealthChecker
		queue   *scheduler.Client
	)

	switch cfg.GetStoreDriver() {
	case config.StoreDriverMemory:
		store := repository.NewMemoryStore()
		if path := cfg.GetSeedFile(); path != "" {
			partners, leads, err := store.LoadSeedFile(path)
			if err != nil {
				log.Error("failed to load seed file", "error", err, "path", path)
				panic("failed to load seed file: " + err.Error())
			}
			log.Info("seed data loaded", "partners", partners, "leads", leads)
		}
		log.Warn("using in-memory store; state is lost on restart and must not be shared across replicas")
		backend = store

	default:
		pool := connectDatabase(ctx, cfg, log)
		defer pool.Close()
		backend = repository.New(pool)
		health = pool

		queue = initRouteQueue(cfg, log)
		if queue != nil {
			defer func() { _ = queue.Close() }()
		}
	}

	redisClient := initRedis(ctx, cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// ========================================================================
	// Domain
	// ========================================================================

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheus(registry, "")

	eventBus := events.NewInMemoryBus(log)
	activity.New(backend, log).RegisterHandlers(eventBus)

	opts := routing.Options{
		Tuning:    tn,
		Publisher: eventBus,
		Metrics:   recorder,
		Log:       log,
	}
	if redisClient != nil {
		opts.Redis = redisClient
	}
	svc := routing.NewService(backend, opts)

	val := validator.New()
	// A nil *scheduler.Client must not become a non-nil interface.
	var routeQueue handler.RouteQueue
	if queue != nil {
		routeQueue = queue
	}
	routingModule := routing.NewModule(svc, val, routeQueue)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   health,
		EventBus: eventBus,
		Metrics:  registry,
		Modules: []apphttp.Module{
			routingModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *pgxpool.Pool {
	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	log.Info("database connection established")

	if cfg.GetMigrationsEnabled() {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool, migrations.FS)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	return pool
}

func initRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Client {
	if !cfg.IsRedisEnabled() {
		log.Warn("REDIS_URL not configured; settings and report caching disabled")
		return nil
	}

	var client *redis.Client
	if err := withRetry(ctx, log, "redis connection", 3, time.Second, func() error {
		c, err := cache.NewRedisClient(ctx, cfg)
		if err != nil {
			return err
		}
		client = c
		return nil
	}); err != nil {
		log.Warn("redis unavailable; continuing without cache", "error", err)
		return nil
	}
	return client
}

func initRouteQueue(cfg config.SchedulerConfig, log *logger.Logger) *scheduler.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background lead routing disabled")
		return nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize routing queue client", "error", err)
		return nil
	}
	return client
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
