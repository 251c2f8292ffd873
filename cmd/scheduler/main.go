package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lead_router_backend/internal/activity"
	"lead_router_backend/internal/events"
	"lead_router_backend/internal/routing"
	"lead_router_backend/internal/routing/metrics"
	"lead_router_backend/internal/routing/repository"
	"lead_router_backend/internal/routing/tuning"
	"lead_router_backend/internal/scheduler"
	"lead_router_backend/platform/cache"
	"lead_router_backend/platform/config"
	"lead_router_backend/platform/db"
	"lead_router_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.GetStoreDriver() != config.StoreDriverPostgres {
		panic("scheduler requires STORE_DRIVER=postgres; the in-memory store cannot be shared with the API")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tn, err := tuning.Load(cfg.GetRoutingTuningFile())
	if err != nil {
		log.Error("failed to load routing tuning", "error", err)
		panic("failed to load routing tuning: " + err.Error())
	}

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
	defer pool.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	if redisClient == nil {
		panic("scheduler requires REDIS_URL")
	}
	defer func() { _ = redisClient.Close() }()

	backend := repository.New(pool)
	eventBus := events.NewInMemoryBus(log)
	activity.New(backend, log).RegisterHandlers(eventBus)

	svc := routing.NewService(backend, routing.Options{
		Tuning:    tn,
		Redis:     redisClient,
		Publisher: eventBus,
		Metrics:   metrics.NewPrometheus(prometheus.NewRegistry(), ""),
		Log:       log,
	})

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	sweeper := scheduler.NewBacklogSweeper(
		backend,
		client,
		log,
		getDurationEnv("BACKLOG_SWEEP_INTERVAL", time.Minute),
		getDurationEnv("BACKLOG_MIN_AGE", 5*time.Minute),
		getDurationEnv("BACKLOG_LOOKBACK", 24*time.Hour),
	)
	go sweeper.Run(ctx)

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go periodic.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, svc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}
	worker.Run(ctx)
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
