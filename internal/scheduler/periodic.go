package scheduler

import (
	"context"
	"fmt"

	"lead_router_backend/platform/config"
	"lead_router_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the recurring routing tasks on a cron schedule.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	cron := cfg.GetDistributionRefreshCron()
	if cron == "" {
		cron = "@every 15m"
	}
	if _, err := s.Register(cron, NewDistributionRefreshTask(), asynq.Queue(queueName(cfg)), asynq.MaxRetry(1)); err != nil {
		return nil, fmt.Errorf("register distribution refresh: %w", err)
	}

	return &Periodic{scheduler: s, log: log}, nil
}

// Run starts the cron loop and stops it when ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}

	<-ctx.Done()
	p.scheduler.Shutdown()
}
