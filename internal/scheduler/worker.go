package scheduler

import (
	"context"
	"fmt"

	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/service"
	"lead_router_backend/platform/apperr"
	"lead_router_backend/platform/config"
	"lead_router_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Router is the part of the routing service the worker drives.
type Router interface {
	AutoAssign(ctx context.Context, leadID uuid.UUID, actor string) (service.AutoAssignResult, error)
	RefreshDistribution(ctx context.Context) (domain.DistributionReport, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	router Router
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, router Router, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(router, log)
	w.server = server
	return w, nil
}

func newWorker(router Router, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	w := &Worker{
		mux:    asynq.NewServeMux(),
		router: router,
		log:    log,
	}
	w.mux.HandleFunc(TaskLeadRoute, w.handleLeadRoute)
	w.mux.HandleFunc(TaskDistributionRefresh, w.handleDistributionRefresh)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleLeadRoute auto-assigns one lead. Outcomes that another run cannot
// change (lead gone, lead already routed or closed) are not retried.
func (w *Worker) handleLeadRoute(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadRoutePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%w: invalid lead id %q", asynq.SkipRetry, payload.LeadID)
	}

	actor := payload.Actor
	if actor == "" {
		actor = service.ActorSystem
	}

	result, err := w.router.AutoAssign(ctx, leadID, actor)
	if err != nil {
		switch apperr.GetKind(err) {
		case apperr.KindNotFound, apperr.KindConflict, apperr.KindInvalidState:
			w.log.Info("lead route dropped", "lead_id", leadID, "reason", apperr.GetKind(err).Code())
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}

	w.log.Info("lead routed", "lead_id", leadID, "outcome", result.Outcome, "attempts", result.Attempts)
	return nil
}

func (w *Worker) handleDistributionRefresh(ctx context.Context, _ *asynq.Task) error {
	report, err := w.router.RefreshDistribution(ctx)
	if err != nil {
		return err
	}
	w.log.Debug("distribution refreshed", "buckets", len(report.Buckets), "shortages", len(report.Shortages))
	return nil
}
