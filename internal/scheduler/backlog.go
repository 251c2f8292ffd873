package scheduler

import (
	"context"
	"time"

	"lead_router_backend/internal/routing/ports"
	"lead_router_backend/internal/routing/service"
	"lead_router_backend/platform/logger"

	"github.com/google/uuid"
)

// BacklogStore is what the sweeper reads.
type BacklogStore interface {
	ports.LeadReader
	ports.EscalationLog
}

// BacklogSweeper re-enqueues leads that are still new some time after
// creation, e.g. because the intake call to auto-assign never happened.
// Leads that were already escalated wait for an operator and are skipped.
type BacklogSweeper struct {
	leads    BacklogStore
	router   LeadRouter
	log      *logger.Logger
	interval time.Duration
	minAge   time.Duration
	lookback time.Duration
	now      func() time.Time
}

func NewBacklogSweeper(leads BacklogStore, router LeadRouter, log *logger.Logger, interval, minAge, lookback time.Duration) *BacklogSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BacklogSweeper{
		leads:    leads,
		router:   router,
		log:      log,
		interval: interval,
		minAge:   minAge,
		lookback: lookback,
		now:      time.Now,
	}
}

func (s *BacklogSweeper) Run(ctx context.Context) {
	if s == nil || s.leads == nil || s.router == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.sweep(ctx)
	}
}

// sweep returns the number of leads enqueued.
func (s *BacklogSweeper) sweep(ctx context.Context) int {
	now := s.now()
	leads, err := s.leads.ListLeadsCreatedSince(ctx, now.Add(-s.lookback))
	if err != nil {
		s.log.Warn("backlog scan failed", "error", err)
		return 0
	}

	pending := make([]uuid.UUID, 0, len(leads))
	for _, lead := range leads {
		if lead.IsNew() && now.Sub(lead.CreatedAt) >= s.minAge {
			pending = append(pending, lead.ID)
		}
	}
	if len(pending) == 0 {
		return 0
	}

	escalated, err := s.leads.EscalatedLeads(ctx, pending)
	if err != nil {
		s.log.Warn("backlog escalation lookup failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, id := range pending {
		if escalated[id] {
			continue
		}
		if err := s.router.EnqueueLeadRoute(ctx, id, service.ActorSystem); err != nil {
			s.log.Warn("backlog enqueue failed", "lead_id", id, "error", err)
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		s.log.Info("backlog leads enqueued", "count", enqueued)
	}
	return enqueued
}
