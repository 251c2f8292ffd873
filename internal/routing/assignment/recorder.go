// Package assignment is the single place where leads get bound to partners.
package assignment

import (
	"context"
	"strings"
	"time"

	"lead_router_backend/internal/events"
	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/metrics"
	"lead_router_backend/internal/routing/ports"
	"lead_router_backend/platform/apperr"
	"lead_router_backend/platform/logger"

	"github.com/google/uuid"
)

// Request describes one assignment attempt.
type Request struct {
	LeadID      uuid.UUID
	PartnerID   uuid.UUID
	PartnerName string
	Score       float64
	Factors     domain.Factors
	Mode        domain.AssignmentMode
	Actor       string
}

// Recorder validates and commits assignments, then announces them.
type Recorder struct {
	store     ports.AssignmentStore
	publisher events.Publisher
	metrics   metrics.Recorder
	log       *logger.Logger
	now       func() time.Time
}

// NewRecorder creates a recorder. Nil metrics fall back to metrics.Nop.
func NewRecorder(store ports.AssignmentStore, publisher events.Publisher, m metrics.Recorder, log *logger.Logger) *Recorder {
	if m == nil {
		m = metrics.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Recorder{store: store, publisher: publisher, metrics: m, log: log, now: time.Now}
}

// Assign commits the assignment. Conflict and CapacityExceeded errors are
// routine race losses: the first means the lead is already handled, the
// second means the caller should re-run the pipeline.
func (r *Recorder) Assign(ctx context.Context, req Request) (domain.Assignment, error) {
	if err := validate(req); err != nil {
		return domain.Assignment{}, err
	}

	a := domain.Assignment{
		ID:        uuid.New(),
		LeadID:    req.LeadID,
		PartnerID: req.PartnerID,
		Score:     req.Score,
		Factors:   req.Factors,
		Mode:      req.Mode,
		Actor:     strings.TrimSpace(req.Actor),
		CreatedAt: r.now().UTC(),
	}

	committed, err := r.store.CommitAssignment(ctx, a)
	if err != nil {
		switch apperr.GetKind(err) {
		case apperr.KindConflict:
			r.metrics.RaceLost("conflict")
			r.log.WithContext(ctx).AssignmentRaceLost(a.LeadID.String(), a.PartnerID.String(), "conflict")
		case apperr.KindCapacityExceeded:
			r.metrics.RaceLost("capacity_exceeded")
			r.log.WithContext(ctx).AssignmentRaceLost(a.LeadID.String(), a.PartnerID.String(), "capacity_exceeded")
		}
		return domain.Assignment{}, err
	}

	r.metrics.AssignmentCommitted(string(committed.Mode), committed.Score)
	r.log.WithContext(ctx).AssignmentCommitted(committed.LeadID.String(), committed.PartnerID.String(), string(committed.Mode), committed.Actor, committed.Score)

	if r.publisher != nil {
		r.publisher.Publish(ctx, events.LeadAssigned{
			BaseEvent:    events.NewBaseEventAt(committed.CreatedAt),
			AssignmentID: committed.ID,
			LeadID:       committed.LeadID,
			PartnerID:    committed.PartnerID,
			PartnerName:  req.PartnerName,
			Score:        committed.Score,
			Mode:         string(committed.Mode),
			Actor:        committed.Actor,
		})
	}
	return committed, nil
}

func validate(req Request) error {
	switch {
	case req.LeadID == uuid.Nil:
		return apperr.Validation("leadId is required")
	case req.PartnerID == uuid.Nil:
		return apperr.Validation("partnerId is required")
	case !req.Mode.Valid():
		return apperr.Validation("mode must be auto or manual").WithDetails(map[string]string{"mode": string(req.Mode)})
	case strings.TrimSpace(req.Actor) == "":
		return apperr.Validation("actor is required")
	case req.Score < 0 || req.Score > 100:
		return apperr.Validation("score must be within 0..100")
	}
	return nil
}
