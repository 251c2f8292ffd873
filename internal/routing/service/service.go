// Package service wires the routing pipeline into the operations exposed to
// the HTTP layer and the scheduler.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lead_router_backend/internal/events"
	"lead_router_backend/internal/routing/allocation"
	"lead_router_backend/internal/routing/assignment"
	"lead_router_backend/internal/routing/candidates"
	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/fairness"
	"lead_router_backend/internal/routing/metrics"
	"lead_router_backend/internal/routing/ports"
	"lead_router_backend/internal/routing/scoring"
	"lead_router_backend/internal/routing/settings"
	"lead_router_backend/internal/routing/tuning"
	"lead_router_backend/platform/apperr"
	"lead_router_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	ActorSystem = "system"
	ActorAdmin  = "admin"
)

// Outcome is the result of an auto-assign run.
type Outcome string

const (
	OutcomeAssigned    Outcome = "assigned"
	OutcomeRecommended Outcome = "recommended"
	OutcomeNoCandidate Outcome = "no_candidate"
)

// Recommendations is the ranked shortlist for manual review.
type Recommendations struct {
	LeadID          uuid.UUID          `json:"leadId"`
	Candidates      []domain.Candidate `json:"candidates"`
	TotalCandidates int                `json:"totalCandidates"`
}

// AutoAssignResult describes what AutoAssign did with a lead.
type AutoAssignResult struct {
	LeadID          uuid.UUID          `json:"leadId"`
	Outcome         Outcome            `json:"outcome"`
	Assignment      *domain.Assignment `json:"assignment,omitempty"`
	Recommendations []domain.Candidate `json:"recommendations"`
	Attempts        int                `json:"attempts"`
}

// Deps groups the collaborators of Service.
type Deps struct {
	Leads     ports.LeadReader
	Partners  ports.PartnerDirectory
	Store     ports.AssignmentStore
	Settings  *settings.Store
	Analytics *fairness.Analytics
	Tuning    tuning.Tuning
	Publisher events.Publisher
	Metrics   metrics.Recorder
	Log       *logger.Logger
}

// Service implements the routing operations.
type Service struct {
	leads     ports.LeadReader
	partners  ports.PartnerDirectory
	filter    *candidates.Filter
	engine    *scoring.Engine
	recorder  *assignment.Recorder
	settings  *settings.Store
	analytics *fairness.Analytics
	tuning    tuning.Tuning
	publisher events.Publisher
	metrics   metrics.Recorder
	log       *logger.Logger
	now       func() time.Time
}

func New(deps Deps) *Service {
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop{}
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		leads:     deps.Leads,
		partners:  deps.Partners,
		filter:    candidates.NewFilter(deps.Partners),
		engine:    scoring.NewEngine(deps.Tuning),
		recorder:  assignment.NewRecorder(deps.Store, deps.Publisher, m, log),
		settings:  deps.Settings,
		analytics: deps.Analytics,
		tuning:    deps.Tuning,
		publisher: deps.Publisher,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// rank runs CandidateFilter and ScoringEngine for one lead.
func (s *Service) rank(ctx context.Context, lead domain.Lead, snapshot domain.RouterSettings) ([]domain.Candidate, error) {
	start := time.Now()
	eligible, err := s.filter.FindCandidates(ctx, lead)
	if err != nil {
		return nil, err
	}
	ranked := s.engine.Score(lead, eligible, snapshot, s.now())
	s.metrics.ObserveScoring(time.Since(start))
	return ranked, nil
}

// GetRecommendations returns the top candidates without changing anything.
func (s *Service) GetRecommendations(ctx context.Context, leadID uuid.UUID) (Recommendations, error) {
	lead, err := s.leads.GetLead(ctx, leadID)
	if err != nil {
		return Recommendations{}, err
	}
	snapshot, err := s.settings.Get(ctx)
	if err != nil {
		return Recommendations{}, err
	}

	ranked, err := s.rank(ctx, lead, snapshot)
	if err != nil {
		return Recommendations{}, err
	}
	return Recommendations{
		LeadID:          lead.ID,
		Candidates:      allocation.Top(ranked, s.tuning.RecommendationLimit),
		TotalCandidates: len(ranked),
	}, nil
}

// EnsureRoutable checks that the lead exists and is still new.
func (s *Service) EnsureRoutable(ctx context.Context, leadID uuid.UUID) error {
	lead, err := s.leads.GetLead(ctx, leadID)
	if err != nil {
		return err
	}
	if !lead.IsNew() {
		return domain.ErrLeadNotRoutable(lead.ID, lead.Status)
	}
	return nil
}

// AutoAssign routes a lead end to end. Losing partner capacity at commit
// restarts the pipeline from candidate filtering; losing the lead itself
// is returned as a conflict.
func (s *Service) AutoAssign(ctx context.Context, leadID uuid.UUID, actor string) (AutoAssignResult, error) {
	actor = normalizeActor(actor, ActorSystem)
	snapshot, err := s.settings.Get(ctx)
	if err != nil {
		return AutoAssignResult{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.tuning.MaxRouteAttempts; attempt++ {
		lead, err := s.leads.GetLead(ctx, leadID)
		if err != nil {
			return AutoAssignResult{}, err
		}
		if attempt > 1 && !lead.IsNew() {
			return AutoAssignResult{}, domain.ErrLeadAlreadyAssigned(leadID)
		}

		ranked, err := s.rank(ctx, lead, snapshot)
		if err != nil {
			return AutoAssignResult{}, err
		}

		decision := allocation.Decide(ranked, snapshot, s.tuning.RecommendationLimit)
		s.metrics.Decision(string(decision.Action))
		s.log.WithContext(ctx).RoutingDecision(leadID.String(), string(decision.Action), len(ranked), topScore(ranked))

		result := AutoAssignResult{LeadID: leadID, Attempts: attempt, Recommendations: []domain.Candidate{}}
		switch decision.Action {
		case domain.ActionNoCandidate:
			result.Outcome = OutcomeNoCandidate
			s.escalate(ctx, leadID, "no_candidate", ranked, actor)
			return result, nil

		case domain.ActionRecommend:
			result.Outcome = OutcomeRecommended
			result.Recommendations = decision.Recommendations
			reason := "below_threshold"
			if !snapshot.AutoAssign {
				reason = "auto_assign_disabled"
			}
			s.escalate(ctx, leadID, reason, decision.Recommendations, actor)
			return result, nil
		}

		top := decision.Selected
		committed, err := s.recorder.Assign(ctx, assignment.Request{
			LeadID:      leadID,
			PartnerID:   top.PartnerID,
			PartnerName: top.PartnerName,
			Score:       top.TotalScore,
			Factors:     top.Factors,
			Mode:        domain.AssignmentModeAuto,
			Actor:       actor,
		})
		if err == nil {
			result.Outcome = OutcomeAssigned
			result.Assignment = &committed
			return result, nil
		}
		if !apperr.Is(err, apperr.KindCapacityExceeded) {
			return AutoAssignResult{}, err
		}
		lastErr = err
		if attempt < s.tuning.MaxRouteAttempts {
			s.metrics.RouteRetried()
		}
	}
	return AutoAssignResult{}, lastErr
}

// ManualAssign commits an operator's choice. The chosen partner is scored
// for the audit record even when it is not the top candidate.
func (s *Service) ManualAssign(ctx context.Context, leadID, partnerID uuid.UUID, actor string) (domain.Assignment, error) {
	actor = normalizeActor(actor, ActorAdmin)

	lead, err := s.leads.GetLead(ctx, leadID)
	if err != nil {
		return domain.Assignment{}, err
	}
	switch lead.Status {
	case domain.LeadStatusNew:
	case domain.LeadStatusAssigned:
		return domain.Assignment{}, domain.ErrLeadAlreadyAssigned(leadID)
	default:
		return domain.Assignment{}, domain.ErrLeadNotRoutable(leadID, lead.Status)
	}

	rec, err := s.partners.GetPartner(ctx, partnerID)
	if err != nil {
		return domain.Assignment{}, err
	}
	switch candidates.Check(lead, rec) {
	case candidates.ReasonBranchMismatch, candidates.ReasonRegionMismatch:
		return domain.Assignment{}, apperr.Validation("partner does not serve this lead's branch and region").
			WithDetails(map[string]string{"partnerId": partnerID.String(), "branch": lead.Branch, "region": lead.Region})
	case candidates.ReasonInactive, candidates.ReasonCapacityReached:
		return domain.Assignment{}, domain.ErrPartnerAtCapacity(partnerID)
	}

	snapshot, err := s.settings.Get(ctx)
	if err != nil {
		return domain.Assignment{}, err
	}
	scored := s.engine.Score(lead, []domain.PartnerRecord{rec}, snapshot, s.now())[0]

	return s.recorder.Assign(ctx, assignment.Request{
		LeadID:      leadID,
		PartnerID:   partnerID,
		PartnerName: rec.Partner.Name,
		Score:       scored.TotalScore,
		Factors:     scored.Factors,
		Mode:        domain.AssignmentModeManual,
		Actor:       actor,
	})
}

func (s *Service) GetSettings(ctx context.Context) (domain.RouterSettings, error) {
	return s.settings.Get(ctx)
}

// EffectiveWeights returns the normalised blend weights for a settings snapshot.
func (s *Service) EffectiveWeights(snapshot domain.RouterSettings) domain.Weights {
	return s.engine.NormalizeWeights(snapshot)
}

func (s *Service) UpdateSettings(ctx context.Context, in settings.Update, actor string) (domain.RouterSettings, error) {
	return s.settings.Update(ctx, in, normalizeActor(actor, ActorAdmin))
}

// GetDistributionReport computes a fresh report for the window.
func (s *Service) GetDistributionReport(ctx context.Context, window time.Duration) (domain.DistributionReport, error) {
	if window < 0 {
		return domain.DistributionReport{}, apperr.Validation(fmt.Sprintf("window must not be negative, got %s", window))
	}
	return s.analytics.ComputeDistribution(ctx, window)
}

// GetLatestDistributionReport returns the report produced by the last
// scheduled refresh.
func (s *Service) GetLatestDistributionReport(ctx context.Context) (domain.DistributionReport, error) {
	return s.analytics.Latest(ctx)
}

// RefreshDistribution rebuilds and caches the default-window report.
func (s *Service) RefreshDistribution(ctx context.Context) (domain.DistributionReport, error) {
	return s.analytics.Refresh(ctx)
}

func (s *Service) escalate(ctx context.Context, leadID uuid.UUID, reason string, shortlist []domain.Candidate, actor string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, events.LeadEscalated{
		BaseEvent:       events.NewBaseEventAt(s.now()),
		LeadID:          leadID,
		Reason:          reason,
		TopScore:        topScore(shortlist),
		Recommendations: len(shortlist),
		Actor:           actor,
	})
}

func topScore(ranked []domain.Candidate) float64 {
	if len(ranked) == 0 {
		return 0
	}
	return ranked[0].TotalScore
}

func normalizeActor(actor, fallback string) string {
	if trimmed := strings.TrimSpace(actor); trimmed != "" {
		return trimmed
	}
	return fallback
}
