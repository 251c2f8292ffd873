// Package scoring ranks eligible partners for a lead with a weighted,
// explainable heuristic.
package scoring

import (
	"math"
	"sort"
	"strings"
	"time"

	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/tuning"
)

const scoreEpsilon = 1e-9

// Engine scores candidates. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	tuning tuning.Tuning
}

// NewEngine creates a scoring engine with the given tuning constants.
func NewEngine(t tuning.Tuning) *Engine {
	return &Engine{tuning: t}
}

// NormalizeWeights turns the operator weights into blend weights. Branch
// match gets the fixed tuning share, the three configured weights split the
// remainder proportionally, or equally when all of them are zero.
func (e *Engine) NormalizeWeights(settings domain.RouterSettings) domain.Weights {
	region := math.Max(0, float64(settings.RegionWeight))
	performance := math.Max(0, float64(settings.PerformanceWeight))
	fairness := math.Max(0, float64(settings.FairnessWeight))

	total := region + performance + fairness
	if total == 0 {
		region, performance, fairness, total = 1, 1, 1, 3
	}

	rest := 1 - e.tuning.BranchWeight
	return domain.Weights{
		Branch:      e.tuning.BranchWeight,
		Region:      region / total * rest,
		Performance: performance / total * rest,
		Fairness:    fairness / total * rest,
	}
}

// Score computes the breakdown for every record and returns the candidates
// ranked best first. Ties fall to the longer wait, then to the lower partner id.
func (e *Engine) Score(lead domain.Lead, records []domain.PartnerRecord, settings domain.RouterSettings, now time.Time) []domain.Candidate {
	weights := e.NormalizeWeights(settings)

	ranked := make([]domain.Candidate, 0, len(records))
	for _, rec := range records {
		factors := e.factors(lead, rec, now)
		factors.Weights = weights

		total := factors.BranchMatch*weights.Branch +
			factors.RegionMatch*weights.Region +
			(factors.Performance+factors.UrgencyBonus)*weights.Performance +
			factors.Fairness*weights.Fairness

		ranked = append(ranked, domain.Candidate{
			PartnerID:    rec.Partner.ID,
			PartnerName:  rec.Partner.Name,
			TotalScore:   clamp(total),
			Factors:      factors,
			OpenLeads:    rec.Stats.OpenLeads,
			MaxOpenLeads: rec.Partner.MaxOpenLeads,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	return ranked
}

func (e *Engine) factors(lead domain.Lead, rec domain.PartnerRecord, now time.Time) domain.Factors {
	f := domain.Factors{
		BranchMatch: matchScore(rec.Partner.Branches.Match(lead.Branch), e.tuning.PartialCredit),
		RegionMatch: matchScore(rec.Partner.Regions.Match(lead.Region), e.tuning.PartialCredit),
	}

	if rec.Stats.AvgResponseMinutes != nil {
		speed := ResponseSpeedScore(*rec.Stats.AvgResponseMinutes)
		f.ResponseSpeed = &speed
	}

	if rec.Stats.HasObservations() {
		f.Performance = clamp(rec.Stats.ConversionRate)
		if lead.Urgent && f.ResponseSpeed != nil {
			f.UrgencyBonus = e.tuning.UrgentResponseShare * (*f.ResponseSpeed - f.Performance)
		}
	} else {
		f.NewPartner = true
		f.Performance = e.tuning.NeutralPerformance
	}

	if rec.Stats.LastAssignedAt == nil {
		f.NeverAssigned = true
		f.Fairness = maxScore
		if !rec.Partner.CreatedAt.IsZero() {
			f.WaitHours = hoursSince(rec.Partner.CreatedAt, now)
		}
	} else {
		wait := now.Sub(*rec.Stats.LastAssignedAt)
		if wait < 0 {
			wait = 0
		}
		f.WaitHours = wait.Hours()
		f.Fairness = FairnessScore(wait, e.tuning.FairnessCeiling)
	}

	return f
}

func less(a, b domain.Candidate) bool {
	if diff := a.TotalScore - b.TotalScore; math.Abs(diff) > scoreEpsilon {
		return diff > 0
	}
	if a.Factors.NeverAssigned != b.Factors.NeverAssigned {
		return a.Factors.NeverAssigned
	}
	if !a.Factors.NeverAssigned {
		if diff := a.Factors.WaitHours - b.Factors.WaitHours; math.Abs(diff) > scoreEpsilon {
			return diff > 0
		}
	}
	return strings.Compare(a.PartnerID.String(), b.PartnerID.String()) < 0
}

func hoursSince(t, now time.Time) float64 {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return d.Hours()
}
