// Package allocation turns a ranked candidate list into a routing decision.
package allocation

import "lead_router_backend/internal/routing/domain"

// Decide evaluates the auto-assign policy against the ranked list. The
// decision is recomputed from scratch on every call.
func Decide(ranked []domain.Candidate, settings domain.RouterSettings, limit int) domain.Decision {
	if len(ranked) == 0 {
		return domain.Decision{Action: domain.ActionNoCandidate}
	}

	top := ranked[0]
	if settings.AutoAssign && top.TotalScore >= float64(settings.AutoAssignThreshold) {
		return domain.Decision{
			Action:    domain.ActionAutoAssign,
			PartnerID: top.PartnerID,
			Selected:  &top,
		}
	}

	return domain.Decision{
		Action:          domain.ActionRecommend,
		Recommendations: Top(ranked, limit),
	}
}

// Top returns at most limit leading candidates as a fresh slice.
func Top(ranked []domain.Candidate, limit int) []domain.Candidate {
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]domain.Candidate, limit)
	copy(out, ranked[:limit])
	return out
}
