package transport

import (
	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/settings"
)

// ToUpdate converts a validated request into a settings update.
func (r UpdateSettingsRequest) ToUpdate() settings.Update {
	return settings.Update{
		RegionWeight:        *r.RegionWeight,
		PerformanceWeight:   *r.PerformanceWeight,
		FairnessWeight:      *r.FairnessWeight,
		AutoAssign:          *r.AutoAssign,
		AutoAssignThreshold: *r.AutoAssignThreshold,
	}
}

// ToSettingsResponse pairs the stored settings with the blend weights the
// scoring engine derives from them.
func ToSettingsResponse(s domain.RouterSettings, effective domain.Weights) SettingsResponse {
	return SettingsResponse{
		RegionWeight:        s.RegionWeight,
		PerformanceWeight:   s.PerformanceWeight,
		FairnessWeight:      s.FairnessWeight,
		AutoAssign:          s.AutoAssign,
		AutoAssignThreshold: s.AutoAssignThreshold,
		EffectiveWeights:    effective,
		UpdatedBy:           s.UpdatedBy,
		UpdatedAt:           s.UpdatedAt,
	}
}

func ToDistributionResponse(r domain.DistributionReport) DistributionResponse {
	return DistributionResponse{
		WindowDays:     r.Window.Hours() / 24,
		GeneratedAt:    r.GeneratedAt,
		Buckets:        toBuckets(r.Buckets),
		Shortages:      toBuckets(r.Shortages),
		Overcapacity:   toBuckets(r.Overcapacity),
		Fairness:       r.Fairness,
		SkippedRecords: r.SkippedRecords,
	}
}

func toBuckets(in []domain.DistributionBucket) []BucketResponse {
	out := make([]BucketResponse, 0, len(in))
	for _, b := range in {
		out = append(out, BucketResponse{
			Branch:               b.Branch,
			Region:               b.Region,
			Partners:             b.PartnerCount,
			Leads:                b.LeadCount,
			Ratio:                b.Ratio,
			Status:               string(b.Status),
			VarianceContribution: b.VarianceContribution,
		})
	}
	return out
}
