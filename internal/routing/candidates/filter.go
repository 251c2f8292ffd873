// Package candidates selects the partners eligible to receive a lead.
package candidates

import (
	"context"
	"fmt"

	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/ports"
)

// Reason explains why a partner is not eligible for a lead.
type Reason string

const (
	ReasonEligible        Reason = ""
	ReasonInactive        Reason = "inactive"
	ReasonBranchMismatch  Reason = "branch_mismatch"
	ReasonRegionMismatch  Reason = "region_mismatch"
	ReasonCapacityReached Reason = "capacity_reached"
)

// Filter produces the eligible partner set for a lead.
type Filter struct {
	directory ports.PartnerDirectory
}

// NewFilter creates a filter over the given partner directory.
func NewFilter(directory ports.PartnerDirectory) *Filter {
	return &Filter{directory: directory}
}

// FindCandidates returns every partner that may receive the lead. The order
// is unspecified. An empty result is a valid outcome, not an error.
func (f *Filter) FindCandidates(ctx context.Context, lead domain.Lead) ([]domain.PartnerRecord, error) {
	if !lead.IsNew() {
		return nil, domain.ErrLeadNotRoutable(lead.ID, lead.Status)
	}

	records, err := f.directory.ListRoutablePartners(ctx, lead.Branch, lead.Region)
	if err != nil {
		return nil, fmt.Errorf("list routable partners: %w", err)
	}

	return Eligible(lead, records), nil
}

// Eligible keeps the records that pass Check for the lead.
func Eligible(lead domain.Lead, records []domain.PartnerRecord) []domain.PartnerRecord {
	out := make([]domain.PartnerRecord, 0, len(records))
	for _, rec := range records {
		if Check(lead, rec) == ReasonEligible {
			out = append(out, rec)
		}
	}
	return out
}

// Check evaluates the eligibility predicate: active, branch accepted, region
// accepted and strictly under capacity.
func Check(lead domain.Lead, rec domain.PartnerRecord) Reason {
	switch {
	case !rec.Partner.Active:
		return ReasonInactive
	case !rec.Partner.Branches.Accepts(lead.Branch):
		return ReasonBranchMismatch
	case !rec.Partner.Regions.Accepts(lead.Region):
		return ReasonRegionMismatch
	case !rec.HasCapacity():
		return ReasonCapacityReached
	}
	return ReasonEligible
}
