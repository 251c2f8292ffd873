package candidates

import (
	"context"
	"errors"
	"testing"

	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/platform/apperr"

	"github.com/google/uuid"
)

type stubDirectory struct {
	records []domain.PartnerRecord
	err     error
}

func (s stubDirectory) GetPartner(context.Context, uuid.UUID) (domain.PartnerRecord, error) {
	return domain.PartnerRecord{}, errors.New("not used")
}

func (s stubDirectory) ListRoutablePartners(context.Context, string, string) ([]domain.PartnerRecord, error) {
	return s.records, s.err
}

func (s stubDirectory) ListPartners(context.Context) ([]domain.PartnerRecord, error) {
	return s.records, s.err
}

func partner(name string, branches, regions domain.Eligibility, open, max int, active bool) domain.PartnerRecord {
	return domain.PartnerRecord{
		Partner: domain.Partner{
			ID:           uuid.New(),
			Name:         name,
			Branches:     branches,
			Regions:      regions,
			MaxOpenLeads: max,
			Active:       active,
		},
		Stats: domain.PartnerStats{OpenLeads: open},
	}
}

func newLead() domain.Lead {
	return domain.Lead{ID: uuid.New(), Branch: "plumbing", Region: "NH", Status: domain.LeadStatusNew}
}

func TestFindCandidatesAppliesEveryPredicate(t *testing.T) {
	plumbingNH := domain.AcceptsOnly("plumbing")
	nh := domain.AcceptsOnly("nh")
	records := []domain.PartnerRecord{
		partner("exact", plumbingNH, nh, 0, 5, true),
		partner("any-branch", domain.AcceptsAny(), nh, 1, 5, true),
		partner("any-region", plumbingNH, domain.AcceptsAny(), 4, 5, true),
		partner("paused", plumbingNH, nh, 0, 5, false),
		partner("full", plumbingNH, nh, 5, 5, true),
		partner("over", plumbingNH, nh, 7, 5, true),
		partner("wrong-branch", domain.AcceptsOnly("roofing"), nh, 0, 5, true),
		partner("wrong-region", plumbingNH, domain.AcceptsOnly("utrecht"), 0, 5, true),
		partner("zero-capacity", plumbingNH, nh, 0, 0, true),
	}

	got, err := NewFilter(stubDirectory{records: records}).FindCandidates(context.Background(), newLead())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := map[string]bool{}
	for _, rec := range got {
		names[rec.Partner.Name] = true
		if rec.Stats.OpenLeads >= rec.Partner.MaxOpenLeads {
			t.Fatalf("partner %s returned at or over capacity", rec.Partner.Name)
		}
	}
	if len(got) != 3 || !names["exact"] || !names["any-branch"] || !names["any-region"] {
		t.Fatalf("unexpected candidate set: %v", names)
	}
}

func TestFindCandidatesRejectsNonNewLead(t *testing.T) {
	lead := newLead()
	lead.Status = domain.LeadStatusAssigned

	_, err := NewFilter(stubDirectory{}).FindCandidates(context.Background(), lead)
	if !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestFindCandidatesEmptyIsNotAnError(t *testing.T) {
	got, err := NewFilter(stubDirectory{}).FindCandidates(context.Background(), newLead())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestFindCandidatesWrapsDirectoryError(t *testing.T) {
	boom := errors.New("db down")
	_, err := NewFilter(stubDirectory{err: boom}).FindCandidates(context.Background(), newLead())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped directory error, got %v", err)
	}
}

func TestCheckReportsReason(t *testing.T) {
	lead := newLead()
	rec := partner("full", domain.AcceptsOnly("plumbing"), domain.AcceptsOnly("nh"), 2, 2, true)
	if got := Check(lead, rec); got != ReasonCapacityReached {
		t.Fatalf("expected capacity reason, got %q", got)
	}
	rec.Partner.Active = false
	if got := Check(lead, rec); got != ReasonInactive {
		t.Fatalf("expected inactive reason, got %q", got)
	}
}
