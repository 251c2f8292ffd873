package repository

import (
	"context"
	"sync"
	"testing"

	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/ports"
	"lead_router_backend/platform/apperr"

	"github.com/google/uuid"
)

func seedPartner(s *MemoryStore, max, open int) domain.PartnerRecord {
	rec := domain.PartnerRecord{
		Partner: domain.Partner{
			ID:           uuid.New(),
			Name:         "partner",
			Branches:     domain.AcceptsOnly("plumbing"),
			Regions:      domain.AcceptsAny(),
			MaxOpenLeads: max,
			Active:       true,
		},
		Stats: domain.PartnerStats{OpenLeads: open},
	}
	s.PutPartner(rec)
	return rec
}

func seedLead(s *MemoryStore) domain.Lead {
	lead := domain.Lead{ID: uuid.New(), Branch: "plumbing", Region: "NH", Status: domain.LeadStatusNew}
	s.PutLead(lead)
	return lead
}

func TestMemoryCommitUpdatesLeadAndCounters(t *testing.T) {
	s := NewMemoryStore()
	p := seedPartner(s, 3, 0)
	lead := seedLead(s)

	if _, err := s.CommitAssignment(context.Background(), domain.Assignment{ID: uuid.New(), LeadID: lead.ID, PartnerID: p.Partner.ID, Mode: domain.AssignmentModeManual, Actor: "ops"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gotLead, _ := s.GetLead(context.Background(), lead.ID)
	if gotLead.Status != domain.LeadStatusAssigned || gotLead.AssignedPartnerID == nil || *gotLead.AssignedPartnerID != p.Partner.ID {
		t.Fatalf("lead not marked assigned: %+v", gotLead)
	}
	gotPartner, _ := s.GetPartner(context.Background(), p.Partner.ID)
	if gotPartner.Stats.OpenLeads != 1 || gotPartner.Stats.LastAssignedAt == nil {
		t.Fatalf("partner counters not updated: %+v", gotPartner.Stats)
	}
	if len(s.Assignments()) != 1 {
		t.Fatalf("expected one audit record, got %d", len(s.Assignments()))
	}
}

func TestMemoryConcurrentCommitsOnSameLead(t *testing.T) {
	s := NewMemoryStore()
	lead := seedLead(s)
	partners := make([]domain.PartnerRecord, 8)
	for i := range partners {
		partners[i] = seedPartner(s, 5, 0)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(partners))
	for i, p := range partners {
		wg.Add(1)
		go func(i int, partnerID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = s.CommitAssignment(context.Background(), domain.Assignment{ID: uuid.New(), LeadID: lead.ID, PartnerID: partnerID, Mode: domain.AssignmentModeAuto, Actor: "system"})
		}(i, p.Partner.ID)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case !apperr.Is(err, apperr.KindConflict):
			t.Fatalf("expected conflict for losers, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if n := len(s.Assignments()); n != 1 {
		t.Fatalf("expected one audit record, got %d", n)
	}
}

func TestMemoryConcurrentCommitsOnLastSlot(t *testing.T) {
	s := NewMemoryStore()
	p := seedPartner(s, 3, 2)
	leads := make([]domain.Lead, 6)
	for i := range leads {
		leads[i] = seedLead(s)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(leads))
	for i, lead := range leads {
		wg.Add(1)
		go func(i int, leadID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = s.CommitAssignment(context.Background(), domain.Assignment{ID: uuid.New(), LeadID: leadID, PartnerID: p.Partner.ID, Mode: domain.AssignmentModeAuto, Actor: "system"})
		}(i, lead.ID)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case !apperr.Is(err, apperr.KindCapacityExceeded):
			t.Fatalf("expected capacity exceeded for losers, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	rec, _ := s.GetPartner(context.Background(), p.Partner.ID)
	if rec.Stats.OpenLeads != 3 {
		t.Fatalf("open leads must never exceed capacity, got %d", rec.Stats.OpenLeads)
	}
}

func TestMemoryCommitRejectsPausedPartner(t *testing.T) {
	s := NewMemoryStore()
	p := seedPartner(s, 3, 0)
	p.Partner.Active = false
	s.PutPartner(p)
	lead := seedLead(s)

	_, err := s.CommitAssignment(context.Background(), domain.Assignment{ID: uuid.New(), LeadID: lead.ID, PartnerID: p.Partner.ID, Mode: domain.AssignmentModeManual, Actor: "ops"})
	if !apperr.Is(err, apperr.KindCapacityExceeded) {
		t.Fatalf("expected capacity exceeded for paused partner, got %v", err)
	}
}

func TestMemoryListRoutableFilters(t *testing.T) {
	s := NewMemoryStore()
	open := seedPartner(s, 3, 0)
	seedPartner(s, 3, 3)

	recs, err := s.ListRoutablePartners(context.Background(), "plumbing", "NH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].Partner.ID != open.Partner.ID {
		t.Fatalf("expected only the partner with capacity, got %d records", len(recs))
	}
}

func TestMemorySettingsDefaultOnFirstUse(t *testing.T) {
	s := NewMemoryStore()
	got, err := s.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RegionWeight != 50 || !got.AutoAssign || got.AutoAssignThreshold != 70 {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestMemoryEscalatedLeads(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	escalated, assigned, quiet := uuid.New(), uuid.New(), uuid.New()

	_ = s.WriteActivity(ctx, ports.Activity{LeadID: escalated, Type: ports.ActivityRoutingEscalated})
	_ = s.WriteActivity(ctx, ports.Activity{LeadID: assigned, Type: ports.ActivityLeadAssigned})

	got, err := s.EscalatedLeads(ctx, []uuid.UUID{escalated, assigned, quiet})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || !got[escalated] {
		t.Fatalf("expected only the escalated lead, got %v", got)
	}
}
