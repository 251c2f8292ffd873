package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"lead_router_backend/internal/routing/candidates"
	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/ports"

	"github.com/google/uuid"
)

// MemoryStore keeps routing state in process memory. A single mutex makes
// every commit atomic, so it is only suitable for one replica and for tests.
type MemoryStore struct {
	mu          sync.Mutex
	leads       map[uuid.UUID]domain.Lead
	partners    map[uuid.UUID]domain.PartnerRecord
	settings    *domain.RouterSettings
	assignments []domain.Assignment
	activities  []ports.Activity
	now         func() time.Time
}

var (
	_ ports.LeadReader         = (*MemoryStore)(nil)
	_ ports.PartnerDirectory   = (*MemoryStore)(nil)
	_ ports.AssignmentStore    = (*MemoryStore)(nil)
	_ ports.SettingsRepository = (*MemoryStore)(nil)
	_ ports.ActivityWriter     = (*MemoryStore)(nil)
	_ ports.EscalationLog      = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leads:    make(map[uuid.UUID]domain.Lead),
		partners: make(map[uuid.UUID]domain.PartnerRecord),
		now:      time.Now,
	}
}

// PutLead inserts or replaces a lead.
func (s *MemoryStore) PutLead(lead domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.Status == "" {
		lead.Status = domain.LeadStatusNew
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = s.now().UTC()
	}
	s.leads[lead.ID] = lead
}

// PutPartner inserts or replaces a partner together with its statistics.
func (s *MemoryStore) PutPartner(rec domain.PartnerRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Partner.CreatedAt.IsZero() {
		rec.Partner.CreatedAt = s.now().UTC()
	}
	s.partners[rec.Partner.ID] = rec
}

func (s *MemoryStore) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, domain.ErrLeadNotFound(id)
	}
	return lead, nil
}

func (s *MemoryStore) ListLeadsCreatedSince(_ context.Context, since time.Time) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		if !lead.CreatedAt.Before(since) {
			out = append(out, lead)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetPartner(_ context.Context, id uuid.UUID) (domain.PartnerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.partners[id]
	if !ok {
		return domain.PartnerRecord{}, domain.ErrPartnerNotFound(id)
	}
	return rec, nil
}

func (s *MemoryStore) ListRoutablePartners(_ context.Context, branch, region string) ([]domain.PartnerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	probe := domain.Lead{Branch: branch, Region: region, Status: domain.LeadStatusNew}
	out := make([]domain.PartnerRecord, 0, len(s.partners))
	for _, rec := range s.partners {
		if candidates.Check(probe, rec) == candidates.ReasonEligible {
			out = append(out, rec)
		}
	}
	sortPartners(out)
	return out, nil
}

func (s *MemoryStore) ListPartners(_ context.Context) ([]domain.PartnerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PartnerRecord, 0, len(s.partners))
	for _, rec := range s.partners {
		out = append(out, rec)
	}
	sortPartners(out)
	return out, nil
}

// CommitAssignment re-checks the lead status and partner capacity and applies
// every write under one lock.
func (s *MemoryStore) CommitAssignment(_ context.Context, a domain.Assignment) (domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[a.LeadID]
	if !ok {
		return domain.Assignment{}, domain.ErrLeadNotFound(a.LeadID)
	}
	rec, ok := s.partners[a.PartnerID]
	if !ok {
		return domain.Assignment{}, domain.ErrPartnerNotFound(a.PartnerID)
	}
	if lead.Status != domain.LeadStatusNew {
		return domain.Assignment{}, domain.ErrLeadAlreadyAssigned(a.LeadID)
	}
	if !rec.Partner.Active || !rec.HasCapacity() {
		return domain.Assignment{}, domain.ErrPartnerAtCapacity(a.PartnerID)
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}
	at := a.CreatedAt
	partnerID := a.PartnerID

	lead.Status = domain.LeadStatusAssigned
	lead.AssignedPartnerID = &partnerID
	lead.AssignedAt = &at
	s.leads[lead.ID] = lead

	rec.Stats.OpenLeads++
	rec.Stats.LeadsAssigned++
	rec.Stats.LastAssignedAt = &at
	s.partners[partnerID] = rec

	s.assignments = append(s.assignments, a)
	return a, nil
}

// Assignments returns a copy of every committed assignment in commit order.
func (s *MemoryStore) Assignments() []domain.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Assignment(nil), s.assignments...)
}

func (s *MemoryStore) GetSettings(_ context.Context) (domain.RouterSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		def := domain.DefaultSettings()
		def.UpdatedAt = s.now().UTC()
		s.settings = &def
	}
	return *s.settings, nil
}

func (s *MemoryStore) SaveSettings(_ context.Context, settings domain.RouterSettings) (domain.RouterSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = s.now().UTC()
	}
	s.settings = &settings
	return settings, nil
}

func (s *MemoryStore) WriteActivity(_ context.Context, activity ports.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = s.now().UTC()
	}
	s.activities = append(s.activities, activity)
	return nil
}

// Activities returns a copy of the activity log for a lead.
func (s *MemoryStore) Activities(leadID uuid.UUID) []ports.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.Activity
	for _, a := range s.activities {
		if a.LeadID == leadID {
			out = append(out, a)
		}
	}
	return out
}

func (s *MemoryStore) EscalatedLeads(_ context.Context, leadIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(leadIDs))
	for _, id := range leadIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]bool)
	for _, a := range s.activities {
		if a.Type == ports.ActivityRoutingEscalated && wanted[a.LeadID] {
			out[a.LeadID] = true
		}
	}
	return out, nil
}

func sortPartners(recs []domain.PartnerRecord) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Partner.ID.String() < recs[j].Partner.ID.String()
	})
}
