// Package ports declares the storage contracts the routing core consumes.
// Implementations live in internal/routing/repository.
package ports

import (
	"context"
	"time"

	"lead_router_backend/internal/routing/domain"

	"github.com/google/uuid"
)

// LeadReader loads leads by id and by creation window.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	ListLeadsCreatedSince(ctx context.Context, since time.Time) ([]domain.Lead, error)
}

// PartnerDirectory is a read-only view over partners and their rolling stats.
type PartnerDirectory interface {
	GetPartner(ctx context.Context, id uuid.UUID) (domain.PartnerRecord, error)
	// ListRoutablePartners returns active partners that may serve the branch
	// and region. Implementations may over-return; callers re-check.
	ListRoutablePartners(ctx context.Context, branch, region string) ([]domain.PartnerRecord, error)
	// ListPartners returns every partner, active or not.
	ListPartners(ctx context.Context) ([]domain.PartnerRecord, error)
}

// AssignmentStore provides the atomic conditional write behind the
// assignment recorder. CommitAssignment must, as one indivisible unit,
// verify that the lead is still new and the partner is active and under
// capacity, then mark the lead assigned, bump the partner counters and
// persist the assignment. It returns a Conflict error when the lead is no
// longer new and a CapacityExceeded error when the partner cannot take it.
type AssignmentStore interface {
	CommitAssignment(ctx context.Context, assignment domain.Assignment) (domain.Assignment, error)
}

// SettingsRepository persists the single router settings record.
type SettingsRepository interface {
	// GetSettings returns the stored settings, creating the default record
	// on first use.
	GetSettings(ctx context.Context) (domain.RouterSettings, error)
	SaveSettings(ctx context.Context, settings domain.RouterSettings) (domain.RouterSettings, error)
}

// ActivityWriter records explanation entries on a lead's timeline.
type ActivityWriter interface {
	WriteActivity(ctx context.Context, activity Activity) error
}

// Timeline entry types written by the router.
const (
	ActivityLeadAssigned     = "lead_assigned"
	ActivityRoutingEscalated = "routing_escalated"
)

// EscalationLog answers which leads already went to a human.
type EscalationLog interface {
	// EscalatedLeads returns the subset of leadIDs that have a
	// routing_escalated timeline entry.
	EscalatedLeads(ctx context.Context, leadIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

// Activity is a lead timeline entry produced by the router.
type Activity struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Type        string
	Description string
	Actor       string
	Metadata    map[string]any
	CreatedAt   time.Time
}
