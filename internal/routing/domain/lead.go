package domain

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus is the lifecycle state of a lead.
type LeadStatus string

const (
	LeadStatusNew      LeadStatus = "new"
	LeadStatusAssigned LeadStatus = "assigned"
	LeadStatusClosed   LeadStatus = "closed"
)

// Lead is an inbound sales opportunity.
type Lead struct {
	ID                uuid.UUID
	Branch            string
	Region            string
	Urgent            bool
	Status            LeadStatus
	AssignedPartnerID *uuid.UUID
	AssignedAt        *time.Time
	CreatedAt         time.Time
}

// IsNew reports whether the lead can still be routed.
func (l Lead) IsNew() bool {
	return l.Status == LeadStatusNew
}
