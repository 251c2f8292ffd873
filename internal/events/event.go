// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"lead_router_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Subjected   = events.Subjected
	Bus         = events.Bus
	Publisher   = events.Publisher
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

const (
	NameLeadAssigned          = "routing.lead.assigned"
	NameLeadEscalated         = "routing.lead.escalated"
	NameSettingsUpdated       = "routing.settings.updated"
	NameDistributionRefreshed = "routing.distribution.refreshed"
)

// =============================================================================
// Routing Domain Events
// =============================================================================

// LeadAssigned is published after an assignment has been committed.
type LeadAssigned struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	LeadID       uuid.UUID `json:"leadId"`
	PartnerID    uuid.UUID `json:"partnerId"`
	PartnerName  string    `json:"partnerName,omitempty"`
	Score        float64   `json:"score"`
	Mode         string    `json:"mode"`
	Actor        string    `json:"actor"`
}

func (e LeadAssigned) EventName() string { return NameLeadAssigned }
func (e LeadAssigned) Subject() string   { return e.LeadID.String() }

// LeadEscalated is published when the router could not assign a lead on its
// own. Reason is "no_candidate", "below_threshold" or "auto_assign_disabled".
type LeadEscalated struct {
	BaseEvent
	LeadID          uuid.UUID `json:"leadId"`
	Reason          string    `json:"reason"`
	TopScore        float64   `json:"topScore"`
	Recommendations int       `json:"recommendations"`
	Actor           string    `json:"actor"`
}

func (e LeadEscalated) EventName() string { return NameLeadEscalated }
func (e LeadEscalated) Subject() string   { return e.LeadID.String() }

// SettingsUpdated is published after router settings were saved.
type SettingsUpdated struct {
	BaseEvent
	RegionWeight        int    `json:"regionWeight"`
	PerformanceWeight   int    `json:"performanceWeight"`
	FairnessWeight      int    `json:"fairnessWeight"`
	AutoAssign          bool   `json:"autoAssign"`
	AutoAssignThreshold int    `json:"autoAssignThreshold"`
	UpdatedBy           string `json:"updatedBy"`
}

func (e SettingsUpdated) EventName() string { return NameSettingsUpdated }

// DistributionRefreshed is published after a distribution report was rebuilt.
type DistributionRefreshed struct {
	BaseEvent
	Window         time.Duration `json:"window"`
	Buckets        int           `json:"buckets"`
	Shortages      int           `json:"shortages"`
	Overcapacity   int           `json:"overcapacity"`
	Variance       float64       `json:"variance"`
	SkippedRecords int           `json:"skippedRecords"`
}

func (e DistributionRefreshed) EventName() string { return NameDistributionRefreshed }
