package domain

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentMode records whether the router or an operator chose the partner.
type AssignmentMode string

const (
	AssignmentModeAuto   AssignmentMode = "auto"
	AssignmentModeManual AssignmentMode = "manual"
)

// Valid reports whether the mode is known.
func (m AssignmentMode) Valid() bool {
	return m == AssignmentModeAuto || m == AssignmentModeManual
}

// Assignment is the immutable audit record of a committed lead assignment.
type Assignment struct {
	ID        uuid.UUID      `json:"id"`
	LeadID    uuid.UUID      `json:"leadId"`
	PartnerID uuid.UUID      `json:"partnerId"`
	Score     float64        `json:"score"`
	Factors   Factors        `json:"factors"`
	Mode      AssignmentMode `json:"mode"`
	Actor     string         `json:"actor"`
	CreatedAt time.Time      `json:"createdAt"`
}
