package domain

import (
	"fmt"

	"lead_router_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	msgLeadNotFound    = "lead not found"
	msgPartnerNotFound = "partner not found"
)

// ErrLeadNotFound is returned when a lead id is unknown.
func ErrLeadNotFound(id uuid.UUID) error {
	return apperr.NotFound(msgLeadNotFound).WithDetails(map[string]string{"leadId": id.String()})
}

// ErrPartnerNotFound is returned when a partner id is unknown.
func ErrPartnerNotFound(id uuid.UUID) error {
	return apperr.NotFound(msgPartnerNotFound).WithDetails(map[string]string{"partnerId": id.String()})
}

// ErrLeadNotRoutable is returned when routing starts on a lead that is not new.
func ErrLeadNotRoutable(id uuid.UUID, status LeadStatus) error {
	return apperr.InvalidState(fmt.Sprintf("lead is %s, only new leads can be routed", status)).
		WithDetails(map[string]string{"leadId": id.String(), "status": string(status)})
}

// ErrLeadAlreadyAssigned is returned when another caller assigned the lead first.
func ErrLeadAlreadyAssigned(id uuid.UUID) error {
	return apperr.Conflict("lead was already assigned").
		WithDetails(map[string]string{"leadId": id.String()})
}

// ErrPartnerAtCapacity is returned when a partner has no remaining slot or is paused.
func ErrPartnerAtCapacity(id uuid.UUID) error {
	return apperr.CapacityExceeded("partner has no remaining lead capacity").
		WithDetails(map[string]string{"partnerId": id.String()})
}
