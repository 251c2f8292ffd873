// Package activity turns routing events into lead timeline entries so
// operators can see why a lead went where it went.
package activity

import (
	"context"
	"fmt"

	"lead_router_backend/internal/events"
	"lead_router_backend/internal/routing/ports"
	"lead_router_backend/platform/logger"
)

const (
	TypeLeadAssigned  = ports.ActivityLeadAssigned
	TypeLeadEscalated = ports.ActivityRoutingEscalated
)

// Subscriber is the part of the bus the module needs.
type Subscriber interface {
	Subscribe(eventName string, handler events.Handler)
}

// Module records routing outcomes on the lead timeline.
type Module struct {
	writer ports.ActivityWriter
	log    *logger.Logger
}

// New creates the activity module.
func New(writer ports.ActivityWriter, log *logger.Logger) *Module {
	if log == nil {
		log = logger.Nop()
	}
	return &Module{writer: writer, log: log}
}

// RegisterHandlers subscribes to the routing events on the bus.
func (m *Module) RegisterHandlers(bus Subscriber) {
	bus.Subscribe(events.NameLeadAssigned, m)
	bus.Subscribe(events.NameLeadEscalated, m)
	bus.Subscribe(events.NameSettingsUpdated, m)
	bus.Subscribe(events.NameDistributionRefreshed, m)

	m.log.Info("activity module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadAssigned:
		return m.handleLeadAssigned(ctx, e)
	case events.LeadEscalated:
		return m.handleLeadEscalated(ctx, e)
	case events.SettingsUpdated:
		m.log.WithContext(ctx).Info("router settings changed",
			"updated_by", e.UpdatedBy,
			"region_weight", e.RegionWeight,
			"performance_weight", e.PerformanceWeight,
			"fairness_weight", e.FairnessWeight,
			"auto_assign", e.AutoAssign,
			"threshold", e.AutoAssignThreshold,
		)
		return nil
	case events.DistributionRefreshed:
		if e.Shortages > 0 {
			m.log.WithContext(ctx).Warn("lead shortage detected", "buckets", e.Shortages, "window", e.Window.String())
		}
		return nil
	default:
		return nil
	}
}

func (m *Module) handleLeadAssigned(ctx context.Context, e events.LeadAssigned) error {
	name := e.PartnerName
	if name == "" {
		name = e.PartnerID.String()
	}
	err := m.writer.WriteActivity(ctx, ports.Activity{
		LeadID:      e.LeadID,
		Type:        TypeLeadAssigned,
		Description: fmt.Sprintf("Assigned to %s (%s, score %.1f)", name, e.Mode, e.Score),
		Actor:       e.Actor,
		Metadata: map[string]any{
			"assignmentId": e.AssignmentID.String(),
			"partnerId":    e.PartnerID.String(),
			"score":        e.Score,
			"mode":         e.Mode,
		},
		CreatedAt: e.OccurredAt(),
	})
	if err != nil {
		return fmt.Errorf("write assignment activity: %w", err)
	}
	return nil
}

func (m *Module) handleLeadEscalated(ctx context.Context, e events.LeadEscalated) error {
	err := m.writer.WriteActivity(ctx, ports.Activity{
		LeadID:      e.LeadID,
		Type:        TypeLeadEscalated,
		Description: escalationText(e),
		Actor:       e.Actor,
		Metadata: map[string]any{
			"reason":          e.Reason,
			"topScore":        e.TopScore,
			"recommendations": e.Recommendations,
		},
		CreatedAt: e.OccurredAt(),
	})
	if err != nil {
		return fmt.Errorf("write escalation activity: %w", err)
	}
	return nil
}

func escalationText(e events.LeadEscalated) string {
	switch e.Reason {
	case "no_candidate":
		return "No eligible partner with free capacity; needs manual follow-up"
	case "auto_assign_disabled":
		return fmt.Sprintf("Auto-assign is off; %d partners recommended (best score %.1f)", e.Recommendations, e.TopScore)
	default:
		return fmt.Sprintf("Best score %.1f is below the auto-assign threshold; %d partners recommended", e.TopScore, e.Recommendations)
	}
}
