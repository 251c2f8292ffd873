package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"lead_router_backend/internal/events"
	"lead_router_backend/internal/routing/ports"
	"lead_router_backend/internal/routing/repository"
	"lead_router_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) WriteActivity(context.Context, ports.Activity) error {
	return errors.New("disk full")
}

func TestAssignedEventWritesTimelineEntry(t *testing.T) {
	store := repository.NewMemoryStore()
	bus := events.NewInMemoryBus(logger.Nop())
	New(store, logger.Nop()).RegisterHandlers(bus)

	leadID := uuid.New()
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	err := bus.PublishSync(context.Background(), events.LeadAssigned{
		BaseEvent:    events.NewBaseEventAt(at),
		AssignmentID: uuid.New(),
		LeadID:       leadID,
		PartnerID:    uuid.New(),
		PartnerName:  "Loodgieter Noord",
		Score:        77.84,
		Mode:         "auto",
		Actor:        "system",
	})
	require.NoError(t, err)

	entries := store.Activities(leadID)
	require.Len(t, entries, 1)
	assert.Equal(t, TypeLeadAssigned, entries[0].Type)
	assert.Equal(t, "Assigned to Loodgieter Noord (auto, score 77.8)", entries[0].Description)
	assert.Equal(t, "system", entries[0].Actor)
	assert.True(t, entries[0].CreatedAt.Equal(at))
}

func TestEscalationReasonsAreDescribed(t *testing.T) {
	store := repository.NewMemoryStore()
	m := New(store, nil)
	leadID := uuid.New()

	for _, reason := range []string{"no_candidate", "below_threshold", "auto_assign_disabled"} {
		err := m.Handle(context.Background(), events.LeadEscalated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			Reason:    reason,
			TopScore:  55,
			Actor:     "system",
		})
		require.NoError(t, err)
	}

	entries := store.Activities(leadID)
	require.Len(t, entries, 3)
	assert.Contains(t, entries[0].Description, "No eligible partner")
	assert.Contains(t, entries[1].Description, "below the auto-assign threshold")
	assert.Contains(t, entries[2].Description, "Auto-assign is off")
	assert.Equal(t, "below_threshold", entries[1].Metadata["reason"])
}

func TestWriterFailureIsReturned(t *testing.T) {
	m := New(failingWriter{}, nil)

	err := m.Handle(context.Background(), events.LeadAssigned{LeadID: uuid.New()})
	assert.Error(t, err)
}

func TestNonLeadEventsAreIgnored(t *testing.T) {
	m := New(failingWriter{}, nil)

	assert.NoError(t, m.Handle(context.Background(), events.SettingsUpdated{UpdatedBy: "admin"}))
	assert.NoError(t, m.Handle(context.Background(), events.DistributionRefreshed{Shortages: 2}))
}
