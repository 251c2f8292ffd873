package repository

import (
	"context"
	"testing"
	"time"

	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/ports"
	"lead_router_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock), mock
}

func testAssignment() domain.Assignment {
	return domain.Assignment{
		ID:        uuid.New(),
		LeadID:    uuid.New(),
		PartnerID: uuid.New(),
		Score:     77.8,
		Mode:      domain.AssignmentModeAuto,
		Actor:     "system",
		CreatedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestCommitAssignmentWritesAllRowsInOneTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := testAssignment()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE routing_leads").
		WithArgs(a.LeadID, a.PartnerID, a.CreatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO routing_partner_stats").
		WithArgs(a.PartnerID).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec("UPDATE routing_partner_stats").
		WithArgs(a.PartnerID, a.CreatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO routing_assignments").
		WithArgs(a.ID, a.LeadID, a.PartnerID, a.Score, pgxmock.AnyArg(), string(a.Mode), a.Actor, a.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	got, err := repo.CommitAssignment(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitAssignmentLeadAlreadyTaken(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := testAssignment()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE routing_leads").
		WithArgs(a.LeadID, a.PartnerID, a.CreatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT status FROM routing_leads").
		WithArgs(a.LeadID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("assigned"))
	mock.ExpectRollback()

	_, err := repo.CommitAssignment(context.Background(), a)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitAssignmentMissingLead(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := testAssignment()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE routing_leads").
		WithArgs(a.LeadID, a.PartnerID, a.CreatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT status FROM routing_leads").
		WithArgs(a.LeadID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, err := repo.CommitAssignment(context.Background(), a)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitAssignmentPartnerFull(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := testAssignment()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE routing_leads").
		WithArgs(a.LeadID, a.PartnerID, a.CreatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO routing_partner_stats").
		WithArgs(a.PartnerID).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec("UPDATE routing_partner_stats").
		WithArgs(a.PartnerID, a.CreatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(a.PartnerID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := repo.CommitAssignment(context.Background(), a)
	assert.True(t, apperr.Is(err, apperr.KindCapacityExceeded), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

var partnerCols = []string{
	"id", "business_name", "any_branch", "branches", "any_region", "regions",
	"max_open_leads", "is_active", "created_at",
	"leads_assigned_30d", "leads_accepted_30d", "leads_rejected_30d", "conversion_rate_30d",
	"open_leads_count", "last_lead_assigned_at", "avg_response_time_minutes",
}

func TestListRoutablePartnersScansEligibility(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	avg := 42.0

	mock.ExpectQuery("FROM routing_partners p").
		WithArgs("plumbing", "nh").
		WillReturnRows(pgxmock.NewRows(partnerCols).AddRow(
			id, "Acme Plumbing", false, []string{"plumbing"}, true, []string{},
			5, true, created,
			12, 6, 1, 50.0,
			2, &last, &avg,
		))

	recs, err := repo.ListRoutablePartners(context.Background(), " Plumbing ", "NH")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, id, rec.Partner.ID)
	assert.Equal(t, domain.MatchExact, rec.Partner.Branches.Match("plumbing"))
	assert.True(t, rec.Partner.Regions.IsAny())
	assert.Equal(t, 2, rec.Stats.OpenLeads)
	require.NotNil(t, rec.Stats.LastAssignedAt)
	assert.True(t, rec.Stats.LastAssignedAt.Equal(last))
	require.NotNil(t, rec.Stats.AvgResponseMinutes)
	assert.Equal(t, 42.0, *rec.Stats.AvgResponseMinutes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLeadNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("FROM routing_leads WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "branch", "region", "is_urgent", "status", "assigned_partner_id", "assigned_at", "created_at"}))

	_, err := repo.GetLead(context.Background(), id)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}

var settingsCols = []string{"region_weight", "performance_weight", "fairness_weight", "auto_assign", "auto_assign_threshold", "updated_by", "updated_at"}

func TestGetSettingsSeedsDefaultsFirst(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO routing_settings").
		WithArgs(50, 50, 50, true, 70, "system").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT region_weight").
		WillReturnRows(pgxmock.NewRows(settingsCols).AddRow(50, 50, 50, true, 70, "system", at))

	s, err := repo.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 70, s.AutoAssignThreshold)
	assert.True(t, s.AutoAssign)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSettingsUpserts(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	in := domain.RouterSettings{RegionWeight: 30, PerformanceWeight: 30, FairnessWeight: 40, AutoAssign: false, AutoAssignThreshold: 60, UpdatedBy: "ops", UpdatedAt: at}

	mock.ExpectQuery("ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(30, 30, 40, false, 60, "ops", at).
		WillReturnRows(pgxmock.NewRows(settingsCols).AddRow(30, 30, 40, false, 60, "ops", at))

	out, err := repo.SaveSettings(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteActivity(t *testing.T) {
	repo, mock := newMockRepo(t)
	act := ports.Activity{
		ID:          uuid.New(),
		LeadID:      uuid.New(),
		Type:        "lead_assigned",
		Description: "assigned",
		Actor:       "system",
		CreatedAt:   time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO routing_lead_activities").
		WithArgs(act.ID, act.LeadID, act.Type, act.Description, act.Actor, []byte("{}"), act.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.WriteActivity(context.Background(), act)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscalatedLeadsFiltersByTimelineType(t *testing.T) {
	repo, mock := newMockRepo(t)
	escalated, quiet := uuid.New(), uuid.New()

	mock.ExpectQuery("FROM routing_lead_activities").
		WithArgs(ports.ActivityRoutingEscalated, []string{escalated.String(), quiet.String()}).
		WillReturnRows(pgxmock.NewRows([]string{"lead_id"}).AddRow(escalated))

	got, err := repo.EscalatedLeads(context.Background(), []uuid.UUID{escalated, quiet})
	require.NoError(t, err)
	assert.True(t, got[escalated])
	assert.False(t, got[quiet])
	require.NoError(t, mock.ExpectationsWereMet())
}
