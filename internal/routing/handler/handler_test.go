package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lead_router_backend/internal/events"
	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/fairness"
	"lead_router_backend/internal/routing/repository"
	"lead_router_backend/internal/routing/service"
	"lead_router_backend/internal/routing/settings"
	"lead_router_backend/internal/routing/tuning"
	"lead_router_backend/platform/httpkit"
	"lead_router_backend/platform/logger"
	"lead_router_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine *gin.Engine
	store  *repository.MemoryStore
	queue  *fakeQueue
}

type fakeQueue struct {
	leads  []uuid.UUID
	actors []string
}

func (q *fakeQueue) EnqueueLeadRoute(_ context.Context, leadID uuid.UUID, actor string) error {
	q.leads = append(q.leads, leadID)
	q.actors = append(q.actors, actor)
	return nil
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	tn := tuning.Default()
	log := logger.Nop()
	bus := events.NewInMemoryBus(log)
	svc := service.New(service.Deps{
		Leads:     store,
		Partners:  store,
		Store:     store,
		Settings:  settings.NewStore(store, log, settings.WithPublisher(bus)),
		Analytics: fairness.NewAnalytics(store, store, tn),
		Tuning:    tn,
		Publisher: bus,
		Log:       log,
	})

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	v1.Use(httpkit.Actor())
	queue := &fakeQueue{}
	New(svc, validator.New(), queue).RegisterRoutes(v1.Group("/routing"), nil)
	return fixture{engine: engine, store: store, queue: queue}
}

func (f fixture) partner(name string, max, open int) uuid.UUID {
	last := time.Now().Add(-10 * time.Hour)
	rec := domain.PartnerRecord{
		Partner: domain.Partner{
			ID:           uuid.New(),
			Name:         name,
			Branches:     domain.AcceptsOnly("plumbing"),
			Regions:      domain.AcceptsOnly("nh"),
			MaxOpenLeads: max,
			Active:       true,
			CreatedAt:    time.Now().Add(-90 * 24 * time.Hour),
		},
		Stats: domain.PartnerStats{OpenLeads: open, LeadsAssigned: 10, ConversionRate: 50, LastAssignedAt: &last},
	}
	f.store.PutPartner(rec)
	return rec.Partner.ID
}

func (f fixture) lead() uuid.UUID {
	id := uuid.New()
	f.store.PutLead(domain.Lead{ID: id, Branch: "plumbing", Region: "nh", Status: domain.LeadStatusNew})
	return id
}

func (f fixture) do(t *testing.T, method, path string, body any, actor string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(httpkit.HeaderActor, actor)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRecommendationsListsCandidates(t *testing.T) {
	f := newFixture(t)
	f.partner("A", 5, 0)
	f.partner("B", 5, 1)
	leadID := f.lead()

	w := f.do(t, http.MethodGet, "/api/v1/routing/leads/"+leadID.String()+"/recommendations", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[service.Recommendations](t, w)
	assert.Equal(t, 2, got.TotalCandidates)
	assert.Len(t, got.Candidates, 2)
}

func TestRecommendationsRejectsBadLeadID(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/routing/leads/not-a-uuid/recommendations", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommendationsUnknownLeadIsNotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/routing/leads/"+uuid.NewString()+"/recommendations", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[httpkit.ErrorResponse](t, w).Code)
}

func TestManualAssignRecordsActor(t *testing.T) {
	f := newFixture(t)
	partnerID := f.partner("A", 5, 0)
	leadID := f.lead()

	w := f.do(t, http.MethodPost, "/api/v1/routing/leads/"+leadID.String()+"/assign",
		map[string]string{"partnerId": partnerID.String()}, "dispatcher-3")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	got := decode[domain.Assignment](t, w)
	assert.Equal(t, partnerID, got.PartnerID)
	assert.Equal(t, "dispatcher-3", got.Actor)
	assert.Equal(t, domain.AssignmentModeManual, got.Mode)

	again := f.do(t, http.MethodPost, "/api/v1/routing/leads/"+leadID.String()+"/assign",
		map[string]string{"partnerId": partnerID.String()}, "")
	assert.Equal(t, http.StatusConflict, again.Code)
}

func TestManualAssignToFullPartnerIsCapacityExceeded(t *testing.T) {
	f := newFixture(t)
	partnerID := f.partner("Full", 2, 2)
	leadID := f.lead()

	w := f.do(t, http.MethodPost, "/api/v1/routing/leads/"+leadID.String()+"/assign",
		map[string]string{"partnerId": partnerID.String()}, "")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "capacity_exceeded", decode[httpkit.ErrorResponse](t, w).Code)
}

func TestManualAssignRequiresPartner(t *testing.T) {
	f := newFixture(t)
	leadID := f.lead()

	w := f.do(t, http.MethodPost, "/api/v1/routing/leads/"+leadID.String()+"/assign", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAutoAssignUsesDefaultSettings(t *testing.T) {
	f := newFixture(t)
	f.partner("A", 5, 0)
	leadID := f.lead()

	w := f.do(t, http.MethodPost, "/api/v1/routing/leads/"+leadID.String()+"/auto-assign", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[service.AutoAssignResult](t, w)
	assert.Contains(t, []service.Outcome{service.OutcomeAssigned, service.OutcomeRecommended}, got.Outcome)
	assert.Equal(t, 1, got.Attempts)
}

func TestBulkAutoAssignValidatesSize(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/routing/leads/bulk-assign", map[string]any{"leadIds": []string{}}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	leadID := f.lead()
	w = f.do(t, http.MethodPost, "/api/v1/routing/leads/bulk-assign",
		map[string]any{"leadIds": []string{leadID.String(), uuid.NewString()}}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[service.BulkResult](t, w)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 1, got.Failed)
	require.NotNil(t, got.Items[1].Error)
	assert.Equal(t, "not_found", got.Items[1].Error.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/routing/settings", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(70), decode[map[string]any](t, w)["autoAssignThreshold"])

	body := map[string]any{
		"regionWeight": 30, "performanceWeight": 30, "fairnessWeight": 40,
		"autoAssign": false, "autoAssignThreshold": 55,
	}
	w = f.do(t, http.MethodPut, "/api/v1/routing/settings", body, "ops-lead")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[map[string]any](t, w)
	assert.Equal(t, false, got["autoAssign"])
	assert.Equal(t, "ops-lead", got["updatedBy"])
	weights := got["effectiveWeights"].(map[string]any)
	assert.InDelta(t, 0.10, weights["branch"].(float64), 1e-9)
	assert.InDelta(t, 0.36, weights["fairness"].(float64), 1e-9)
}

func TestSettingsOutOfRangeIsConfigurationError(t *testing.T) {
	f := newFixture(t)

	body := map[string]any{
		"regionWeight": 130, "performanceWeight": 30, "fairnessWeight": 40,
		"autoAssign": true, "autoAssignThreshold": 55,
	}
	w := f.do(t, http.MethodPut, "/api/v1/routing/settings", body, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "configuration", decode[httpkit.ErrorResponse](t, w).Code)

	missing := f.do(t, http.MethodPut, "/api/v1/routing/settings", map[string]any{"regionWeight": 10}, "")
	require.Equal(t, http.StatusBadRequest, missing.Code)
	assert.Equal(t, msgValidationFailed, decode[httpkit.ErrorResponse](t, missing).Error)
}

func TestDistributionReport(t *testing.T) {
	f := newFixture(t)
	f.partner("A", 5, 0)
	f.lead()

	w := f.do(t, http.MethodGet, "/api/v1/routing/distribution?windowDays=7", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[map[string]any](t, w)
	assert.Equal(t, float64(7), got["windowDays"])
	assert.NotEmpty(t, got["buckets"])

	bad := f.do(t, http.MethodGet, "/api/v1/routing/distribution?windowDays=0", nil, "")
	assert.Equal(t, http.StatusOK, bad.Code)

	tooLong := f.do(t, http.MethodGet, "/api/v1/routing/distribution?windowDays=9999", nil, "")
	assert.Equal(t, http.StatusBadRequest, tooLong.Code)
}

func TestLatestDistributionComputesWhenEmpty(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/routing/distribution/latest", nil, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestEnqueueRouteQueuesKnownLeads(t *testing.T) {
	f := newFixture(t)
	leadID := f.lead()

	w := f.do(t, http.MethodPost, "/api/v1/routing/leads/"+leadID.String()+"/enqueue", nil, "dispatcher-1")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, []uuid.UUID{leadID}, f.queue.leads)
	assert.Equal(t, []string{"dispatcher-1"}, f.queue.actors)

	missing := f.do(t, http.MethodPost, "/api/v1/routing/leads/"+uuid.NewString()+"/enqueue", nil, "")
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Len(t, f.queue.leads, 1)
}
