// Package handler exposes the routing operations over HTTP.
package handler

import (
	"context"
	"net/http"

	"lead_router_backend/internal/routing/service"
	"lead_router_backend/internal/routing/transport"
	"lead_router_backend/platform/httpkit"
	"lead_router_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

// RouteQueue hands a lead to the background worker.
type RouteQueue interface {
	EnqueueLeadRoute(ctx context.Context, leadID uuid.UUID, actor string) error
}

// Handler handles HTTP requests for lead routing.
type Handler struct {
	svc   *service.Service
	val   *validator.Validator
	queue RouteQueue
}

// New creates a new routing handler. queue may be nil when no worker runs;
// the enqueue route is then not registered.
func New(svc *service.Service, val *validator.Validator, queue RouteQueue) *Handler {
	return &Handler{svc: svc, val: val, queue: queue}
}

// RegisterRoutes registers routing routes. Mutating routes go through
// writeLimit when it is set.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, writeLimit gin.HandlerFunc) {
	write := []gin.HandlerFunc{}
	if writeLimit != nil {
		write = append(write, writeLimit)
	}

	rg.GET("/leads/:id/recommendations", h.GetRecommendations)
	rg.POST("/leads/:id/auto-assign", append(write, h.AutoAssign)...)
	rg.POST("/leads/:id/assign", append(write, h.ManualAssign)...)
	rg.POST("/leads/bulk-assign", append(write, h.BulkAutoAssign)...)
	if h.queue != nil {
		rg.POST("/leads/:id/enqueue", append(write, h.EnqueueRoute)...)
	}

	rg.GET("/settings", h.GetSettings)
	rg.PUT("/settings", append(write, h.UpdateSettings)...)

	rg.GET("/distribution", h.GetDistribution)
	rg.GET("/distribution/latest", h.GetLatestDistribution)
}

func (h *Handler) GetRecommendations(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetRecommendations(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) AutoAssign(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	result, err := h.svc.AutoAssign(c.Request.Context(), leadID, httpkit.GetActor(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// EnqueueRoute schedules an auto-assign run on the worker and returns
// immediately.
func (h *Handler) EnqueueRoute(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	if err := h.svc.EnsureRoutable(c.Request.Context(), leadID); httpkit.HandleError(c, err) {
		return
	}
	if err := h.queue.EnqueueLeadRoute(c.Request.Context(), leadID, httpkit.GetActor(c)); httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusAccepted, gin.H{"leadId": leadID, "status": "queued"})
}

func (h *Handler) ManualAssign(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.ManualAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	result, err := h.svc.ManualAssign(c.Request.Context(), leadID, req.PartnerID, httpkit.GetActor(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) BulkAutoAssign(c *gin.Context) {
	var req transport.BulkAutoAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	result, err := h.svc.BulkAutoAssign(c.Request.Context(), req.LeadIDs, httpkit.GetActor(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) GetSettings(c *gin.Context) {
	result, err := h.svc.GetSettings(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToSettingsResponse(result, h.svc.EffectiveWeights(result)))
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req transport.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	result, err := h.svc.UpdateSettings(c.Request.Context(), req.ToUpdate(), httpkit.GetActor(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToSettingsResponse(result, h.svc.EffectiveWeights(result)))
}

func (h *Handler) GetDistribution(c *gin.Context) {
	var req transport.DistributionQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	result, err := h.svc.GetDistributionReport(c.Request.Context(), req.Window())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToDistributionResponse(result))
}

func (h *Handler) GetLatestDistribution(c *gin.Context) {
	result, err := h.svc.GetLatestDistributionReport(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToDistributionResponse(result))
}

func parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
