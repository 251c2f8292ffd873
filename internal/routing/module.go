// Package routing provides the lead routing bounded context module.
package routing

import (
	apphttp "lead_router_backend/internal/http"
	"lead_router_backend/internal/routing/handler"
	"lead_router_backend/internal/routing/service"
	"lead_router_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Module is the routing bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the routing module around an assembled service. queue
// is optional.
func NewModule(svc *service.Service, val *validator.Validator, queue handler.RouteQueue) *Module {
	return &Module{handler: handler.New(svc, val, queue), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "routing"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts routing routes under /api/v1/routing.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var writeLimit gin.HandlerFunc
	if ctx.WriteRateLimiter != nil {
		writeLimit = ctx.WriteRateLimiter.RateLimit()
	}
	m.handler.RegisterRoutes(ctx.V1.Group("/routing"), writeLimit)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
