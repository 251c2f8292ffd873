package routing

import (
	"time"

	"lead_router_backend/internal/events"
	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/fairness"
	"lead_router_backend/internal/routing/metrics"
	"lead_router_backend/internal/routing/ports"
	"lead_router_backend/internal/routing/repository"
	"lead_router_backend/internal/routing/service"
	"lead_router_backend/internal/routing/settings"
	"lead_router_backend/internal/routing/tuning"
	"lead_router_backend/platform/cache"
	"lead_router_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Backend is everything the routing core needs from storage.
type Backend interface {
	ports.LeadReader
	ports.PartnerDirectory
	ports.AssignmentStore
	ports.SettingsRepository
	ports.ActivityWriter
	ports.EscalationLog
}

var (
	_ Backend = (*repository.MemoryStore)(nil)
	_ Backend = (*repository.Repository)(nil)
)

// reportCacheTTL outlives the refresh cron so the latest report is always
// served from cache between runs.
const reportCacheTTL = time.Hour

// Options carries the optional collaborators of the routing service.
type Options struct {
	Tuning    tuning.Tuning
	Redis     redis.Cmdable
	Publisher events.Publisher
	Metrics   metrics.Recorder
	Log       *logger.Logger
}

// NewService assembles the routing service on top of a storage backend.
// Redis, when set, caches the settings snapshot and the latest report.
func NewService(b Backend, opts Options) *service.Service {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Nop{}
	}

	settingsOpts := []settings.Option{}
	analyticsOpts := []fairness.Option{fairness.WithMetrics(m), fairness.WithLogger(log)}
	if opts.Publisher != nil {
		settingsOpts = append(settingsOpts, settings.WithPublisher(opts.Publisher))
		analyticsOpts = append(analyticsOpts, fairness.WithPublisher(opts.Publisher))
	}
	if opts.Redis != nil {
		settingsOpts = append(settingsOpts, settings.WithCache(
			cache.NewJSON[domain.RouterSettings](opts.Redis, settings.CacheKey, settings.CacheTTL)))
		analyticsOpts = append(analyticsOpts, fairness.WithReportCache(
			cache.NewJSON[domain.DistributionReport](opts.Redis, fairness.ReportCacheKey, reportCacheTTL)))
	}

	return service.New(service.Deps{
		Leads:     b,
		Partners:  b,
		Store:     b,
		Settings:  settings.NewStore(b, log, settingsOpts...),
		Analytics: fairness.NewAnalytics(b, b, opts.Tuning, analyticsOpts...),
		Tuning:    opts.Tuning,
		Publisher: opts.Publisher,
		Metrics:   m,
		Log:       log,
	})
}
