package fairness

import (
	"context"
	"fmt"
	"time"

	"lead_router_backend/internal/events"
	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/metrics"
	"lead_router_backend/internal/routing/ports"
	"lead_router_backend/internal/routing/tuning"
	"lead_router_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// ReportCacheKey holds the most recent scheduled report.
const ReportCacheKey = "routing:distribution:latest"

// ReportCache stores the latest report between scheduler runs.
type ReportCache interface {
	Get(ctx context.Context) (domain.DistributionReport, bool, error)
	Set(ctx context.Context, value domain.DistributionReport) error
}

// Analytics loads snapshots and builds distribution reports. It only reads,
// so it runs alongside assignments without coordination.
type Analytics struct {
	leads     ports.LeadReader
	partners  ports.PartnerDirectory
	tuning    tuning.Tuning
	cache     ReportCache
	publisher events.Publisher
	metrics   metrics.Recorder
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*Analytics)

func WithReportCache(c ReportCache) Option { return func(a *Analytics) { a.cache = c } }

func WithPublisher(p events.Publisher) Option { return func(a *Analytics) { a.publisher = p } }

func WithMetrics(m metrics.Recorder) Option { return func(a *Analytics) { a.metrics = m } }

func WithLogger(l *logger.Logger) Option { return func(a *Analytics) { a.log = l } }

func NewAnalytics(leads ports.LeadReader, partners ports.PartnerDirectory, t tuning.Tuning, opts ...Option) *Analytics {
	a := &Analytics{
		leads:    leads,
		partners: partners,
		tuning:   t,
		metrics:  metrics.Nop{},
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ComputeDistribution builds a report for the trailing window. A
// non-positive window uses the configured default.
func (a *Analytics) ComputeDistribution(ctx context.Context, window time.Duration) (domain.DistributionReport, error) {
	if window <= 0 {
		window = a.tuning.DistributionWindow
	}
	now := a.now()

	var (
		leads    []domain.Lead
		partners []domain.PartnerRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leads, err = a.leads.ListLeadsCreatedSince(gctx, now.Add(-window))
		if err != nil {
			return fmt.Errorf("load leads: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		partners, err = a.partners.ListPartners(gctx)
		if err != nil {
			return fmt.Errorf("load partners: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.DistributionReport{}, err
	}

	report := Build(leads, partners, window, now, a.tuning)
	if report.SkippedRecords > 0 {
		a.log.WithContext(ctx).Warn("distribution report skipped malformed records", "skipped", report.SkippedRecords)
	}
	return report, nil
}

// Refresh computes the default-window report, stores it as the latest one
// and announces it. Cache failures are logged, not returned.
func (a *Analytics) Refresh(ctx context.Context) (domain.DistributionReport, error) {
	report, err := a.ComputeDistribution(ctx, a.tuning.DistributionWindow)
	if err != nil {
		return domain.DistributionReport{}, err
	}

	a.metrics.DistributionRefreshed(report.Fairness.Variance, len(report.Shortages), len(report.Overcapacity), report.SkippedRecords)

	if a.cache != nil {
		if err := a.cache.Set(ctx, report); err != nil {
			a.log.WithContext(ctx).Warn("distribution report cache write failed", "error", err)
		}
	}

	if a.publisher != nil {
		a.publisher.Publish(ctx, events.DistributionRefreshed{
			BaseEvent:      events.NewBaseEventAt(report.GeneratedAt),
			Window:         report.Window,
			Buckets:        len(report.Buckets),
			Shortages:      len(report.Shortages),
			Overcapacity:   len(report.Overcapacity),
			Variance:       report.Fairness.Variance,
			SkippedRecords: report.SkippedRecords,
		})
	}

	a.log.WithContext(ctx).Info("distribution report refreshed",
		"buckets", len(report.Buckets),
		"shortages", len(report.Shortages),
		"overcapacity", len(report.Overcapacity),
		"variance", report.Fairness.Variance,
	)
	return report, nil
}

// Latest returns the cached report, or refreshes when none is cached yet.
func (a *Analytics) Latest(ctx context.Context) (domain.DistributionReport, error) {
	if a.cache != nil {
		report, ok, err := a.cache.Get(ctx)
		if err != nil {
			a.log.WithContext(ctx).Warn("distribution report cache read failed", "error", err)
		} else if ok {
			return report, nil
		}
	}
	return a.Refresh(ctx)
}
