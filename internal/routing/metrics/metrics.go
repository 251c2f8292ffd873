// Package metrics instruments the routing pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives routing measurements. Nop is used when metrics are off.
type Recorder interface {
	Decision(action string)
	AssignmentCommitted(mode string, score float64)
	RaceLost(reason string)
	RouteRetried()
	DistributionRefreshed(variance float64, shortages, overcapacity, skipped int)
	ObserveScoring(d time.Duration)
}

// Nop discards every measurement.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) Decision(string)                              {}
func (Nop) AssignmentCommitted(string, float64)          {}
func (Nop) RaceLost(string)                              {}
func (Nop) RouteRetried()                                {}
func (Nop) DistributionRefreshed(float64, int, int, int) {}
func (Nop) ObserveScoring(time.Duration)                 {}

// Prometheus is a Recorder backed by client_golang collectors.
type Prometheus struct {
	decisions      *prometheus.CounterVec
	assignments    *prometheus.CounterVec
	scores         prometheus.Histogram
	raceLosses     *prometheus.CounterVec
	routeRetries   prometheus.Counter
	variance       prometheus.Gauge
	buckets        *prometheus.GaugeVec
	skipped        prometheus.Gauge
	scoringLatency prometheus.Histogram
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers the routing collectors on reg. A nil reg uses the
// default registerer; an empty namespace becomes "lead_router".
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "lead_router"
	}

	p := &Prometheus{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "decisions_total",
			Help:      "Routing decisions by action (auto_assign, recommend, no_candidate).",
		}, []string{"action"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "assignments_total",
			Help:      "Committed assignments by mode.",
		}, []string{"mode"}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "assignment_score",
			Help:      "Total score of committed assignments.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		raceLosses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "race_losses_total",
			Help:      "Assignment commits rejected at commit time, by reason.",
		}, []string{"reason"}),
		routeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "route_retries_total",
			Help:      "Pipeline restarts after losing partner capacity.",
		}),
		variance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "wait_variance_hours",
			Help:      "Population variance of hours since last assignment across active partners.",
		}),
		buckets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "flagged_buckets",
			Help:      "Branch/region buckets flagged in the latest report, by status.",
		}, []string{"status"}),
		skipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "skipped_records",
			Help:      "Malformed records skipped by the latest report.",
		}),
		scoringLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "pipeline_seconds",
			Help:      "Latency of candidate filtering plus scoring.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	reg.MustRegister(
		p.decisions,
		p.assignments,
		p.scores,
		p.raceLosses,
		p.routeRetries,
		p.variance,
		p.buckets,
		p.skipped,
		p.scoringLatency,
	)
	return p
}

func (p *Prometheus) Decision(action string) {
	p.decisions.WithLabelValues(action).Inc()
}

func (p *Prometheus) AssignmentCommitted(mode string, score float64) {
	p.assignments.WithLabelValues(mode).Inc()
	p.scores.Observe(score)
}

func (p *Prometheus) RaceLost(reason string) {
	p.raceLosses.WithLabelValues(reason).Inc()
}

func (p *Prometheus) RouteRetried() {
	p.routeRetries.Inc()
}

func (p *Prometheus) DistributionRefreshed(variance float64, shortages, overcapacity, skipped int) {
	p.variance.Set(variance)
	p.buckets.WithLabelValues("shortage").Set(float64(shortages))
	p.buckets.WithLabelValues("overcapacity").Set(float64(overcapacity))
	p.skipped.Set(float64(skipped))
}

func (p *Prometheus) ObserveScoring(d time.Duration) {
	p.scoringLatency.Observe(d.Seconds())
}
