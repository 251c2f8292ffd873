package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.AssignmentCommitted("auto", 80)
	p.AssignmentCommitted("auto", 72)
	p.AssignmentCommitted("manual", 40)
	p.RaceLost("conflict")
	p.Decision("recommend")

	if got := testutil.ToFloat64(p.assignments.WithLabelValues("auto")); got != 2 {
		t.Fatalf("expected 2 auto assignments, got %v", got)
	}
	if got := testutil.ToFloat64(p.raceLosses.WithLabelValues("conflict")); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
	if got := testutil.ToFloat64(p.decisions.WithLabelValues("recommend")); got != 1 {
		t.Fatalf("expected 1 recommend decision, got %v", got)
	}
}

func TestDistributionGauges(t *testing.T) {
	p := NewPrometheus(prometheus.NewRegistry(), "")
	p.DistributionRefreshed(12.5, 3, 1, 2)

	if got := testutil.ToFloat64(p.variance); got != 12.5 {
		t.Fatalf("expected variance 12.5, got %v", got)
	}
	if got := testutil.ToFloat64(p.buckets.WithLabelValues("shortage")); got != 3 {
		t.Fatalf("expected 3 shortages, got %v", got)
	}
}
