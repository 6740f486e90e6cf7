package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitializeMetrics(t *testing.T) {
	// Must not panic and must leave pre-populated counters at zero.
	InitializeMetrics()

	if got := testutil.ToFloat64(InstancesCreatedTotal.WithLabelValues("spawn_failed")); got != 0 {
		t.Errorf("pre-populated counter = %v, want 0", got)
	}
}

func TestCounterIncrement(t *testing.T) {
	c := ThumbnailJobsTotal.WithLabelValues("success")
	before := testutil.ToFloat64(c)
	c.Inc()
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("counter delta = %v, want 1", got)
	}
}

func TestGaugeSet(t *testing.T) {
	CacheTracks.WithLabelValues("media").Set(42)
	if got := testutil.ToFloat64(CacheTracks.WithLabelValues("media")); got != 42 {
		t.Errorf("gauge = %v, want 42", got)
	}
}
