package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	m := New()
	m.ObserveTick(5 * time.Millisecond)
	m.ObserveTick(5 * time.Millisecond)
	m.ReadError("parse")
	m.Event(true)
	m.Event(false)
	m.Event(false)
	m.Probe("host", false)
	m.SetLoad(2*time.Second, 3)

	if got := testutil.ToFloat64(m.Ticks); got != 2 {
		t.Errorf("ticks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ReadErrors.WithLabelValues("parse")); got != 1 {
		t.Errorf("parse errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ForensicsEvents.WithLabelValues("dropped")); got != 2 {
		t.Errorf("dropped events = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ProbeResults.WithLabelValues("host", "failure")); got != 1 {
		t.Errorf("probe failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EffectiveInterval); got != 2 {
		t.Errorf("effective interval = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Interfaces); got != 3 {
		t.Errorf("interfaces = %v, want 3", got)
	}

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected gathered metric families")
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveTick(time.Second)
	m.ReadError("parse")
	m.Discontinuity("wrap")
	m.Event(true)
	m.AnalysisFailure("traffic")
	m.Probe("dns", true)
	m.SetLoad(time.Second, 1)
}
