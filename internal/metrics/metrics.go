// Package metrics holds the in-process instrumentation registry. Nothing in
// netwatch serves it over the network; an exporter can Gather from Registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "netwatch"

// Metrics groups every collector the core updates. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	Ticks             prometheus.Counter
	TickDuration      prometheus.Histogram
	ReadErrors        *prometheus.CounterVec
	Discontinuities   *prometheus.CounterVec
	ForensicsEvents   *prometheus.CounterVec
	AnalysisFailures  *prometheus.CounterVec
	ProbeResults      *prometheus.CounterVec
	EffectiveInterval prometheus.Gauge
	Interfaces        prometheus.Gauge
}

// New builds a private registry with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Completed sampling ticks.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent in one sampling tick.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		ReadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_errors_total",
			Help:      "Platform counter reads that failed, by error kind.",
		}, []string{"kind"}),
		Discontinuities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counter_discontinuities_total",
			Help:      "Counter wraps and resets detected.",
		}, []string{"kind"}),
		ForensicsEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forensics_events_total",
			Help:      "Forensics events offered to the buffer, by outcome.",
		}, []string{"outcome"}),
		AnalysisFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_failures_total",
			Help:      "Analysis passes replaced by a fallback result.",
		}, []string{"analyzer"}),
		ProbeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_results_total",
			Help:      "Diagnostics probes by kind and outcome.",
		}, []string{"kind", "outcome"}),
		EffectiveInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "effective_interval_seconds",
			Help:      "Current sampling interval after load adaptation.",
		}),
		Interfaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interfaces",
			Help:      "Interfaces with live statistics.",
		}),
	}
	m.Registry.MustRegister(
		m.Ticks, m.TickDuration, m.ReadErrors, m.Discontinuities, m.ForensicsEvents,
		m.AnalysisFailures, m.ProbeResults, m.EffectiveInterval, m.Interfaces,
	)
	return m
}

func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.Ticks.Inc()
	m.TickDuration.Observe(d.Seconds())
}

func (m *Metrics) ReadError(kind string) {
	if m == nil {
		return
	}
	m.ReadErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) Discontinuity(kind string) {
	if m == nil {
		return
	}
	m.Discontinuities.WithLabelValues(kind).Inc()
}

func (m *Metrics) Event(accepted bool) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if !accepted {
		outcome = "dropped"
	}
	m.ForensicsEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AnalysisFailure(analyzer string) {
	if m == nil {
		return
	}
	m.AnalysisFailures.WithLabelValues(analyzer).Inc()
}

func (m *Metrics) Probe(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.ProbeResults.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) SetLoad(interval time.Duration, interfaces int) {
	if m == nil {
		return
	}
	m.EffectiveInterval.Set(interval.Seconds())
	m.Interfaces.Set(float64(interfaces))
}
