package config

import (
	"slices"
	"time"
)

// Sampling is the runtime configuration owned by the scheduler. It is a
// plain value; reconfiguration swaps in a whole new one between ticks.
type Sampling struct {
	RefreshInterval time.Duration
	AverageWindow   time.Duration
	HighPerformance bool
	// Devices is nil for "all", otherwise the explicit interface list.
	Devices         []string
	IncludeVirtual  bool
	HistorySize     int
	GracePeriod     time.Duration
	WrapTolerance32 uint64
	WrapTolerance64 uint64

	LoadRateThreshold  float64
	LoadEventThreshold float64
	Slowdown           int

	AnalysisEnabled bool
	AnalysisTimeout time.Duration

	DiagnosticsEnabled     bool
	DiagnosticsInterval    time.Duration
	DiagnosticTargets      []string
	DNSDomains             []string
	DiagnosticsTimeout     time.Duration
	DiagnosticsGrace       time.Duration
	DiagnosticsMaxInFlight int
	ProbesPerSecond        float64
}

// AllDevices reports whether every available interface is monitored.
func (s Sampling) AllDevices() bool { return len(s.Devices) == 0 }

// SamplingValue derives the scheduler's configuration value.
func (c *Config) SamplingValue() Sampling {
	s := Sampling{
		RefreshInterval:    time.Duration(c.Sampling.RefreshInterval) * time.Millisecond,
		AverageWindow:      time.Duration(c.Sampling.AverageWindow) * time.Second,
		HighPerformance:    c.Sampling.HighPerformance,
		IncludeVirtual:     c.Sampling.IncludeVirtual,
		HistorySize:        c.Sampling.HistorySize,
		GracePeriod:        c.Sampling.GracePeriod,
		WrapTolerance32:    c.Sampling.WrapTolerance32,
		WrapTolerance64:    c.Sampling.WrapTolerance64,
		LoadRateThreshold:  c.Load.RateThreshold,
		LoadEventThreshold: c.Load.EventThreshold,
		Slowdown:           max(c.Load.Slowdown, 1),

		AnalysisEnabled: c.Forensics.Enabled,
		AnalysisTimeout: c.Forensics.AnalysisTimeout,

		DiagnosticsEnabled:     c.Diagnostics.Enabled,
		DiagnosticsInterval:    c.Diagnostics.Interval,
		DiagnosticTargets:      slices.Clone(c.Diagnostics.Targets),
		DNSDomains:             slices.Clone(c.Diagnostics.Domains),
		DiagnosticsTimeout:     c.Diagnostics.Timeout,
		DiagnosticsGrace:       c.Diagnostics.GracePeriod,
		DiagnosticsMaxInFlight: c.Diagnostics.MaxInFlight,
		ProbesPerSecond:        c.Diagnostics.ProbesPerSecond,
	}
	if !slices.Contains(c.Sampling.Devices, AllDevices) {
		s.Devices = slices.Clone(c.Sampling.Devices)
	}
	return s
}

// DefaultSampling is the configuration value of DefaultConfig.
func DefaultSampling() Sampling {
	return DefaultConfig().SamplingValue()
}
