package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"github.com/tonhe/netwatch/internal/platform"
)

// AllDevices selects every non-virtual interface the platform reports.
const AllDevices = "all"

type Config struct {
	LogLevel    string `toml:"log_level"`
	LogFile     string `toml:"log_file"`
	Theme       string `toml:"theme"`
	TrafficUnit string `toml:"traffic_unit"`
	DataUnit    string `toml:"data_unit"`

	Sampling    SamplingSection    `toml:"sampling"`
	Load        LoadSection        `toml:"load"`
	Forensics   ForensicsSection   `toml:"forensics"`
	Diagnostics DiagnosticsSection `toml:"diagnostics"`
}

type SamplingSection struct {
	RefreshInterval int           `toml:"refresh_interval"` // milliseconds
	AverageWindow   int           `toml:"average_window"`   // seconds
	HighPerformance bool          `toml:"high_performance"`
	Devices         []string      `toml:"devices"`
	IncludeVirtual  bool          `toml:"include_virtual"`
	HistorySize     int           `toml:"history_size"`
	GracePeriod     time.Duration `toml:"-"`
	GracePeriodStr  string        `toml:"grace_period"`
	WrapTolerance32 uint64        `toml:"wrap_tolerance_32"`
	WrapTolerance64 uint64        `toml:"wrap_tolerance_64"`
}

type LoadSection struct {
	RateThreshold  float64 `toml:"rate_threshold"`  // bytes per second, all interfaces
	EventThreshold float64 `toml:"event_threshold"` // forensics events per second
	Slowdown       int     `toml:"slowdown"`
}

type ForensicsSection struct {
	Enabled            bool          `toml:"enabled"`
	Capacity           int           `toml:"capacity"`
	ThrottlePerSecond  int           `toml:"throttle_per_second"`
	AnalysisTimeout    time.Duration `toml:"-"`
	AnalysisTimeoutStr string        `toml:"analysis_timeout"`
	Connections        bool          `toml:"connections"`
	SpikeFactor        float64       `toml:"spike_factor"`
	ScanWindow         time.Duration `toml:"-"`
	ScanWindowStr      string        `toml:"scan_window"`
	ScanThreshold      float64       `toml:"scan_threshold"`
	FloodThreshold     int           `toml:"flood_threshold"`
}

type DiagnosticsSection struct {
	Enabled         bool          `toml:"enabled"`
	Targets         []string      `toml:"targets"`
	Domains         []string      `toml:"dns_domains"`
	Interval        time.Duration `toml:"-"`
	IntervalStr     string        `toml:"interval"`
	Timeout         time.Duration `toml:"-"`
	TimeoutStr      string        `toml:"timeout"`
	GracePeriod     time.Duration `toml:"-"`
	GracePeriodStr  string        `toml:"grace_period"`
	MaxInFlight     int           `toml:"max_in_flight"`
	ProbesPerSecond float64       `toml:"probes_per_second"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		Theme:       "solarized-dark",
		TrafficUnit: "k",
		DataUnit:    "M",
		Sampling: SamplingSection{
			RefreshInterval: 1000,
			AverageWindow:   300,
			Devices:         []string{AllDevices},
			HistorySize:     300,
			GracePeriod:     10 * time.Second,
			GracePeriodStr:  "10s",
			WrapTolerance32: 1 << 28,
			WrapTolerance64: 1 << 40,
		},
		Load: LoadSection{
			RateThreshold:  50 * 1024 * 1024,
			EventThreshold: 50,
			Slowdown:       2,
		},
		Forensics: ForensicsSection{
			Enabled:            true,
			Capacity:           1000,
			ThrottlePerSecond:  100,
			AnalysisTimeout:    250 * time.Millisecond,
			AnalysisTimeoutStr: "250ms",
			Connections:        true,
			SpikeFactor:        5,
			ScanWindow:         time.Minute,
			ScanWindowStr:      "1m0s",
			ScanThreshold:      0.7,
			FloodThreshold:     100,
		},
		Diagnostics: DiagnosticsSection{
			Enabled:         true,
			Targets:         []string{"1.1.1.1", "8.8.8.8"},
			Domains:         []string{"cloudflare.com", "google.com"},
			Interval:        10 * time.Second,
			IntervalStr:     "10s",
			Timeout:         2 * time.Second,
			TimeoutStr:      "2s",
			GracePeriod:     500 * time.Millisecond,
			GracePeriodStr:  "500ms",
			MaxInFlight:     4,
			ProbesPerSecond: 20,
		},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults. The result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) parseDurations() error {
	var errs error
	parse := func(field, s string, dst *time.Duration) {
		if s == "" {
			return
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", field, err))
			return
		}
		*dst = d
	}
	parse("sampling.grace_period", c.Sampling.GracePeriodStr, &c.Sampling.GracePeriod)
	parse("forensics.analysis_timeout", c.Forensics.AnalysisTimeoutStr, &c.Forensics.AnalysisTimeout)
	parse("forensics.scan_window", c.Forensics.ScanWindowStr, &c.Forensics.ScanWindow)
	parse("diagnostics.interval", c.Diagnostics.IntervalStr, &c.Diagnostics.Interval)
	parse("diagnostics.timeout", c.Diagnostics.TimeoutStr, &c.Diagnostics.Timeout)
	parse("diagnostics.grace_period", c.Diagnostics.GracePeriodStr, &c.Diagnostics.GracePeriod)
	return errs
}

func SaveConfig(cfg *Config, path string) error {
	cfg.Sampling.GracePeriodStr = cfg.Sampling.GracePeriod.String()
	cfg.Forensics.AnalysisTimeoutStr = cfg.Forensics.AnalysisTimeout.String()
	cfg.Forensics.ScanWindowStr = cfg.Forensics.ScanWindow.String()
	cfg.Diagnostics.IntervalStr = cfg.Diagnostics.Interval.String()
	cfg.Diagnostics.TimeoutStr = cfg.Diagnostics.Timeout.String()
	cfg.Diagnostics.GracePeriodStr = cfg.Diagnostics.GracePeriod.String()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Bounds enforced by Validate.
const (
	MinRefreshInterval = 100
	MaxRefreshInterval = 60000
	MinAverageWindow   = 1
	MaxAverageWindow   = 86400
)

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	s := c.Sampling
	if s.RefreshInterval < MinRefreshInterval || s.RefreshInterval > MaxRefreshInterval {
		add("sampling.refresh_interval %d outside [%d, %d] ms", s.RefreshInterval, MinRefreshInterval, MaxRefreshInterval)
	}
	if s.AverageWindow < MinAverageWindow || s.AverageWindow > MaxAverageWindow {
		add("sampling.average_window %d outside [%d, %d] s", s.AverageWindow, MinAverageWindow, MaxAverageWindow)
	}
	if s.HistorySize < 10 || s.HistorySize > 10000 {
		add("sampling.history_size %d outside [10, 10000]", s.HistorySize)
	}
	if s.GracePeriod < 0 {
		add("sampling.grace_period must not be negative")
	}
	if len(s.Devices) == 0 {
		add("sampling.devices must not be empty (use [\"all\"])")
	}
	for _, d := range s.Devices {
		if d == AllDevices {
			continue
		}
		if err := platform.ValidateName(d); err != nil {
			add("sampling.devices: %w", err)
		}
	}

	if c.Load.Slowdown < 1 || c.Load.Slowdown > 10 {
		add("load.slowdown %d outside [1, 10]", c.Load.Slowdown)
	}
	if c.Load.RateThreshold < 0 || c.Load.EventThreshold < 0 {
		add("load thresholds must not be negative")
	}

	f := c.Forensics
	if f.Capacity < 10 || f.Capacity > 100000 {
		add("forensics.capacity %d outside [10, 100000]", f.Capacity)
	}
	if f.ThrottlePerSecond < 1 {
		add("forensics.throttle_per_second must be positive")
	}
	if f.AnalysisTimeout <= 0 {
		add("forensics.analysis_timeout must be positive")
	}

	d := c.Diagnostics
	if d.Timeout <= 0 {
		add("diagnostics.timeout must be positive")
	}
	if d.Interval < time.Second {
		add("diagnostics.interval %s shorter than 1s", d.Interval)
	}
	if d.MaxInFlight < 1 || d.MaxInFlight > 64 {
		add("diagnostics.max_in_flight %d outside [1, 64]", d.MaxInFlight)
	}
	return errs
}
