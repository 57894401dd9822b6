package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/tonhe/netwatch/internal/config"
	"github.com/tonhe/netwatch/internal/diagnostics"
	"github.com/tonhe/netwatch/internal/forensics"
	"github.com/tonhe/netwatch/internal/metrics"
	"github.com/tonhe/netwatch/internal/platform"
)

var (
	// ErrNoInterfaces is the only startup-fatal condition.
	ErrNoInterfaces = errors.New("no interfaces available and none specified")
	ErrStopped      = errors.New("scheduler stopped")
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger; the scheduler logs under the "scheduler" name.
func WithLogger(l *zap.Logger) Option { return func(s *Scheduler) { s.log = l } }

// WithClock sets the time source for ticks, timestamps and load tracking.
func WithClock(c clock.Clock) Option { return func(s *Scheduler) { s.clock = c } }

// WithMetrics sets the registry that tick, error and load metrics go to.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Scheduler) { s.metrics = m } }

// WithEvents sets the forensics buffer that receives anomaly signals.
func WithEvents(b *forensics.Buffer) Option { return func(s *Scheduler) { s.events = b } }

// WithAnalyzers adds analysis passes run inside the failure boundary.
func WithAnalyzers(a ...forensics.Analyzer) Option {
	return func(s *Scheduler) { s.analyzers = append(s.analyzers, a...) }
}

// WithProber sets the diagnostics prober triggered on its own period.
func WithProber(p *diagnostics.Prober) Option { return func(s *Scheduler) { s.prober = p } }

// interfaceState is owned by the tick goroutine; mu guards it only so that
// snapshots can be built concurrently.
type interfaceState struct {
	last         platform.Sample
	hasLast      bool
	stale        bool
	lastErr      error
	missingSince time.Time
	lastDelta    Delta
	fresh        bool
}

// Scheduler drives periodic collection, adapts cadence to load, and
// publishes immutable snapshots. Only one tick runs at a time.
type Scheduler struct {
	reader    platform.Reader
	clock     clock.Clock
	log       *zap.Logger
	metrics   *metrics.Metrics
	events    *forensics.Buffer
	analyzers []forensics.Analyzer
	passes    []*forensics.Boundary
	prober    *diagnostics.Prober

	cfg     atomic.Pointer[config.Sampling]
	applied *config.Sampling

	tickMu    sync.Mutex
	mu        sync.RWMutex
	agg       *Aggregator
	states    map[string]*interfaceState
	rejected  map[string]bool
	highLoad   bool
	overloaded bool
	slowdown   int
	lastProbe time.Time

	state      atomic.Int32
	effective  atomic.Int64
	seq        uint64
	tickCount  atomic.Uint64
	errorCount atomic.Uint64

	snap        atomic.Pointer[Snapshot]
	subMu       sync.Mutex
	subscribers []chan *Snapshot

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a Scheduler in the Idle state.
func NewScheduler(reader platform.Reader, cfg config.Sampling, opts ...Option) *Scheduler {
	s := &Scheduler{
		reader:   reader,
		states:   make(map[string]*interfaceState),
		rejected: make(map[string]bool),
		slowdown: 1,
		stopCh:   make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("scheduler")
	if s.events == nil {
		s.events = forensics.NewBuffer(forensics.BufferConfig{}, s.clock)
	}
	for _, a := range s.analyzers {
		s.passes = append(s.passes, forensics.NewBoundary(a))
	}

	c := cfg
	s.cfg.Store(&c)
	s.applied = &c
	s.agg = NewAggregator(c.AverageWindow, WindowCapacity(c.AverageWindow, c.RefreshInterval), c.HistorySize)
	s.effective.Store(int64(c.RefreshInterval))
	s.snap.Store(&Snapshot{State: StateIdle, EffectiveInterval: c.RefreshInterval})
	return s
}

// Reconfigure replaces the sampling configuration. It takes effect at the
// start of the next tick; a tick in flight keeps the value it started with.
func (s *Scheduler) Reconfigure(cfg config.Sampling) {
	c := cfg
	s.cfg.Store(&c)
}

// Config returns the current sampling configuration.
func (s *Scheduler) Config() config.Sampling { return *s.cfg.Load() }

func (s *Scheduler) State() State { return State(s.state.Load()) }

// EffectiveInterval is the refresh interval after load adaptation.
func (s *Scheduler) EffectiveInterval() time.Duration { return time.Duration(s.effective.Load()) }

// Events returns the forensics buffer for the security panel.
func (s *Scheduler) Events() *forensics.Buffer { return s.events }

// Prober returns the diagnostics prober, or nil.
func (s *Scheduler) Prober() *diagnostics.Prober { return s.prober }

// ResetPeaks clears peak and minimum rates on every interface.
func (s *Scheduler) ResetPeaks() { s.agg.ResetPeaks() }

// CheckStartup fails with ErrNoInterfaces when nothing can be monitored.
func (s *Scheduler) CheckStartup(ctx context.Context) error {
	cfg := s.cfg.Load()
	if cfg.AllDevices() {
		list, err := s.reader.ListInterfaces(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNoInterfaces, err)
		}
		if len(platform.Filter(list, cfg.IncludeVirtual)) == 0 {
			return ErrNoInterfaces
		}
		return nil
	}
	for _, name := range cfg.Devices {
		if platform.ValidateName(name) == nil {
			return nil
		}
	}
	return ErrNoInterfaces
}

// Run ticks until ctx is cancelled or Stop is called. A stop signal cancels
// the tick in flight; interfaces not yet sampled keep their previous state.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.CheckStartup(ctx); err != nil {
		s.setStopped()
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	defer s.setStopped()

	s.log.Info("sampling started",
		zap.Duration("interval", s.EffectiveInterval()),
		zap.Bool("all_devices", s.cfg.Load().AllDevices()))

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("tick failed", zap.Error(err))
		}
		timer := s.clock.Timer(s.EffectiveInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Stop signals the loop to exit.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Scheduler) setStopped() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.state.Store(int32(StateStopped))
	prev := s.snap.Load()
	final := *prev
	final.State = StateStopped
	s.snap.Store(&final)
	s.notify(&final)
	s.log.Info("sampling stopped", zap.Uint64("ticks", s.tickCount.Load()))
}

// Tick runs exactly one sampling cycle. It returns ctx.Err() if the tick
// was abandoned part way, and ErrStopped after the scheduler has stopped.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	if s.State() == StateStopped {
		return ErrStopped
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state.Store(int32(StateSampling))
	defer s.state.CompareAndSwap(int32(StateSampling), int32(StateIdle))

	start := s.clock.Now()
	cfg := s.applyConfig()
	policy := WrapPolicy{Tolerance32: cfg.WrapTolerance32, Tolerance64: cfg.WrapTolerance64}
	if policy.Tolerance32 == 0 && policy.Tolerance64 == 0 {
		policy = DefaultWrapPolicy()
	}

	names, present := s.resolve(ctx, cfg)
	var abandoned error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			abandoned = err
			break
		}
		s.sampleOne(ctx, name, policy)
	}

	now := s.clock.Now()
	if present != nil {
		s.markMissing(present, now)
	}
	s.expire(cfg, now)
	s.evaluateLoad(cfg)
	tick := s.tickCount.Add(1)

	if abandoned == nil {
		s.analyze(ctx, cfg, tick)
		s.maybeProbe(ctx, cfg, now)
	}

	snap := s.publish(start)
	s.metrics.ObserveTick(snap.TickDuration)
	s.metrics.SetLoad(snap.EffectiveInterval, len(snap.Interfaces))
	return abandoned
}

// applyConfig adopts a replaced configuration value between ticks.
func (s *Scheduler) applyConfig() *config.Sampling {
	cur := s.cfg.Load()
	if cur == s.applied {
		return cur
	}
	s.agg.Resize(cur.AverageWindow, WindowCapacity(cur.AverageWindow, cur.RefreshInterval), cur.HistorySize)
	if s.prober != nil {
		s.prober.Reconfigure(ProberConfig(*cur))
	}
	s.rejected = make(map[string]bool)
	s.applied = cur
	s.log.Info("configuration applied",
		zap.Duration("refresh_interval", cur.RefreshInterval),
		zap.Duration("average_window", cur.AverageWindow),
		zap.Bool("high_performance", cur.HighPerformance))
	return cur
}

// ProberConfig extracts the diagnostics settings from a sampling value.
func ProberConfig(c config.Sampling) diagnostics.Config {
	return diagnostics.Config{
		Targets:         c.DiagnosticTargets,
		Domains:         c.DNSDomains,
		Timeout:         c.DiagnosticsTimeout,
		GracePeriod:     c.DiagnosticsGrace,
		MaxInFlight:     c.DiagnosticsMaxInFlight,
		ProbesPerSecond: c.ProbesPerSecond,
	}
}

// resolve returns the interfaces to sample this tick. present is the set the
// platform listed, or nil when presence cannot be judged from a listing.
func (s *Scheduler) resolve(ctx context.Context, cfg *config.Sampling) ([]string, map[string]bool) {
	if !cfg.AllDevices() {
		names := make([]string, 0, len(cfg.Devices))
		for _, n := range cfg.Devices {
			if err := platform.ValidateName(n); err != nil {
				if !s.rejected[n] {
					s.rejected[n] = true
					s.metrics.ReadError(platform.Kind(err))
					s.log.Warn("rejected interface name", zap.Error(err))
					s.push(forensics.NewEvent(forensics.KindInvalidInput, forensics.SeverityWarning,
						s.clock.Now(), "config", err.Error()))
				}
				continue
			}
			names = append(names, n)
		}
		return names, nil
	}

	list, err := s.reader.ListInterfaces(ctx)
	if err != nil {
		s.metrics.ReadError(platform.Kind(err))
		s.log.Warn("list interfaces failed", zap.Error(err))
		s.mu.RLock()
		defer s.mu.RUnlock()
		names := make([]string, 0, len(s.states))
		for n := range s.states {
			names = append(names, n)
		}
		sort.Strings(names)
		return names, nil
	}
	names := platform.Filter(list, cfg.IncludeVirtual)
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	return names, present
}

// sampleOne reads one interface and commits the result as a unit.
func (s *Scheduler) sampleOne(ctx context.Context, name string, policy WrapPolicy) {
	sample, err := s.reader.ReadCounters(ctx, name)
	if err != nil {
		s.errorCount.Add(1)
		s.metrics.ReadError(platform.Kind(err))
		now := s.clock.Now()
		s.mu.Lock()
		st := s.states[name]
		if st == nil {
			st = &interfaceState{}
			s.states[name] = st
		}
		st.stale = true
		st.lastErr = err
		st.fresh = false
		if errors.Is(err, platform.ErrDeviceNotFound) && st.missingSince.IsZero() {
			st.missingSince = now
		}
		s.mu.Unlock()
		s.log.Debug("read failed", zap.String("interface", name), zap.Error(err))
		return
	}

	s.mu.RLock()
	st := s.states[name]
	var prev platform.Sample
	hasPrev := st != nil && st.hasLast
	if hasPrev {
		prev = st.last
	}
	s.mu.RUnlock()

	var d Delta
	have := false
	if hasPrev {
		d, err = ComputeDelta(prev, sample, policy)
		if errors.Is(err, ErrNoElapsed) {
			s.log.Debug("duplicate sample ignored", zap.String("interface", name))
			return
		}
		have = true
	}

	s.mu.Lock()
	if st == nil {
		st = &interfaceState{}
		s.states[name] = st
	}
	if have {
		s.agg.Record(name, d)
	}
	st.last = sample
	st.hasLast = true
	st.stale = false
	st.lastErr = nil
	st.missingSince = time.Time{}
	st.lastDelta = d
	st.fresh = have
	s.mu.Unlock()

	if have && d.Discontinuity != Ordinary {
		s.discontinuity(name, prev, sample, d)
	}
}

func (s *Scheduler) discontinuity(name string, prev, curr platform.Sample, d Delta) {
	s.metrics.Discontinuity(d.Discontinuity.String())
	kind := forensics.KindCounterWrap
	detail := fmt.Sprintf("counter wrapped: rx %d -> %d, tx %d -> %d", prev.RxBytes, curr.RxBytes, prev.TxBytes, curr.TxBytes)
	if d.Discontinuity == Reset {
		kind = forensics.KindCounterReset
		detail = fmt.Sprintf("counters restarted: rx %d -> %d, tx %d -> %d; totals preserved",
			prev.RxBytes, curr.RxBytes, prev.TxBytes, curr.TxBytes)
	}
	s.log.Info("counter discontinuity", zap.String("interface", name), zap.Stringer("kind", d.Discontinuity))
	s.push(forensics.NewEvent(kind, forensics.SeverityInfo, d.Timestamp, name, detail))
}

// markMissing starts the grace clock for tracked interfaces the platform
// no longer lists.
func (s *Scheduler) markMissing(present map[string]bool, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, st := range s.states {
		if present[name] {
			continue
		}
		st.stale = true
		st.fresh = false
		st.lastErr = &platform.ReadError{Op: "list", Interface: name, Err: platform.ErrDeviceNotFound}
		if st.missingSince.IsZero() {
			st.missingSince = now
		}
	}
}

// expire drops interfaces missing for longer than the grace period.
func (s *Scheduler) expire(cfg *config.Sampling, now time.Time) {
	var lost []string
	s.mu.Lock()
	for name, st := range s.states {
		if st.missingSince.IsZero() || now.Sub(st.missingSince) <= cfg.GracePeriod {
			continue
		}
		delete(s.states, name)
		s.agg.Remove(name)
		lost = append(lost, name)
	}
	s.mu.Unlock()

	sort.Strings(lost)
	for _, name := range lost {
		s.log.Info("interface removed", zap.String("interface", name))
		s.push(forensics.NewEvent(forensics.KindInterfaceLost, forensics.SeverityWarning, now, name,
			fmt.Sprintf("missing for more than %s", cfg.GracePeriod)))
	}
}

// evaluateLoad lengthens the effective interval under sustained traffic or
// event pressure, or when high-performance mode is requested.
func (s *Scheduler) evaluateLoad(cfg *config.Sampling) {
	traffic := s.agg.TotalRate(s.liveNames())
	events := s.events.EventRate()
	overloaded := (cfg.LoadRateThreshold > 0 && traffic > cfg.LoadRateThreshold) ||
		(cfg.LoadEventThreshold > 0 && events > cfg.LoadEventThreshold)
	high := cfg.HighPerformance || overloaded

	factor := 1
	if high {
		factor = max(cfg.Slowdown, 1)
	}
	if overloaded && !s.overloaded {
		s.push(forensics.NewEvent(forensics.KindResourceExhaustion, forensics.SeverityCritical, s.clock.Now(), "scheduler",
			fmt.Sprintf("sustained load (%.0f B/s, %.0f events/s): sampling slowed %dx", traffic, events, factor)))
	}
	if high != s.highLoad {
		s.log.Info("load mode changed", zap.Bool("high", high), zap.Float64("bytes_per_sec", traffic),
			zap.Float64("events_per_sec", events))
	}
	s.highLoad = high
	s.overloaded = overloaded
	s.slowdown = factor
	s.effective.Store(int64(cfg.RefreshInterval) * int64(factor))
}

// liveNames lists interfaces whose latest read succeeded. Stale ones keep
// their last rate for display but must not count as current traffic.
func (s *Scheduler) liveNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.states))
	for name, st := range s.states {
		if !st.stale {
			names = append(names, name)
		}
	}
	return names
}

// analyze runs every analyzer inside the failure boundary, at a frequency
// lowered by the current slowdown factor.
func (s *Scheduler) analyze(ctx context.Context, cfg *config.Sampling, tick uint64) {
	if !cfg.AnalysisEnabled || len(s.passes) == 0 {
		return
	}
	if tick%uint64(s.slowdown) != 0 {
		return
	}
	budget := s.EffectiveInterval() / 2
	if budget <= 0 {
		budget = cfg.AnalysisTimeout
	}
	actx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	in := s.analysisInput()
	for _, a := range s.passes {
		evs, err := a.Run(actx, in, cfg.AnalysisTimeout)
		if err != nil {
			s.metrics.AnalysisFailure(a.Name())
			s.log.Warn("analysis pass failed", zap.String("analyzer", a.Name()), zap.Error(err))
		}
		for _, ev := range evs {
			s.push(ev)
		}
	}
}

func (s *Scheduler) analysisInput() forensics.Input {
	in := forensics.Input{Now: s.clock.Now()}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.states))
	for n := range s.states {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		st := s.states[n]
		sig := forensics.InterfaceSignal{Name: n, Stale: st.stale}
		if stats, ok := s.agg.Snapshot(n); ok {
			sig.InstantRate = stats.Instant.Bytes()
			sig.AverageRate = stats.Average.Bytes()
		}
		if st.fresh {
			sig.ErrorsDelta = st.lastDelta.RxErrors + st.lastDelta.TxErrors
			sig.DropsDelta = st.lastDelta.RxDrops + st.lastDelta.TxDrops
		}
		in.Interfaces = append(in.Interfaces, sig)
	}
	return in
}

// maybeProbe starts a diagnostics round in the background when one is due.
// Rounds never overlap; the period stretches with the slowdown factor.
func (s *Scheduler) maybeProbe(ctx context.Context, cfg *config.Sampling, now time.Time) {
	if s.prober == nil || !cfg.DiagnosticsEnabled {
		return
	}
	period := cfg.DiagnosticsInterval * time.Duration(s.slowdown)
	if !s.lastProbe.IsZero() && now.Sub(s.lastProbe) < period {
		return
	}
	if s.prober.Trigger(ctx) {
		s.lastProbe = now
	}
}

func (s *Scheduler) push(ev forensics.Event) {
	s.metrics.Event(s.events.Push(ev))
}

// publish stores a new immutable snapshot and offers it to subscribers.
func (s *Scheduler) publish(start time.Time) *Snapshot {
	now := s.clock.Now()
	s.mu.RLock()
	names := make([]string, 0, len(s.states))
	for n := range s.states {
		names = append(names, n)
	}
	sort.Strings(names)
	ifaces := make([]InterfaceStats, 0, len(names))
	for _, n := range names {
		st := s.states[n]
		stats, ok := s.agg.Snapshot(n)
		if !ok {
			stats = InterfaceStats{Name: n}
		}
		stats.Stale = st.stale
		stats.LastError = st.lastErr
		ifaces = append(ifaces, stats)
	}
	s.mu.RUnlock()

	s.seq++
	snap := &Snapshot{
		Seq:               s.seq,
		Taken:             now,
		State:             StateIdle,
		Interfaces:        ifaces,
		EffectiveInterval: s.EffectiveInterval(),
		HighLoad:          s.highLoad,
		TickDuration:      now.Sub(start),
	}
	s.snap.Store(snap)
	s.notify(snap)
	return snap
}

// Snapshot returns the latest published snapshot. It never blocks on the
// tick in flight.
func (s *Scheduler) Snapshot() *Snapshot { return s.snap.Load() }

// Subscribe returns a channel that receives each new snapshot. A slow
// reader only ever sees the newest one. Subscribing after the scheduler
// stopped yields the final Stopped snapshot at once.
func (s *Scheduler) Subscribe() <-chan *Snapshot {
	ch := make(chan *Snapshot, 1)
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, ch)
	if s.State() == StateStopped {
		ch <- s.snap.Load()
	}
	return ch
}

// notify replaces any unread snapshot in each subscriber channel without
// blocking.
func (s *Scheduler) notify(snap *Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Info returns summary information about this scheduler.
func (s *Scheduler) Info() Info {
	snap := s.Snapshot()
	return Info{
		State:      s.State(),
		LastTick:   snap.Taken,
		TickCount:  s.tickCount.Load(),
		ErrorCount: s.errorCount.Load(),
		Interfaces: len(snap.Interfaces),
	}
}
