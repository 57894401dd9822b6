package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/tonhe/netwatch/internal/ring"
)

// DefaultHistorySize is the number of graph points kept per interface.
const DefaultHistorySize = 300

type series struct {
	window  *RateWindow
	history *ring.Buffer[HistoryPoint]
	instant Rates
	peak    Rates
	min     Rates
	totals  Totals
	samples uint64
	wraps   uint64
	resets  uint64
	last    time.Time
}

// Aggregator maintains bounded rolling statistics per interface. Record is
// called only by the scheduler; Snapshot may be called from any goroutine
// and holds the lock only while copying.
type Aggregator struct {
	mu          sync.RWMutex
	span        time.Duration
	windowCap   int
	historySize int
	series      map[string]*series
}

// NewAggregator creates an aggregator averaging over span, with windowCap
// entries per window and historySize graph points.
func NewAggregator(span time.Duration, windowCap, historySize int) *Aggregator {
	if historySize < 1 {
		historySize = DefaultHistorySize
	}
	return &Aggregator{
		span:        span,
		windowCap:   windowCap,
		historySize: historySize,
		series:      make(map[string]*series),
	}
}

// Record folds one delta into the interface's statistics.
func (a *Aggregator) Record(name string, d Delta) {
	if d.Elapsed <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.series[name]
	if !ok {
		s = &series{
			window:  NewRateWindow(a.span, a.windowCap),
			history: ring.New[HistoryPoint](a.historySize),
		}
		a.series[name] = s
	}

	secs := d.Elapsed.Seconds()
	s.instant = Rates{
		RxBytes:   float64(d.RxBytes) / secs,
		TxBytes:   float64(d.TxBytes) / secs,
		RxPackets: float64(d.RxPackets) / secs,
		TxPackets: float64(d.TxPackets) / secs,
	}
	s.window.Insert(d)

	s.peak.RxBytes = max(s.peak.RxBytes, s.instant.RxBytes)
	s.peak.TxBytes = max(s.peak.TxBytes, s.instant.TxBytes)
	s.peak.RxPackets = max(s.peak.RxPackets, s.instant.RxPackets)
	s.peak.TxPackets = max(s.peak.TxPackets, s.instant.TxPackets)
	s.min.RxBytes = minNonZero(s.min.RxBytes, s.instant.RxBytes)
	s.min.TxBytes = minNonZero(s.min.TxBytes, s.instant.TxBytes)
	s.min.RxPackets = minNonZero(s.min.RxPackets, s.instant.RxPackets)
	s.min.TxPackets = minNonZero(s.min.TxPackets, s.instant.TxPackets)

	s.totals.RxBytes += d.RxBytes
	s.totals.TxBytes += d.TxBytes
	s.totals.RxPackets += d.RxPackets
	s.totals.TxPackets += d.TxPackets
	s.totals.RxErrors += d.RxErrors
	s.totals.TxErrors += d.TxErrors
	s.totals.RxDrops += d.RxDrops
	s.totals.TxDrops += d.TxDrops

	switch d.Discontinuity {
	case Wrapped:
		s.wraps++
	case Reset:
		s.resets++
	}
	s.samples++
	s.last = d.Timestamp
	s.history.Add(HistoryPoint{Timestamp: d.Timestamp, Rx: s.instant.RxBytes, Tx: s.instant.TxBytes})
}

func minNonZero(cur, v float64) float64 {
	if v <= 0 {
		return cur
	}
	if cur == 0 || v < cur {
		return v
	}
	return cur
}

// Snapshot returns a copy of the interface's statistics.
func (a *Aggregator) Snapshot(name string) (InterfaceStats, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.series[name]
	if !ok {
		return InterfaceStats{}, false
	}
	return s.statsLocked(name), true
}

func (s *series) statsLocked(name string) InterfaceStats {
	return InterfaceStats{
		Name:       name,
		Instant:    s.instant,
		Average:    s.window.Average(),
		Peak:       s.peak,
		Min:        s.min,
		Totals:     s.totals,
		History:    s.history.All(),
		WindowLen:  s.window.Len(),
		Samples:    s.samples,
		Wraps:      s.wraps,
		Resets:     s.resets,
		LastUpdate: s.last,
	}
}

// Names returns the tracked interface names, sorted.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.series))
	for n := range a.series {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Remove discards all statistics for an interface.
func (a *Aggregator) Remove(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.series, name)
}

// ResetPeaks clears peak and minimum tracking for every interface.
func (a *Aggregator) ResetPeaks() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.series {
		s.peak = Rates{}
		s.min = Rates{}
	}
}

// TotalRate sums the latest instant byte rate of the named interfaces.
// Unknown names contribute nothing.
func (a *Aggregator) TotalRate(names []string) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var sum float64
	for _, n := range names {
		if s, ok := a.series[n]; ok {
			sum += s.instant.Bytes()
		}
	}
	return sum
}

// Resize applies a new averaging span, window capacity, and history size to
// every interface, keeping as much existing data as fits.
func (a *Aggregator) Resize(span time.Duration, windowCap, historySize int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if historySize < 1 {
		historySize = DefaultHistorySize
	}
	if span == a.span && windowCap == a.windowCap && historySize == a.historySize {
		return
	}
	for _, s := range a.series {
		s.window = s.window.Resize(span, windowCap)
		if historySize != a.historySize {
			s.history = s.history.Resize(historySize)
		}
	}
	a.span = span
	a.windowCap = windowCap
	a.historySize = historySize
}
