package engine

import "time"

// MaxWindowEntries bounds a RateWindow's arena regardless of configuration.
const MaxWindowEntries = 8192

// Rates holds per-second values for both directions.
type Rates struct {
	RxBytes   float64
	TxBytes   float64
	RxPackets float64
	TxPackets float64
}

// Bytes returns the combined byte rate.
func (r Rates) Bytes() float64 { return r.RxBytes + r.TxBytes }

type windowEntry struct {
	ts        time.Time
	rxBytes   uint64
	txBytes   uint64
	rxPackets uint64
	txPackets uint64
	elapsed   time.Duration
}

// RateWindow is a time-bounded ring of deltas with running sums, so the
// average is O(1) amortized per insert. It is not safe for concurrent use;
// the Aggregator guards it.
type RateWindow struct {
	span    time.Duration
	entries []windowEntry
	head    int // index of the oldest entry
	count   int

	sumRxBytes   uint64
	sumTxBytes   uint64
	sumRxPackets uint64
	sumTxPackets uint64
	sumElapsed   time.Duration
}

// WindowCapacity sizes the arena for span at the given tick interval, with
// headroom for jitter, clamped to [16, MaxWindowEntries].
func WindowCapacity(span, interval time.Duration) int {
	if interval <= 0 {
		return MaxWindowEntries
	}
	n := int(span/interval) + 2
	if n < 16 {
		n = 16
	}
	if n > MaxWindowEntries {
		n = MaxWindowEntries
	}
	return n
}

// NewRateWindow allocates a window of the given span and capacity.
func NewRateWindow(span time.Duration, capacity int) *RateWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &RateWindow{span: span, entries: make([]windowEntry, capacity)}
}

// Insert adds a delta and evicts every entry at or before d.Timestamp-span.
// When the arena is full the oldest entry is dropped first.
func (w *RateWindow) Insert(d Delta) {
	if w.count == len(w.entries) {
		w.evictOldest()
	}
	idx := (w.head + w.count) % len(w.entries)
	w.entries[idx] = windowEntry{
		ts:        d.Timestamp,
		rxBytes:   d.RxBytes,
		txBytes:   d.TxBytes,
		rxPackets: d.RxPackets,
		txPackets: d.TxPackets,
		elapsed:   d.Elapsed,
	}
	w.count++
	w.sumRxBytes += d.RxBytes
	w.sumTxBytes += d.TxBytes
	w.sumRxPackets += d.RxPackets
	w.sumTxPackets += d.TxPackets
	w.sumElapsed += d.Elapsed

	w.evictBefore(d.Timestamp.Add(-w.span))
}

func (w *RateWindow) evictBefore(cutoff time.Time) {
	for w.count > 0 && !w.entries[w.head].ts.After(cutoff) {
		w.evictOldest()
	}
}

func (w *RateWindow) evictOldest() {
	e := w.entries[w.head]
	w.sumRxBytes -= e.rxBytes
	w.sumTxBytes -= e.txBytes
	w.sumRxPackets -= e.rxPackets
	w.sumTxPackets -= e.txPackets
	w.sumElapsed -= e.elapsed
	w.entries[w.head] = windowEntry{}
	w.head = (w.head + 1) % len(w.entries)
	w.count--
}

// Average returns the sum of in-window deltas over the sum of in-window
// elapsed time. An empty window averages to zero.
func (w *RateWindow) Average() Rates {
	secs := w.sumElapsed.Seconds()
	if w.count == 0 || secs <= 0 {
		return Rates{}
	}
	return Rates{
		RxBytes:   float64(w.sumRxBytes) / secs,
		TxBytes:   float64(w.sumTxBytes) / secs,
		RxPackets: float64(w.sumRxPackets) / secs,
		TxPackets: float64(w.sumTxPackets) / secs,
	}
}

// Len returns the number of entries currently in the window.
func (w *RateWindow) Len() int { return w.count }

// Cap returns the arena capacity.
func (w *RateWindow) Cap() int { return len(w.entries) }

// Span returns the configured averaging window.
func (w *RateWindow) Span() time.Duration { return w.span }

// Oldest returns the timestamp of the oldest retained entry.
func (w *RateWindow) Oldest() (time.Time, bool) {
	if w.count == 0 {
		return time.Time{}, false
	}
	return w.entries[w.head].ts, true
}

// Resize returns a window with the new span and capacity holding the newest
// entries of w that still fit.
func (w *RateWindow) Resize(span time.Duration, capacity int) *RateWindow {
	nw := NewRateWindow(span, capacity)
	start := 0
	if w.count > len(nw.entries) {
		start = w.count - len(nw.entries)
	}
	var latest time.Time
	for i := start; i < w.count; i++ {
		e := w.entries[(w.head+i)%len(w.entries)]
		nw.entries[nw.count] = e
		nw.count++
		nw.sumRxBytes += e.rxBytes
		nw.sumTxBytes += e.txBytes
		nw.sumRxPackets += e.rxPackets
		nw.sumTxPackets += e.txPackets
		nw.sumElapsed += e.elapsed
		latest = e.ts
	}
	if nw.count > 0 {
		nw.evictBefore(latest.Add(-span))
	}
	return nw
}
