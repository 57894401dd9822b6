package forensics

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tonhe/netwatch/internal/ring"
)

const (
	DefaultCapacity          = 1000
	DefaultThrottlePerSecond = 100
	// hardCeilingFactor scales the throttle to the limit critical events
	// may reach within one window.
	hardCeilingFactor = 5
)

// BufferConfig sizes a Buffer.
type BufferConfig struct {
	Capacity          int
	ThrottlePerSecond int
}

// Stats summarizes buffer activity since creation.
type Stats struct {
	Accepted    uint64
	Dropped     uint64
	Overwritten uint64
	Retained    int
	ByKind      map[Kind]uint64
	BySeverity  map[Severity]uint64
}

// Buffer is a fixed-capacity event ring with per-second throttling. Once
// ThrottlePerSecond events are admitted in the current one-second window,
// further non-critical events are dropped; critical events keep flowing up
// to a hard ceiling.
type Buffer struct {
	mu    sync.Mutex
	ring  *ring.Buffer[Event]
	clock clock.Clock

	perSecond   int
	hardCeiling int

	windowStart    time.Time
	windowAdmitted int
	windowArrivals int
	lastArrivals   int

	accepted    uint64
	dropped     uint64
	overwritten uint64
	byKind      map[Kind]uint64
	bySeverity  map[Severity]uint64
}

// NewBuffer creates a buffer. A nil clock uses the wall clock.
func NewBuffer(cfg BufferConfig, clk clock.Clock) *Buffer {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	b := &Buffer{
		ring:       ring.New[Event](cfg.Capacity),
		clock:      clk,
		byKind:     make(map[Kind]uint64),
		bySeverity: make(map[Severity]uint64),
	}
	b.setThrottle(cfg.ThrottlePerSecond)
	return b
}

func (b *Buffer) setThrottle(perSecond int) {
	if perSecond <= 0 {
		perSecond = DefaultThrottlePerSecond
	}
	b.perSecond = perSecond
	b.hardCeiling = perSecond * hardCeilingFactor
}

// SetThrottle replaces the per-second ceiling.
func (b *Buffer) SetThrottle(perSecond int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setThrottle(perSecond)
}

// rollLocked starts a new window once a second has passed.
func (b *Buffer) rollLocked(now time.Time) {
	if !b.windowStart.IsZero() && now.Sub(b.windowStart) < time.Second {
		return
	}
	if !b.windowStart.IsZero() && now.Sub(b.windowStart) < 2*time.Second {
		b.lastArrivals = b.windowArrivals
	} else {
		b.lastArrivals = 0
	}
	b.windowStart = now
	b.windowAdmitted = 0
	b.windowArrivals = 0
}

// Push offers an event and reports whether it was retained. It never
// blocks and never grows the buffer.
func (b *Buffer) Push(ev Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	b.rollLocked(now)
	b.windowArrivals++

	limit := b.perSecond
	if ev.Severity == SeverityCritical {
		limit = b.hardCeiling
	}
	if b.windowAdmitted >= limit {
		b.dropped++
		return false
	}
	b.windowAdmitted++

	if ev.Timestamp.IsZero() {
		ev.Timestamp = now
	}
	ev.Detail = truncate(ev.Detail, MaxDetailLen)
	if b.ring.Add(ev) {
		b.overwritten++
	}
	b.accepted++
	b.byKind[ev.Kind]++
	b.bySeverity[ev.Severity]++
	return true
}

// Drain returns every retained event, most recent first, and empties the
// buffer.
func (b *Buffer) Drain() []Event {
	return b.ring.Drain()
}

// Recent returns up to n events, most recent first, without removing them.
func (b *Buffer) Recent(n int) []Event {
	return b.ring.Newest(n)
}

func (b *Buffer) Len() int { return b.ring.Len() }

func (b *Buffer) Cap() int { return b.ring.Cap() }

// Throttling reports whether the current window has hit the soft ceiling.
func (b *Buffer) Throttling() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked(b.clock.Now())
	return b.windowAdmitted >= b.perSecond
}

// EventRate returns arrivals per second in the last complete window,
// counting dropped events.
func (b *Buffer) EventRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked(b.clock.Now())
	return float64(max(b.lastArrivals, b.windowArrivals))
}

// Stats returns a copy of the activity counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := Stats{
		Accepted:    b.accepted,
		Dropped:     b.dropped,
		Overwritten: b.overwritten,
		Retained:    b.ring.Len(),
		ByKind:      make(map[Kind]uint64, len(b.byKind)),
		BySeverity:  make(map[Severity]uint64, len(b.bySeverity)),
	}
	for k, v := range b.byKind {
		st.ByKind[k] = v
	}
	for k, v := range b.bySeverity {
		st.BySeverity[k] = v
	}
	return st
}
