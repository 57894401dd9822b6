package engine

import (
	"time"
)

// HistoryPoint is one graphed rate value, in bytes per second.
type HistoryPoint struct {
	Timestamp time.Time
	Rx        float64
	Tx        float64
}

// Totals are cumulative, wrap- and reset-corrected counters.
type Totals struct {
	RxBytes   uint64
	TxBytes   uint64
	RxPackets uint64
	TxPackets uint64
	RxErrors  uint64
	TxErrors  uint64
	RxDrops   uint64
	TxDrops   uint64
}

// InterfaceStats is a read-only view of one interface's statistics.
type InterfaceStats struct {
	Name    string
	Instant Rates
	Average Rates
	Peak    Rates
	// Min is the smallest non-zero instant rate per direction.
	Min     Rates
	Totals  Totals
	History []HistoryPoint

	WindowLen  int
	Samples    uint64
	Wraps      uint64
	Resets     uint64
	LastUpdate time.Time

	// Set by the scheduler when the latest read for this interface failed.
	Stale     bool
	LastError error
}

// Snapshot is an immutable point-in-time view of every monitored interface.
// Consumers must not modify it.
type Snapshot struct {
	Seq               uint64
	Taken             time.Time
	State             State
	Interfaces        []InterfaceStats
	EffectiveInterval time.Duration
	HighLoad          bool
	TickDuration      time.Duration
}

// Interface looks up a single interface by name.
func (s *Snapshot) Interface(name string) (InterfaceStats, bool) {
	if s == nil {
		return InterfaceStats{}, false
	}
	for _, st := range s.Interfaces {
		if st.Name == name {
			return st, true
		}
	}
	return InterfaceStats{}, false
}

// TotalRate returns the combined instant byte rate across interfaces.
func (s *Snapshot) TotalRate() float64 {
	if s == nil {
		return 0
	}
	var sum float64
	for _, st := range s.Interfaces {
		if !st.Stale {
			sum += st.Instant.Bytes()
		}
	}
	return sum
}

// State represents the lifecycle state of the scheduler.
type State int32

const (
	StateIdle State = iota
	StateSampling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateSampling:
		return "sampling"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Info provides summary counters about a scheduler.
type Info struct {
	State      State
	LastTick   time.Time
	TickCount  uint64
	ErrorCount uint64
	Interfaces int
}
