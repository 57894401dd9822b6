package engine

import (
	"errors"
	"math"
	"time"

	"github.com/tonhe/netwatch/internal/platform"
)

// ErrNoElapsed indicates two samples share a timestamp or arrived out of
// order. The pair yields no delta.
var ErrNoElapsed = errors.New("zero or negative elapsed time")

// Discontinuity classifies how a counter moved between two samples.
type Discontinuity int

const (
	Ordinary Discontinuity = iota
	Wrapped
	Reset
)

func (d Discontinuity) String() string {
	switch d {
	case Wrapped:
		return "wrap"
	case Reset:
		return "reset"
	default:
		return "ordinary"
	}
}

// WrapPolicy decides when a decrease counts as wraparound. A drop is a wrap
// when max - (prev - curr) is at most the tolerance for that width, which
// means the counter had nearly reached its maximum and restarted low.
// Anything farther from the boundary is a reset.
type WrapPolicy struct {
	Tolerance32 uint64
	Tolerance64 uint64
}

// DefaultWrapPolicy allows a 32-bit counter to advance up to 256 MiB past
// its boundary within one interval, and a 64-bit counter up to 1 TiB.
func DefaultWrapPolicy() WrapPolicy {
	return WrapPolicy{Tolerance32: 1 << 28, Tolerance64: 1 << 40}
}

// CounterDelta returns the non-negative advance of a counter from prev to
// curr. For WidthAuto the 32-bit boundary is tried first whenever prev fits
// in 32 bits.
func CounterDelta(prev, curr uint64, width platform.CounterWidth, p WrapPolicy) (uint64, Discontinuity) {
	if curr >= prev {
		return curr - prev, Ordinary
	}
	drop := prev - curr

	if width != platform.Width64 && prev <= math.MaxUint32 {
		if math.MaxUint32-drop <= p.Tolerance32 {
			return (math.MaxUint32 - prev) + curr + 1, Wrapped
		}
	}
	if width != platform.Width32 {
		if math.MaxUint64-drop <= p.Tolerance64 {
			return (math.MaxUint64 - prev) + curr + 1, Wrapped
		}
	}
	return curr, Reset
}

// Delta is the validated advance between two samples of one interface.
type Delta struct {
	RxBytes   uint64
	TxBytes   uint64
	RxPackets uint64
	TxPackets uint64
	RxErrors  uint64
	TxErrors  uint64
	RxDrops   uint64
	TxDrops   uint64
	Elapsed   time.Duration
	Timestamp time.Time
	// Discontinuity is the most severe classification across all counters.
	Discontinuity Discontinuity
}

// Bytes returns received plus sent bytes.
func (d Delta) Bytes() uint64 { return d.RxBytes + d.TxBytes }

// Packets returns received plus sent packets.
func (d Delta) Packets() uint64 { return d.RxPackets + d.TxPackets }

// ComputeDelta turns two raw samples into a Delta. It returns ErrNoElapsed
// when curr is not strictly newer than prev.
func ComputeDelta(prev, curr platform.Sample, p WrapPolicy) (Delta, error) {
	elapsed := curr.Timestamp.Sub(prev.Timestamp)
	if elapsed <= 0 {
		return Delta{}, ErrNoElapsed
	}
	width := curr.Width
	d := Delta{Elapsed: elapsed, Timestamp: curr.Timestamp}

	step := func(a, b uint64) uint64 {
		v, disc := CounterDelta(a, b, width, p)
		if disc > d.Discontinuity {
			d.Discontinuity = disc
		}
		return v
	}
	d.RxBytes = step(prev.RxBytes, curr.RxBytes)
	d.TxBytes = step(prev.TxBytes, curr.TxBytes)
	d.RxPackets = step(prev.RxPackets, curr.RxPackets)
	d.TxPackets = step(prev.TxPackets, curr.TxPackets)
	d.RxErrors = step(prev.RxErrors, curr.RxErrors)
	d.TxErrors = step(prev.TxErrors, curr.TxErrors)
	d.RxDrops = step(prev.RxDrops, curr.RxDrops)
	d.TxDrops = step(prev.TxDrops, curr.TxDrops)
	return d, nil
}
