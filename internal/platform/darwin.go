package platform

import (
	"context"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// CountersFunc matches gopsutil's IOCountersWithContext.
type CountersFunc func(ctx context.Context, pernic bool) ([]psnet.IOCountersStat, error)

// Darwin is the macOS Reader. It queries the system network statistics
// through gopsutil, which wraps the per-device routing-socket counters.
type Darwin struct {
	counters CountersFunc
	now      func() time.Time
}

// NewDarwin returns a macOS reader backed by gopsutil.
func NewDarwin() *Darwin {
	return &Darwin{counters: psnet.IOCountersWithContext, now: time.Now}
}

// NewDarwinWith returns a macOS reader that queries fn instead of the OS.
func NewDarwinWith(fn CountersFunc) *Darwin {
	return &Darwin{counters: fn, now: time.Now}
}

func (d *Darwin) query(ctx context.Context, name string) ([]psnet.IOCountersStat, error) {
	stats, err := d.counters(ctx, true)
	if err != nil {
		return nil, classify("query", name, err)
	}
	return stats, nil
}

func (d *Darwin) ListInterfaces(ctx context.Context) ([]string, error) {
	stats, err := d.query(ctx, "")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(stats))
	for _, s := range stats {
		names = append(names, s.Name)
	}
	return sortedUnique(names), nil
}

func (d *Darwin) ReadCounters(ctx context.Context, name string) (Sample, error) {
	if err := ValidateName(name); err != nil {
		return Sample{}, err
	}
	stats, err := d.query(ctx, name)
	if err != nil {
		return Sample{}, err
	}
	ts := d.now()
	for _, s := range stats {
		if s.Name != name {
			continue
		}
		return Sample{
			Name:      name,
			RxBytes:   s.BytesRecv,
			TxBytes:   s.BytesSent,
			RxPackets: s.PacketsRecv,
			TxPackets: s.PacketsSent,
			RxErrors:  s.Errin,
			TxErrors:  s.Errout,
			RxDrops:   s.Dropin,
			TxDrops:   s.Dropout,
			Width:     WidthAuto,
			Timestamp: ts,
		}, nil
	}
	return Sample{}, &ReadError{Op: "query", Interface: name, Err: ErrDeviceNotFound}
}
