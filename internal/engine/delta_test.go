package engine

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/tonhe/netwatch/internal/platform"
)

func TestCounterDelta(t *testing.T) {
	p := DefaultWrapPolicy()
	tests := []struct {
		name       string
		prev, curr uint64
		width      platform.CounterWidth
		want       uint64
		disc       Discontinuity
	}{
		{"ordinary", 100, 250, platform.WidthAuto, 150, Ordinary},
		{"unchanged", 7, 7, platform.WidthAuto, 0, Ordinary},
		{"wrap32", 4294967290, 5, platform.WidthAuto, 11, Wrapped},
		{"wrap32 explicit", math.MaxUint32, 0, platform.Width32, 1, Wrapped},
		{"reset", 5_000_000, 0, platform.WidthAuto, 0, Reset},
		{"reset to small", 5_000_000, 1200, platform.WidthAuto, 1200, Reset},
		{"wrap64", math.MaxUint64 - 9, 10, platform.Width64, 20, Wrapped},
		{"wrap64 auto", math.MaxUint64 - 9, 10, platform.WidthAuto, 20, Wrapped},
		{"32 only never wraps at 64", math.MaxUint64 - 9, 10, platform.Width32, 10, Reset},
		{"64 only ignores 32 boundary", 4294967290, 5, platform.Width64, 5, Reset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, disc := CounterDelta(tt.prev, tt.curr, tt.width, p)
			if got != tt.want || disc != tt.disc {
				t.Errorf("CounterDelta(%d, %d) = %d, %s; want %d, %s", tt.prev, tt.curr, got, disc, tt.want, tt.disc)
			}
		})
	}
}

func TestCounterDeltaWrapProperty(t *testing.T) {
	p := DefaultWrapPolicy()
	for _, prev := range []uint64{math.MaxUint32 - 1000, math.MaxUint32 - 1, math.MaxUint32} {
		for _, curr := range []uint64{0, 1, 500, 1 << 20} {
			got, disc := CounterDelta(prev, curr, platform.Width32, p)
			want := (math.MaxUint32 - prev) + curr + 1
			if disc != Wrapped || got != want {
				t.Errorf("CounterDelta(%d, %d) = %d, %s; want %d wrap", prev, curr, got, disc, want)
			}
		}
	}
}

func TestCounterDeltaTolerance(t *testing.T) {
	tight := WrapPolicy{Tolerance32: 10, Tolerance64: 10}
	if _, disc := CounterDelta(math.MaxUint32-5, 3, platform.Width32, tight); disc != Wrapped {
		t.Errorf("expected wrap within tolerance, got %s", disc)
	}
	if _, disc := CounterDelta(math.MaxUint32-5, 20, platform.Width32, tight); disc != Reset {
		t.Errorf("expected reset beyond tolerance, got %s", disc)
	}
}

func sample(ts time.Time, rx, tx uint64) platform.Sample {
	return platform.Sample{Name: "eth0", RxBytes: rx, TxBytes: tx, Timestamp: ts}
}

func TestComputeDelta(t *testing.T) {
	t0 := time.Unix(1000, 0)
	d, err := ComputeDelta(sample(t0, 4294967290, 100), sample(t0.Add(time.Second), 5, 300), DefaultWrapPolicy())
	if err != nil {
		t.Fatalf("ComputeDelta() error: %v", err)
	}
	if d.RxBytes != 11 || d.TxBytes != 200 {
		t.Errorf("delta rx=%d tx=%d, want 11/200", d.RxBytes, d.TxBytes)
	}
	if d.Discontinuity != Wrapped {
		t.Errorf("Discontinuity = %s, want wrap", d.Discontinuity)
	}
	if d.Elapsed != time.Second || !d.Timestamp.Equal(t0.Add(time.Second)) {
		t.Errorf("elapsed=%s ts=%s", d.Elapsed, d.Timestamp)
	}
	if d.Bytes() != 211 {
		t.Errorf("Bytes() = %d", d.Bytes())
	}
}

func TestComputeDeltaResetDominates(t *testing.T) {
	t0 := time.Unix(1000, 0)
	d, err := ComputeDelta(sample(t0, 4294967290, 5_000_000), sample(t0.Add(time.Second), 5, 0), DefaultWrapPolicy())
	if err != nil {
		t.Fatalf("ComputeDelta() error: %v", err)
	}
	if d.Discontinuity != Reset {
		t.Errorf("Discontinuity = %s, want reset", d.Discontinuity)
	}
	if d.TxBytes != 0 {
		t.Errorf("reset tx delta = %d, want 0", d.TxBytes)
	}
}

func TestComputeDeltaNoElapsed(t *testing.T) {
	t0 := time.Unix(1000, 0)
	if _, err := ComputeDelta(sample(t0, 1, 1), sample(t0, 2, 2), DefaultWrapPolicy()); !errors.Is(err, ErrNoElapsed) {
		t.Errorf("equal timestamps: got %v, want ErrNoElapsed", err)
	}
	if _, err := ComputeDelta(sample(t0, 1, 1), sample(t0.Add(-time.Second), 2, 2), DefaultWrapPolicy()); !errors.Is(err, ErrNoElapsed) {
		t.Errorf("backwards timestamps: got %v, want ErrNoElapsed", err)
	}
}

func writeNetDev(t *testing.T, rx uint64) string {
	t.Helper()
	table := "Inter-|   Receive                                                |  Transmit\n" +
		" face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed\n" +
		"  eth0: " + strconv.FormatUint(rx, 10) + " 10 0 0 0 0 0 0 500 5 0 0 0 0 0 0\n"
	path := filepath.Join(t.TempDir(), "dev")
	if err := os.WriteFile(path, []byte(table), 0o600); err != nil {
		t.Fatalf("write table: %v", err)
	}
	return path
}

// A 64-bit kernel counter dropping from just under 2^32 is a reset, not a
// 32-bit wrap.
func TestComputeDeltaProcNetDevResetNear32BitMax(t *testing.T) {
	if strconv.IntSize != 64 {
		t.Skip("needs 64-bit kernel counters")
	}
	ctx := context.Background()
	prev, err := platform.NewProcNetDev(writeNetDev(t, 4_200_000_000)).ReadCounters(ctx, "eth0")
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	curr, err := platform.NewProcNetDev(writeNetDev(t, 1000)).ReadCounters(ctx, "eth0")
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	curr.Timestamp = prev.Timestamp.Add(time.Second)

	d, err := ComputeDelta(prev, curr, DefaultWrapPolicy())
	if err != nil {
		t.Fatalf("ComputeDelta() error: %v", err)
	}
	if d.RxBytes != 1000 || d.Discontinuity != Reset {
		t.Errorf("rx delta = %d (%v), want 1000 (reset)", d.RxBytes, d.Discontinuity)
	}
}
