package engine

import (
	"math"
	"sync"
	"testing"
	"time"
)

func TestAggregatorRecord(t *testing.T) {
	a := NewAggregator(time.Minute, 64, 10)
	t0 := time.Unix(0, 0)

	a.Record("eth0", stepDelta(t0.Add(time.Second), time.Second, 1000, 500))
	a.Record("eth0", stepDelta(t0.Add(2*time.Second), time.Second, 3000, 100))
	a.Record("eth0", stepDelta(t0.Add(4*time.Second), 2*time.Second, 2000, 0))

	st, ok := a.Snapshot("eth0")
	if !ok {
		t.Fatal("expected eth0 statistics")
	}
	if st.Instant.RxBytes != 1000 || st.Instant.TxBytes != 0 {
		t.Errorf("Instant = %+v", st.Instant)
	}
	if st.Peak.RxBytes != 3000 || st.Peak.TxBytes != 500 {
		t.Errorf("Peak = %+v", st.Peak)
	}
	if st.Min.RxBytes != 1000 || st.Min.TxBytes != 100 {
		t.Errorf("Min = %+v, zero rates should not count", st.Min)
	}
	if st.Totals.RxBytes != 6000 || st.Totals.TxBytes != 600 {
		t.Errorf("Totals = %+v", st.Totals)
	}
	if want := 6000.0 / 4; math.Abs(st.Average.RxBytes-want) > 1e-9 {
		t.Errorf("Average.RxBytes = %f, want %f", st.Average.RxBytes, want)
	}
	if st.Samples != 3 || len(st.History) != 3 || st.WindowLen != 3 {
		t.Errorf("samples=%d history=%d window=%d", st.Samples, len(st.History), st.WindowLen)
	}
	if !st.LastUpdate.Equal(t0.Add(4 * time.Second)) {
		t.Errorf("LastUpdate = %s", st.LastUpdate)
	}
}

func TestAggregatorPeakMonotone(t *testing.T) {
	a := NewAggregator(time.Second, 16, 10)
	t0 := time.Unix(0, 0)
	a.Record("eth0", stepDelta(t0.Add(time.Second), time.Second, 9000, 0))
	for i := 2; i < 100; i++ {
		a.Record("eth0", stepDelta(t0.Add(time.Duration(i)*time.Second), time.Second, 10, 0))
	}
	st, _ := a.Snapshot("eth0")
	if st.Peak.RxBytes != 9000 {
		t.Errorf("peak decayed to %f after the window moved on", st.Peak.RxBytes)
	}
	a.ResetPeaks()
	a.Record("eth0", stepDelta(t0.Add(200*time.Second), time.Second, 20, 0))
	st, _ = a.Snapshot("eth0")
	if st.Peak.RxBytes != 20 || st.Min.RxBytes != 20 {
		t.Errorf("after ResetPeaks peak=%f min=%f", st.Peak.RxBytes, st.Min.RxBytes)
	}
}

func TestAggregatorHistoryBounded(t *testing.T) {
	a := NewAggregator(time.Minute, 64, 5)
	t0 := time.Unix(0, 0)
	for i := 1; i <= 12; i++ {
		a.Record("eth0", stepDelta(t0.Add(time.Duration(i)*time.Second), time.Second, uint64(i), 0))
	}
	st, _ := a.Snapshot("eth0")
	if len(st.History) != 5 {
		t.Fatalf("history length = %d, want 5", len(st.History))
	}
	if st.History[0].Rx != 8 || st.History[4].Rx != 12 {
		t.Errorf("history = %+v, want oldest 8 newest 12", st.History)
	}
}

func TestAggregatorDiscontinuityCounts(t *testing.T) {
	a := NewAggregator(time.Minute, 64, 10)
	t0 := time.Unix(0, 0)
	d := stepDelta(t0.Add(time.Second), time.Second, 11, 0)
	d.Discontinuity = Wrapped
	a.Record("eth0", d)
	d = stepDelta(t0.Add(2*time.Second), time.Second, 0, 0)
	d.Discontinuity = Reset
	a.Record("eth0", d)

	st, _ := a.Snapshot("eth0")
	if st.Wraps != 1 || st.Resets != 1 {
		t.Errorf("wraps=%d resets=%d", st.Wraps, st.Resets)
	}
	if st.Totals.RxBytes != 11 {
		t.Errorf("Totals.RxBytes = %d, want 11", st.Totals.RxBytes)
	}
}

func TestAggregatorRemoveAndNames(t *testing.T) {
	a := NewAggregator(time.Minute, 64, 10)
	t0 := time.Unix(0, 0)
	a.Record("wlan0", stepDelta(t0.Add(time.Second), time.Second, 100, 0))
	a.Record("eth0", stepDelta(t0.Add(time.Second), time.Second, 300, 0))
	if got := a.Names(); len(got) != 2 || got[0] != "eth0" {
		t.Errorf("Names() = %v", got)
	}
	if got := a.TotalRate([]string{"eth0", "wlan0"}); got != 400 {
		t.Errorf("TotalRate() = %f, want 400", got)
	}
	if got := a.TotalRate([]string{"wlan0", "gone0"}); got != 100 {
		t.Errorf("TotalRate(wlan0, gone0) = %f, want 100", got)
	}
	a.Remove("eth0")
	if _, ok := a.Snapshot("eth0"); ok {
		t.Error("eth0 should be gone")
	}
	a.Record("eth0", Delta{Timestamp: t0})
	if _, ok := a.Snapshot("eth0"); ok {
		t.Error("zero-elapsed delta should be ignored")
	}
}

func TestAggregatorResize(t *testing.T) {
	a := NewAggregator(time.Minute, 64, 20)
	t0 := time.Unix(0, 0)
	for i := 1; i <= 20; i++ {
		a.Record("eth0", stepDelta(t0.Add(time.Duration(i)*time.Second), time.Second, 100, 0))
	}
	a.Resize(5*time.Second, 16, 4)
	st, _ := a.Snapshot("eth0")
	if st.WindowLen != 5 || len(st.History) != 4 {
		t.Errorf("window=%d history=%d, want 5/4", st.WindowLen, len(st.History))
	}
	if st.Totals.RxBytes != 2000 {
		t.Errorf("resize changed totals: %d", st.Totals.RxBytes)
	}
}

func TestAggregatorConcurrentSnapshot(t *testing.T) {
	a := NewAggregator(time.Minute, 64, 10)
	t0 := time.Unix(0, 0)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 500; i++ {
			a.Record("eth0", stepDelta(t0.Add(time.Duration(i)*time.Second), time.Second, 1000, 1000))
		}
	}()
	for i := 0; i < 500; i++ {
		if st, ok := a.Snapshot("eth0"); ok && st.Totals.RxBytes != st.Totals.TxBytes {
			t.Fatalf("torn snapshot: rx=%d tx=%d", st.Totals.RxBytes, st.Totals.TxBytes)
		}
	}
	wg.Wait()
}
