package forensics

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func newTestBuffer(capacity, perSecond int) (*Buffer, *clock.Mock) {
	mock := clock.NewMock()
	return NewBuffer(BufferConfig{Capacity: capacity, ThrottlePerSecond: perSecond}, mock), mock
}

func TestBufferNeverExceedsCapacity(t *testing.T) {
	b, mock := newTestBuffer(10, 1000)
	for i := 0; i < 25; i++ {
		b.Push(NewEvent(KindTrafficSpike, SeverityInfo, mock.Now(), "eth0", fmt.Sprint(i)))
		if b.Len() > b.Cap() {
			t.Fatalf("len %d exceeds cap %d", b.Len(), b.Cap())
		}
	}

	got := b.Recent(-1)
	if len(got) != 10 {
		t.Fatalf("expected 10 retained, got %d", len(got))
	}
	for i, ev := range got {
		if want := fmt.Sprint(24 - i); ev.Detail != want {
			t.Errorf("event %d detail = %q, want %q", i, ev.Detail, want)
		}
	}
	if st := b.Stats(); st.Overwritten != 15 || st.Accepted != 25 {
		t.Errorf("stats = %+v", st)
	}
}

func TestBufferDrainMostRecentFirst(t *testing.T) {
	b, mock := newTestBuffer(5, 100)
	for i := 0; i < 3; i++ {
		b.Push(NewEvent(KindCounterReset, SeverityInfo, mock.Now(), "eth0", fmt.Sprint(i)))
	}
	drained := b.Drain()
	if len(drained) != 3 || drained[0].Detail != "2" || drained[2].Detail != "0" {
		t.Errorf("Drain() = %+v", drained)
	}
	if b.Len() != 0 {
		t.Errorf("expected empty after drain, got %d", b.Len())
	}
	if len(b.Drain()) != 0 {
		t.Error("second drain should be empty")
	}
}

func TestBufferThrottleOverFiveSeconds(t *testing.T) {
	const ceiling = 100
	b, mock := newTestBuffer(DefaultCapacity, ceiling)
	for sec := 0; sec < 5; sec++ {
		for i := 0; i < 1000; i++ {
			b.Push(NewEvent(KindPortScan, SeverityWarning, mock.Now(), "10.0.0.1", ""))
		}
		mock.Add(time.Second)
	}
	if b.Len() != ceiling*5 {
		t.Errorf("retained %d events, want %d", b.Len(), ceiling*5)
	}
	st := b.Stats()
	if st.Dropped != 5000-ceiling*5 {
		t.Errorf("dropped %d, want %d", st.Dropped, 5000-ceiling*5)
	}
}

func TestBufferCriticalBypassesSoftCeiling(t *testing.T) {
	b, mock := newTestBuffer(DefaultCapacity, 10)
	for i := 0; i < 10; i++ {
		b.Push(NewEvent(KindPortScan, SeverityWarning, mock.Now(), "x", ""))
	}
	if b.Push(NewEvent(KindPortScan, SeverityWarning, mock.Now(), "x", "")) {
		t.Error("non-critical event admitted over the ceiling")
	}
	if !b.Throttling() {
		t.Error("expected Throttling() after hitting the ceiling")
	}
	admitted := 0
	for i := 0; i < 100; i++ {
		if b.Push(NewEvent(KindResourceExhaustion, SeverityCritical, mock.Now(), "x", "")) {
			admitted++
		}
	}
	if admitted != 40 {
		t.Errorf("critical events admitted = %d, want 40 (hard ceiling 50 minus 10)", admitted)
	}

	mock.Add(time.Second)
	if !b.Push(NewEvent(KindPortScan, SeverityWarning, mock.Now(), "x", "")) {
		t.Error("new window should admit events again")
	}
}

func TestBufferEventRate(t *testing.T) {
	b, mock := newTestBuffer(100, 10)
	for i := 0; i < 30; i++ {
		b.Push(NewEvent(KindPortScan, SeverityInfo, mock.Now(), "x", ""))
	}
	mock.Add(time.Second)
	if rate := b.EventRate(); rate != 30 {
		t.Errorf("EventRate() = %v, want 30 arrivals/s", rate)
	}
	mock.Add(5 * time.Second)
	if rate := b.EventRate(); rate != 0 {
		t.Errorf("EventRate() after idle = %v, want 0", rate)
	}
}

func TestBufferStampsAndTruncates(t *testing.T) {
	b, mock := newTestBuffer(4, 10)
	b.Push(Event{Kind: KindInvalidInput, Detail: strings.Repeat("x", 1000)})
	ev := b.Recent(1)[0]
	if len(ev.Detail) != MaxDetailLen {
		t.Errorf("detail length = %d, want %d", len(ev.Detail), MaxDetailLen)
	}
	if !ev.Timestamp.Equal(mock.Now()) {
		t.Errorf("timestamp = %v, want %v", ev.Timestamp, mock.Now())
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	s := strings.Repeat("é", 200) // 400 bytes
	got := truncate(s, MaxDetailLen)
	if len(got) > MaxDetailLen {
		t.Fatalf("truncated to %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "é") {
		t.Error("truncate split a rune")
	}
}

func TestKindString(t *testing.T) {
	if KindPortScan.String() != "port-scan" {
		t.Errorf("KindPortScan.String() = %q", KindPortScan.String())
	}
	if Kind(99).String() != "kind(99)" {
		t.Errorf("unknown kind = %q", Kind(99).String())
	}
	if SeverityCritical.String() != "critical" {
		t.Errorf("SeverityCritical.String() = %q", SeverityCritical.String())
	}
}
