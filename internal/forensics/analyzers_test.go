package forensics

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTrafficAnalyzerSpike(t *testing.T) {
	a := NewTrafficAnalyzer(5, 1000)
	in := Input{Now: time.Unix(100, 0), Interfaces: []InterfaceSignal{
		{Name: "eth0", InstantRate: 60_000, AverageRate: 10_000},
		{Name: "eth1", InstantRate: 20_000, AverageRate: 10_000},
		{Name: "eth2", InstantRate: 500, AverageRate: 10},
		{Name: "eth3", InstantRate: 90_000, AverageRate: 1, Stale: true},
	}}
	evs, err := a.Analyze(context.Background(), in)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if len(evs) != 1 || evs[0].Subject != "eth0" || evs[0].Kind != KindTrafficSpike {
		t.Fatalf("expected one spike on eth0, got %+v", evs)
	}
}

func TestTrafficAnalyzerErrors(t *testing.T) {
	a := NewTrafficAnalyzer(0, 0)
	in := Input{Interfaces: []InterfaceSignal{
		{Name: "eth0", ErrorsDelta: 3},
		{Name: "eth1", ErrorsDelta: 100, DropsDelta: 50},
	}}
	evs, _ := a.Analyze(context.Background(), in)
	if len(evs) != 2 {
		t.Fatalf("expected 2 packet-error events, got %d", len(evs))
	}
	if evs[0].Severity != SeverityInfo || evs[1].Severity != SeverityWarning {
		t.Errorf("severities = %v, %v", evs[0].Severity, evs[1].Severity)
	}
}

func TestScanConfidence(t *testing.T) {
	seq := make([]uint32, 0, 30)
	for p := uint32(20); p < 50; p++ {
		seq = append(seq, p)
	}
	if c := ScanConfidence(seq, time.Second); c < 0.7 {
		t.Errorf("fast sequential sweep confidence = %.2f, want >= 0.7", c)
	}
	if c := ScanConfidence([]uint32{22, 443}, 30*time.Second); c >= 0.7 {
		t.Errorf("two ports over 30s confidence = %.2f, want < 0.7", c)
	}
	if c := ScanConfidence(nil, time.Second); c != 0 {
		t.Errorf("empty confidence = %.2f", c)
	}
}

func staticSource(conns []Connection) ConnectionSource {
	return func(ctx context.Context) ([]Connection, error) { return conns, nil }
}

func TestConnectionAnalyzerPortScan(t *testing.T) {
	var conns []Connection
	for p := uint32(1000); p < 1030; p++ {
		conns = append(conns, Connection{LocalIP: "10.0.0.2", LocalPort: p, RemoteIP: "203.0.113.9", RemotePort: 40000, Status: "SYN_RECV", Pid: 0})
	}
	// Outbound traffic to a CDN uses ephemeral local ports and is ignored.
	for p := uint32(50000); p < 50030; p++ {
		conns = append(conns, Connection{LocalIP: "10.0.0.2", LocalPort: p, RemoteIP: "198.51.100.1", RemotePort: 443, Status: "ESTABLISHED"})
	}
	a, err := NewConnectionAnalyzer(ConnectionConfig{FloodThreshold: 1000}, staticSource(conns), nil)
	if err != nil {
		t.Fatalf("NewConnectionAnalyzer() error: %v", err)
	}
	now := time.Unix(1000, 0)
	evs, err := a.Analyze(context.Background(), Input{Now: now})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if len(evs) != 1 || evs[0].Kind != KindPortScan || evs[0].Subject != "203.0.113.9" {
		t.Fatalf("expected one port scan, got %+v", evs)
	}

	// Same activity within the window is not reported twice.
	evs, _ = a.Analyze(context.Background(), Input{Now: now.Add(10 * time.Second)})
	if len(evs) != 0 {
		t.Errorf("expected no repeat report, got %+v", evs)
	}
}

func TestConnectionAnalyzerFloodAndSuspicious(t *testing.T) {
	var conns []Connection
	for i := 0; i < 5; i++ {
		conns = append(conns, Connection{LocalIP: "10.0.0.2", LocalPort: uint32(50000 + i), RemoteIP: "192.0.2.7", RemotePort: 443, Pid: 42})
	}
	conns = append(conns,
		Connection{LocalIP: "10.0.0.2", LocalPort: 51000, RemoteIP: "192.0.2.99", RemotePort: 31337, Pid: 42},
		Connection{LocalIP: "127.0.0.1", LocalPort: 6667, RemoteIP: "127.0.0.1", RemotePort: 6667},
	)
	calls := 0
	namer := func(ctx context.Context, pid int32) (string, error) {
		calls++
		return "curl", nil
	}
	a, err := NewConnectionAnalyzer(ConnectionConfig{FloodThreshold: 3}, staticSource(conns), namer)
	if err != nil {
		t.Fatalf("NewConnectionAnalyzer() error: %v", err)
	}
	evs, err := a.Analyze(context.Background(), Input{Now: time.Unix(50, 0)})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	kinds := map[Kind]Event{}
	for _, ev := range evs {
		kinds[ev.Kind] = ev
	}
	if ev, ok := kinds[KindConnectionFlood]; !ok || ev.Subject != "192.0.2.7" {
		t.Errorf("expected flood from 192.0.2.7, got %+v", evs)
	}
	if ev, ok := kinds[KindSuspiciousPort]; !ok || ev.Subject != "192.0.2.99" {
		t.Errorf("expected suspicious port from 192.0.2.99, got %+v", evs)
	}
	if len(evs) != 2 {
		t.Errorf("loopback traffic should be ignored, got %d events", len(evs))
	}
	if calls != 1 {
		t.Errorf("process name looked up %d times, want 1 (cached)", calls)
	}
}

func TestConnectionAnalyzerSourceError(t *testing.T) {
	src := func(ctx context.Context) ([]Connection, error) { return nil, errors.New("netlink unavailable") }
	a, _ := NewConnectionAnalyzer(ConnectionConfig{}, src, nil)
	evs, err := Guard(context.Background(), a, Input{Now: time.Unix(1, 0)}, time.Second)
	if !errors.Is(err, ErrAnalysisFailure) {
		t.Fatalf("expected analysis failure, got %v", err)
	}
	if len(evs) != 1 || evs[0].Kind != KindAnalysisUnavailable || evs[0].Subject != "connections" {
		t.Errorf("expected connections fallback, got %+v", evs)
	}
}
