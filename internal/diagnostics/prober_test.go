package diagnostics

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePinger struct {
	mu       sync.Mutex
	rtt      map[string]time.Duration
	fail     map[string]error
	block    bool
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakePinger) Ping(ctx context.Context, addr string) (time.Duration, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[addr]; err != nil {
		return 0, err
	}
	return f.rtt[addr], nil
}

type fakeResolver struct {
	answers map[string][]string
}

func (f fakeResolver) Resolve(ctx context.Context, domain string) ([]string, time.Duration, error) {
	if a, ok := f.answers[domain]; ok {
		return a, 3 * time.Millisecond, nil
	}
	return nil, 0, errors.New("NXDOMAIN")
}

func TestProberRunOnce(t *testing.T) {
	pinger := &fakePinger{
		rtt:  map[string]time.Duration{"1.1.1.1": 12 * time.Millisecond},
		fail: map[string]error{"192.0.2.1": errors.New("host unreachable")},
	}
	resolver := fakeResolver{answers: map[string][]string{"cloudflare.com": {"104.16.132.229"}}}
	p := New(Config{
		Targets: []string{"1.1.1.1", "192.0.2.1"},
		Domains: []string{"cloudflare.com", "nope.invalid"},
		Timeout: time.Second,
	}, WithPinger(pinger), WithResolver(resolver))

	results := p.RunOnce(context.Background())
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	table := p.Results()
	byAddr := map[string]Target{}
	for _, tg := range table {
		byAddr[tg.Address] = tg
	}
	if tg := byAddr["1.1.1.1"]; !tg.LastSuccess || tg.LastRTT != 12*time.Millisecond || tg.ConsecutiveFailures != 0 {
		t.Errorf("1.1.1.1 = %+v", tg)
	}
	if tg := byAddr["192.0.2.1"]; tg.LastSuccess || tg.ConsecutiveFailures != 1 || tg.LastError == "" {
		t.Errorf("192.0.2.1 = %+v", tg)
	}
	if tg := byAddr["cloudflare.com"]; !tg.LastSuccess || len(tg.Resolved) != 1 {
		t.Errorf("cloudflare.com = %+v", tg)
	}
	for _, r := range results {
		if r.Address == "nope.invalid" && !errors.Is(r.Err, ErrResolutionFailure) {
			t.Errorf("expected ErrResolutionFailure, got %v", r.Err)
		}
	}
	if table[0].Kind != KindHost || table[len(table)-1].Kind != KindDomain {
		t.Error("expected hosts before domains")
	}

	p.RunOnce(context.Background())
	p.RunOnce(context.Background())
	for _, tg := range p.Results() {
		if tg.Address == "192.0.2.1" && tg.ConsecutiveFailures != 3 {
			t.Errorf("consecutive failures = %d, want 3", tg.ConsecutiveFailures)
		}
		if tg.Address == "1.1.1.1" && tg.Probes != 3 {
			t.Errorf("probes = %d, want 3", tg.Probes)
		}
	}
}

func TestProberTimeout(t *testing.T) {
	p := New(Config{Targets: []string{"10.255.255.1"}, Timeout: 20 * time.Millisecond},
		WithPinger(&fakePinger{block: true}), WithResolver(fakeResolver{}))
	results := p.RunOnce(context.Background())
	if len(results) != 1 || !errors.Is(results[0].Err, ErrProbeTimeout) {
		t.Fatalf("expected ErrProbeTimeout, got %+v", results)
	}
	if results[0].Success || results[0].RTT != 0 {
		t.Errorf("timed out probe reported %+v", results[0])
	}
}

func TestProberMaxInFlight(t *testing.T) {
	pinger := &fakePinger{delay: 20 * time.Millisecond, rtt: map[string]time.Duration{}}
	var targets []string
	for i := 0; i < 12; i++ {
		targets = append(targets, net.IPv4(10, 0, 0, byte(i+1)).String())
	}
	p := New(Config{Targets: targets, MaxInFlight: 3, Timeout: time.Second},
		WithPinger(pinger), WithResolver(fakeResolver{}))
	if got := len(p.RunOnce(context.Background())); got != 12 {
		t.Fatalf("expected 12 results, got %d", got)
	}
	if peak := pinger.peak.Load(); peak > 3 {
		t.Errorf("peak in-flight probes = %d, want <= 3", peak)
	}
}

func TestProberGracePeriodOnCancel(t *testing.T) {
	p := New(Config{Targets: []string{"10.0.0.1", "10.0.0.2"}, Timeout: 10 * time.Second, GracePeriod: 30 * time.Millisecond},
		WithPinger(&fakePinger{block: true}), WithResolver(fakeResolver{}))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	results := p.RunOnce(ctx)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("RunOnce took %s after cancel", elapsed)
	}
	for _, r := range results {
		if r.Success {
			t.Errorf("abandoned probe reported success: %+v", r)
		}
		if errors.Is(r.Err, ErrProbeTimeout) {
			t.Errorf("cancellation misreported as timeout: %v", r.Err)
		}
	}
}

func TestProberTriggerDoesNotOverlap(t *testing.T) {
	p := New(Config{Targets: []string{"10.0.0.1"}, Timeout: 50 * time.Millisecond},
		WithPinger(&fakePinger{block: true}), WithResolver(fakeResolver{}))
	if !p.Trigger(context.Background()) {
		t.Fatal("first Trigger should start a round")
	}
	if p.Trigger(context.Background()) {
		t.Error("second Trigger should be refused while busy")
	}
	if p.RunOnce(context.Background()) != nil {
		t.Error("RunOnce should refuse while busy")
	}
	p.Wait()
	if p.Busy() {
		t.Error("prober still busy after Wait")
	}
}

func TestProberReconfigureKeepsHistory(t *testing.T) {
	pinger := &fakePinger{rtt: map[string]time.Duration{"1.1.1.1": time.Millisecond}}
	p := New(Config{Targets: []string{"1.1.1.1", "8.8.8.8"}}, WithPinger(pinger), WithResolver(fakeResolver{}))
	p.RunOnce(context.Background())
	p.Reconfigure(Config{Targets: []string{"1.1.1.1", "9.9.9.9"}})
	table := p.Results()
	if len(table) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(table))
	}
	for _, tg := range table {
		if tg.Address == "1.1.1.1" && tg.Probes != 1 {
			t.Errorf("history lost for 1.1.1.1: %+v", tg)
		}
		if tg.Address == "8.8.8.8" {
			t.Error("removed target still present")
		}
	}
}

func TestProberLogsRepeatedFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pinger := &fakePinger{fail: map[string]error{"192.0.2.1": errors.New("unreachable")}}
	p := New(Config{Targets: []string{"192.0.2.1"}}, WithPinger(pinger), WithResolver(fakeResolver{}), WithLogger(zap.New(core)))
	for i := 0; i < 4; i++ {
		p.RunOnce(context.Background())
	}
	if n := logs.FilterMessage("target unreachable").Len(); n != 1 {
		t.Errorf("expected one warning at the third failure, got %d", n)
	}
}

func TestTCPPinger(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	_, port, _ := net.SplitHostPort(ln.Addr().String())

	tp := &TCPPinger{Ports: []string{port}}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := tp.Ping(ctx, "127.0.0.1"); err != nil {
		t.Errorf("Ping(open port) error: %v", err)
	}

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	if _, err := tp.Ping(cancelled, "127.0.0.1"); err == nil {
		t.Error("Ping with cancelled context should fail")
	}
}

func TestChainFallsBack(t *testing.T) {
	bad := &fakePinger{fail: map[string]error{"h": errors.New("icmp socket: permission denied")}}
	good := &fakePinger{rtt: map[string]time.Duration{"h": 7 * time.Millisecond}}
	rtt, err := Chain{bad, good}.Ping(context.Background(), "h")
	if err != nil || rtt != 7*time.Millisecond {
		t.Errorf("Chain.Ping = %v, %v", rtt, err)
	}
}

func startDNSServer(t *testing.T) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)
			if r.Question[0].Name == "example.test." {
				rr, _ := dns.NewRR("example.test. 60 IN A 192.0.2.10")
				m.Answer = append(m.Answer, rr)
			} else {
				m.Rcode = dns.RcodeNameError
			}
			_ = w.WriteMsg(m)
		}),
	}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestDNSResolver(t *testing.T) {
	addr := startDNSServer(t)
	r := NewDNSResolverWith(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	addrs, rtt, err := r.Resolve(ctx, "example.test")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(addrs) != 1 || addrs[0] != "192.0.2.10" {
		t.Errorf("addrs = %v", addrs)
	}
	if rtt <= 0 {
		t.Errorf("rtt = %v, want > 0", rtt)
	}

	if _, _, err := r.Resolve(ctx, "missing.test"); !errors.Is(err, ErrResolutionFailure) {
		t.Errorf("expected ErrResolutionFailure for NXDOMAIN, got %v", err)
	}
}

func TestNewDNSResolverMissingConf(t *testing.T) {
	r := NewDNSResolver("/nonexistent/resolv.conf")
	if len(r.Servers) != 0 {
		t.Errorf("expected no servers, got %v", r.Servers)
	}
}
