package forensics

import (
	"context"
	"fmt"
	"math"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// Connection is one socket as seen by the connection source.
type Connection struct {
	LocalIP    string
	LocalPort  uint32
	RemoteIP   string
	RemotePort uint32
	Status     string
	Pid        int32
}

// ConnectionSource lists current sockets.
type ConnectionSource func(ctx context.Context) ([]Connection, error)

// ProcessNamer resolves a pid to a process name.
type ProcessNamer func(ctx context.Context, pid int32) (string, error)

// SystemConnections lists the host's inet sockets through gopsutil.
func SystemConnections(ctx context.Context) ([]Connection, error) {
	stats, err := psnet.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		return nil, err
	}
	out := make([]Connection, 0, len(stats))
	for _, c := range stats {
		if c.Raddr.IP == "" {
			continue
		}
		out = append(out, Connection{
			LocalIP:    c.Laddr.IP,
			LocalPort:  c.Laddr.Port,
			RemoteIP:   c.Raddr.IP,
			RemotePort: c.Raddr.Port,
			Status:     c.Status,
			Pid:        c.Pid,
		})
	}
	return out, nil
}

// SystemProcessName looks up a process name through gopsutil.
func SystemProcessName(ctx context.Context, pid int32) (string, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", err
	}
	return p.NameWithContext(ctx)
}

// Ports associated with well-known backdoors and IRC botnets.
var suspiciousPorts = map[uint32]bool{
	1337: true, 31337: true, 12345: true, 54321: true,
	6667: true, 6668: true, 6669: true, 4444: true,
}

var commonPorts = map[uint32]bool{
	21: true, 22: true, 23: true, 25: true, 53: true, 80: true, 110: true,
	139: true, 143: true, 443: true, 445: true, 3306: true, 3389: true,
	5432: true, 5900: true, 8080: true,
}

// ephemeralFloor is the lowest port the kernel hands out for outbound
// connections; local ports at or above it are not scan targets.
const ephemeralFloor = 32768

// ConnectionConfig tunes the connection analyzer.
type ConnectionConfig struct {
	Window         time.Duration
	ScanThreshold  float64
	FloodThreshold int
	MaxTracked     int
}

func (c *ConnectionConfig) applyDefaults() {
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.ScanThreshold <= 0 {
		c.ScanThreshold = 0.7
	}
	if c.FloodThreshold <= 0 {
		c.FloodThreshold = 100
	}
	if c.MaxTracked <= 0 {
		c.MaxTracked = 4096
	}
}

type remoteActivity struct {
	ports         map[uint32]time.Time
	scanReported  time.Time
	floodReported time.Time
}

// ConnectionAnalyzer correlates sockets with remote peers and processes to
// spot port scans, connection floods, and backdoor ports.
type ConnectionAnalyzer struct {
	cfg    ConnectionConfig
	source ConnectionSource
	namer  ProcessNamer

	mu       sync.Mutex
	remotes  *lru.Cache[string, *remoteActivity]
	names    *lru.Cache[int32, string]
	reported *lru.Cache[string, time.Time]
}

// NewConnectionAnalyzer builds an analyzer. A nil namer disables process
// correlation.
func NewConnectionAnalyzer(cfg ConnectionConfig, source ConnectionSource, namer ProcessNamer) (*ConnectionAnalyzer, error) {
	cfg.applyDefaults()
	remotes, err := lru.New[string, *remoteActivity](cfg.MaxTracked)
	if err != nil {
		return nil, err
	}
	names, err := lru.New[int32, string](512)
	if err != nil {
		return nil, err
	}
	reported, err := lru.New[string, time.Time](cfg.MaxTracked)
	if err != nil {
		return nil, err
	}
	return &ConnectionAnalyzer{
		cfg:      cfg,
		source:   source,
		namer:    namer,
		remotes:  remotes,
		names:    names,
		reported: reported,
	}, nil
}

func (a *ConnectionAnalyzer) Name() string { return "connections" }

func (a *ConnectionAnalyzer) Analyze(ctx context.Context, in Input) ([]Event, error) {
	conns, err := a.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var out []Event
	now := in.Now
	perRemote := make(map[string]int)
	pids := make(map[string]int32)

	for _, c := range conns {
		if ip := net.ParseIP(c.RemoteIP); ip == nil || ip.IsLoopback() || ip.IsUnspecified() {
			continue
		}
		perRemote[c.RemoteIP]++
		if _, ok := pids[c.RemoteIP]; !ok {
			pids[c.RemoteIP] = c.Pid
		}

		if c.LocalPort > 0 && c.LocalPort < ephemeralFloor {
			act, ok := a.remotes.Get(c.RemoteIP)
			if !ok {
				act = &remoteActivity{ports: make(map[uint32]time.Time)}
				a.remotes.Add(c.RemoteIP, act)
			}
			if _, seen := act.ports[c.LocalPort]; !seen {
				act.ports[c.LocalPort] = now
			}
		}

		if suspiciousPorts[c.RemotePort] || suspiciousPorts[c.LocalPort] {
			key := c.RemoteIP + ":" + strconv.Itoa(int(c.RemotePort)) + ">" + strconv.Itoa(int(c.LocalPort))
			if last, ok := a.reported.Get(key); !ok || now.Sub(last) >= a.cfg.Window {
				a.reported.Add(key, now)
				out = append(out, NewEvent(KindSuspiciousPort, SeverityWarning, now, c.RemoteIP,
					fmt.Sprintf("%s:%d <-> %s:%d %s%s", c.LocalIP, c.LocalPort, c.RemoteIP, c.RemotePort,
						c.Status, a.processLabel(ctx, c.Pid))))
			}
		}
	}

	for _, remote := range a.remotes.Keys() {
		act, ok := a.remotes.Peek(remote)
		if !ok {
			continue
		}
		ports, span := act.prune(now, a.cfg.Window)
		if len(ports) == 0 {
			if act.floodReported.IsZero() || now.Sub(act.floodReported) >= a.cfg.Window {
				a.remotes.Remove(remote)
			}
			continue
		}
		conf := ScanConfidence(ports, span)
		if conf >= a.cfg.ScanThreshold && (act.scanReported.IsZero() || now.Sub(act.scanReported) >= a.cfg.Window) {
			act.scanReported = now
			out = append(out, NewEvent(KindPortScan, SeverityWarning, now, remote,
				fmt.Sprintf("%d distinct ports in %s (confidence %.2f)%s", len(ports), span.Round(time.Second),
					conf, a.processLabel(ctx, pids[remote]))))
		}
	}

	for remote, n := range perRemote {
		if n <= a.cfg.FloodThreshold {
			continue
		}
		act, ok := a.remotes.Get(remote)
		if !ok {
			act = &remoteActivity{ports: make(map[uint32]time.Time)}
			a.remotes.Add(remote, act)
		}
		if !act.floodReported.IsZero() && now.Sub(act.floodReported) < a.cfg.Window {
			continue
		}
		act.floodReported = now
		out = append(out, NewEvent(KindConnectionFlood, SeverityWarning, now, remote,
			fmt.Sprintf("%d concurrent connections (threshold %d)%s", n, a.cfg.FloodThreshold,
				a.processLabel(ctx, pids[remote]))))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out, nil
}

// prune drops ports first seen before the window and returns the rest,
// sorted, with the time spanned between first and last sighting.
func (r *remoteActivity) prune(now time.Time, window time.Duration) ([]uint32, time.Duration) {
	var first, last time.Time
	ports := make([]uint32, 0, len(r.ports))
	for p, ts := range r.ports {
		if now.Sub(ts) > window {
			delete(r.ports, p)
			continue
		}
		if first.IsZero() || ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports, last.Sub(first)
}

func (a *ConnectionAnalyzer) processLabel(ctx context.Context, pid int32) string {
	if a.namer == nil || pid <= 0 {
		return ""
	}
	if name, ok := a.names.Get(pid); ok {
		return fmt.Sprintf(" pid %d (%s)", pid, name)
	}
	name, err := a.namer(ctx, pid)
	if err != nil || name == "" {
		return fmt.Sprintf(" pid %d", pid)
	}
	a.names.Add(pid, name)
	return fmt.Sprintf(" pid %d (%s)", pid, name)
}

// ScanConfidence scores how much a set of sorted ports touched within span
// looks like a scan, from 0 to 1. Breadth, speed, sequential runs, and a
// focus on well-known service ports each contribute.
func ScanConfidence(ports []uint32, span time.Duration) float64 {
	n := len(ports)
	if n == 0 {
		return 0
	}
	score := math.Min(float64(n)/20, 0.4)

	secs := math.Max(span.Seconds(), 1)
	if rate := float64(n) / secs; rate > 10 {
		score += 0.3
	} else if rate > 1 {
		score += 0.2
	}

	run, longest := 1, 1
	for i := 1; i < n; i++ {
		if ports[i] == ports[i-1]+1 {
			run++
			longest = max(longest, run)
		} else {
			run = 1
		}
	}
	if longest > 5 {
		score += 0.2
	}

	common := 0
	for _, p := range ports {
		if commonPorts[p] {
			common++
		}
	}
	if common > 3 {
		score += 0.1
	}
	return math.Min(score, 1)
}
