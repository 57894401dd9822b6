package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tonhe/netwatch/internal/metrics"
)

// Config lists what to probe and how hard.
type Config struct {
	Targets         []string
	Domains         []string
	Timeout         time.Duration
	GracePeriod     time.Duration
	MaxInFlight     int
	ProbesPerSecond float64
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Second
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 500 * time.Millisecond
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 4
	}
}

// Option configures a Prober.
type Option func(*Prober)

func WithPinger(p Pinger) Option { return func(pr *Prober) { pr.pinger = p } }
func WithResolver(r Resolver) Option { return func(pr *Prober) { pr.resolver = r } }
func WithLogger(l *zap.Logger) Option { return func(pr *Prober) { pr.log = l } }
func WithClock(c clock.Clock) Option { return func(pr *Prober) { pr.clock = c } }
func WithMetrics(m *metrics.Metrics) Option {
	return func(pr *Prober) { pr.metrics = m }
}

// Prober runs bounded, concurrent probes and keeps a results table.
// Failures are recorded per target and never returned as errors.
type Prober struct {
	pinger   Pinger
	resolver Resolver
	log      *zap.Logger
	clock    clock.Clock
	metrics  *metrics.Metrics

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
	table   map[string]*Target

	busy atomic.Bool
	wg   sync.WaitGroup
}

// New creates a Prober. Without options it uses ICMP with a TCP fallback
// and the resolv.conf nameservers.
func New(cfg Config, opts ...Option) *Prober {
	p := &Prober{
		log:   zap.NewNop(),
		clock: clock.New(),
		table: make(map[string]*Target),
	}
	for _, o := range opts {
		o(p)
	}
	if p.pinger == nil {
		p.pinger = DefaultPinger()
	}
	if p.resolver == nil {
		p.resolver = NewDNSResolver(DefaultResolvConf)
	}
	p.Reconfigure(cfg)
	return p
}

// Reconfigure replaces the target lists and limits. History is kept for
// targets present in both the old and new configuration.
func (p *Prober) Reconfigure(cfg Config) {
	cfg.applyDefaults()
	limit := rate.Inf
	if cfg.ProbesPerSecond > 0 {
		limit = rate.Limit(cfg.ProbesPerSecond)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	p.limiter = rate.NewLimiter(limit, cfg.MaxInFlight)

	next := make(map[string]*Target, len(cfg.Targets)+len(cfg.Domains))
	add := func(addr string, kind Kind) {
		t := Target{Address: addr, Kind: kind}
		if old, ok := p.table[t.key()]; ok {
			next[t.key()] = old
			return
		}
		next[t.key()] = &t
	}
	for _, a := range cfg.Targets {
		add(a, KindHost)
	}
	for _, d := range cfg.Domains {
		add(d, KindDomain)
	}
	p.table = next
}

// Probe runs one probe bounded by the configured timeout.
func (p *Prober) Probe(ctx context.Context, t Target) Result {
	p.mu.Lock()
	timeout := p.cfg.Timeout
	p.mu.Unlock()

	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := Result{Address: t.Address, Kind: t.Kind, At: p.clock.Now()}
	var err error
	switch t.Kind {
	case KindDomain:
		res.Resolved, res.RTT, err = p.resolver.Resolve(pctx, t.Address)
	default:
		res.RTT, err = p.pinger.Ping(pctx, t.Address)
	}

	switch {
	case err == nil:
		res.Success = true
	case errors.Is(err, context.DeadlineExceeded) || (errors.Is(pctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil):
		res.Err = fmt.Errorf("%w: %s %s after %s", ErrProbeTimeout, t.Kind, t.Address, timeout)
	case t.Kind == KindDomain && !errors.Is(err, ErrResolutionFailure):
		res.Err = fmt.Errorf("%w: %s: %v", ErrResolutionFailure, t.Address, err)
	default:
		res.Err = err
	}
	if !res.Success {
		res.RTT = 0
	}
	return res
}

// RunOnce probes every target concurrently, applies the results to the
// table, and returns them. When ctx ends, in-flight probes get the grace
// period before they are cancelled, and no new probes start. It returns nil
// if another round is already running.
func (p *Prober) RunOnce(ctx context.Context) []Result {
	if !p.busy.CompareAndSwap(false, true) {
		return nil
	}
	defer p.busy.Store(false)
	return p.run(ctx)
}

// Trigger starts a round in the background unless one is in flight, and
// reports whether it started.
func (p *Prober) Trigger(ctx context.Context) bool {
	if !p.busy.CompareAndSwap(false, true) {
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.busy.Store(false)
		p.run(ctx)
	}()
	return true
}

// Busy reports whether a round is in flight.
func (p *Prober) Busy() bool { return p.busy.Load() }

// Wait blocks until rounds started by Trigger have finished.
func (p *Prober) Wait() { p.wg.Wait() }

func (p *Prober) run(ctx context.Context) []Result {
	p.mu.Lock()
	targets := make([]Target, 0, len(p.table))
	for _, t := range p.table {
		targets = append(targets, *t)
	}
	limiter := p.limiter
	maxInFlight := p.cfg.MaxInFlight
	grace := p.cfg.GracePeriod
	p.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	probeCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	stop := context.AfterFunc(ctx, func() { p.clock.AfterFunc(grace, cancel) })
	defer stop()

	results := make(chan Result, len(targets))
	var g errgroup.Group
	g.SetLimit(maxInFlight)
	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}
		t := t // per-iteration copy; module targets go 1.21 loop semantics
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			results <- p.Probe(probeCtx, t)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	var out []Result
	for r := range results {
		out = append(out, r)
	}
	p.apply(out)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Address < out[j].Address
	})
	return out
}

func (p *Prober) apply(results []Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range results {
		t, ok := p.table[Target{Address: r.Address, Kind: r.Kind}.key()]
		if !ok {
			continue
		}
		t.Probes++
		t.LastChecked = r.At
		t.LastSuccess = r.Success
		if r.Success {
			t.LastRTT = r.RTT
			t.ConsecutiveFailures = 0
			t.LastError = ""
			t.Resolved = r.Resolved
		} else {
			t.ConsecutiveFailures++
			t.LastError = r.Err.Error()
			if t.ConsecutiveFailures == 3 {
				p.log.Warn("target unreachable",
					zap.String("target", t.Address),
					zap.Stringer("kind", t.Kind),
					zap.Error(r.Err))
			}
		}
		p.metrics.Probe(r.Kind.String(), r.Success)
	}
}

// Results returns a copy of the table, hosts before domains.
func (p *Prober) Results() []Target {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Target, 0, len(p.table))
	for _, t := range p.table {
		c := *t
		c.Resolved = append([]string(nil), t.Resolved...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Address < out[j].Address
	})
	return out
}
