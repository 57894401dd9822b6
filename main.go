package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/tonhe/netwatch/cmd"
	"github.com/tonhe/netwatch/internal/config"
	"github.com/tonhe/netwatch/internal/diagnostics"
	"github.com/tonhe/netwatch/internal/engine"
	"github.com/tonhe/netwatch/internal/forensics"
	"github.com/tonhe/netwatch/internal/logging"
	"github.com/tonhe/netwatch/internal/metrics"
	"github.com/tonhe/netwatch/internal/platform"
	"github.com/tonhe/netwatch/internal/units"
	"github.com/tonhe/netwatch/tui"
)

// minSpikeRate keeps the spike detector quiet on idle links.
const minSpikeRate = 64 * 1024

func main() {
	if len(os.Args) > 1 && cmd.IsSubcommand(os.Args[1]) {
		cmd.Execute(os.Args[1:])
		return
	}
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// overrides are command-line values that win over the config file, also
// after a live reload.
type overrides struct {
	refresh     int
	average     int
	traffic     string
	data        string
	hp          bool
	theme       string
	logLevel    string
	devices     []string
	setRefresh  bool
	setAverage  bool
	setTraffic  bool
	setData     bool
	setHP       bool
	setTheme    bool
	setLogLevel bool
}

func (o *overrides) apply(cfg *config.Config) {
	if o.setRefresh {
		cfg.Sampling.RefreshInterval = o.refresh
	}
	if o.setAverage {
		cfg.Sampling.AverageWindow = o.average
	}
	if o.setTraffic {
		cfg.TrafficUnit = o.traffic
	}
	if o.setData {
		cfg.DataUnit = o.data
	}
	if o.setHP {
		cfg.Sampling.HighPerformance = o.hp
	}
	if o.setTheme {
		cfg.Theme = o.theme
	}
	if o.setLogLevel {
		cfg.LogLevel = o.logLevel
	}
	if len(o.devices) > 0 {
		cfg.Sampling.Devices = o.devices
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("netwatch", flag.ContinueOnError)
	var o overrides
	fs.IntVar(&o.refresh, "t", 0, "refresh interval in milliseconds")
	fs.IntVar(&o.average, "a", 0, "average window in seconds")
	fs.StringVar(&o.traffic, "u", "", "traffic unit")
	fs.StringVar(&o.data, "U", "", "data unit")
	fs.BoolVar(&o.hp, "hp", false, "high-performance mode")
	fs.StringVar(&o.theme, "theme", "", "theme name")
	fs.StringVar(&o.logLevel, "log-level", "", "log level")
	test := fs.Bool("test", false, "print two samples and exit")
	cfgPath := fs.String("config", "", "path to config.toml")
	fs.Usage = cmd.PrintUsage
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			o.setRefresh = true
		case "a":
			o.setAverage = true
		case "u":
			o.setTraffic = true
		case "U":
			o.setData = true
		case "hp":
			o.setHP = true
		case "theme":
			o.setTheme = true
		case "log-level":
			o.setLogLevel = true
		}
	})
	o.devices = fs.Args()

	path := *cfgPath
	if path == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := units.ParseMode(cfg.TrafficUnit); err != nil {
		return fmt.Errorf("traffic unit: %w", err)
	}
	if _, err := units.ParseMode(cfg.DataUnit); err != nil {
		return fmt.Errorf("data unit: %w", err)
	}

	interactive := !*test && term.IsTerminal(int(os.Stdout.Fd()))

	logOpts := logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Stderr: !interactive}
	if interactive && logOpts.File == "" {
		if err := config.EnsureDirs(); err == nil {
			if p, err := config.GetLogPath(); err == nil {
				logOpts.File = p
			}
		}
	}
	log, err := logging.New(logOpts)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	m := metrics.New()
	reader, err := platform.New()
	if err != nil {
		return err
	}

	clk := clock.New()
	events := forensics.NewBuffer(forensics.BufferConfig{
		Capacity:          cfg.Forensics.Capacity,
		ThrottlePerSecond: cfg.Forensics.ThrottlePerSecond,
	}, clk)

	analyzers := []forensics.Analyzer{forensics.NewTrafficAnalyzer(cfg.Forensics.SpikeFactor, minSpikeRate)}
	if cfg.Forensics.Connections {
		ca, err := forensics.NewConnectionAnalyzer(forensics.ConnectionConfig{
			Window:         cfg.Forensics.ScanWindow,
			ScanThreshold:  cfg.Forensics.ScanThreshold,
			FloodThreshold: cfg.Forensics.FloodThreshold,
		}, forensics.SystemConnections, forensics.SystemProcessName)
		if err != nil {
			return fmt.Errorf("connection analyzer: %w", err)
		}
		analyzers = append(analyzers, ca)
	}

	sampling := cfg.SamplingValue()
	prober := diagnostics.New(engine.ProberConfig(sampling),
		diagnostics.WithLogger(log.Named("diagnostics")),
		diagnostics.WithClock(clk),
		diagnostics.WithMetrics(m))

	sched := engine.NewScheduler(reader, sampling,
		engine.WithLogger(log),
		engine.WithClock(clk),
		engine.WithMetrics(m),
		engine.WithEvents(events),
		engine.WithAnalyzers(analyzers...),
		engine.WithProber(prober))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer prober.Wait()

	if err := sched.CheckStartup(ctx); err != nil {
		return err
	}

	if *test {
		return runTest(ctx, sched, cfg)
	}

	watcher, err := config.NewWatcher(path, log)
	if err != nil {
		log.Warn("config watcher unavailable", zap.Error(err))
	} else {
		watcher.OnChange(func(next *config.Config) {
			o.apply(next)
			if err := next.Validate(); err != nil {
				log.Warn("ignoring invalid config reload", zap.Error(err))
				return
			}
			sched.Reconfigure(next.SamplingValue())
			events.SetThrottle(next.Forensics.ThrottlePerSecond)
		})
		if err := watcher.Start(); err != nil {
			log.Warn("config watcher start", zap.Error(err))
		}
		defer func() { _ = watcher.Stop() }()
	}

	// Subscribers attach before Run so the final Stopped snapshot always
	// has a receiver.
	done := make(chan error, 1)
	if interactive {
		model := tui.NewAppModel(cfg, sched, cmd.Version)
		go func() { done <- sched.Run(ctx) }()
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			sched.Stop()
			<-done
			return err
		}
		sched.Stop()
		return <-done
	}

	updates := sched.Subscribe()
	go func() { done <- sched.Run(ctx) }()
	runPlain(updates, cfg)
	sched.Stop()
	return <-done
}

// runPlain prints one line per interface for every snapshot until the
// scheduler stops.
func runPlain(updates <-chan *engine.Snapshot, cfg *config.Config) {
	traffic, _ := units.ParseMode(cfg.TrafficUnit)
	for snap := range updates {
		if snap.State == engine.StateStopped {
			return
		}
		ts := snap.Taken.Format(time.TimeOnly)
		for _, st := range snap.Interfaces {
			state := "ok"
			if st.Stale {
				state = "stale"
			}
			fmt.Printf("%s %-12s %-5s in %s out %s\n", ts, st.Name, state,
				units.Format(st.Instant.RxBytes, traffic), units.Format(st.Instant.TxBytes, traffic))
		}
	}
}

// runTest takes two samples one refresh interval apart and prints a table.
func runTest(ctx context.Context, sched *engine.Scheduler, cfg *config.Config) error {
	traffic, _ := units.ParseMode(cfg.TrafficUnit)
	data, _ := units.ParseMode(cfg.DataUnit)

	if err := sched.Tick(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(sched.EffectiveInterval()):
	}
	if err := sched.Tick(ctx); err != nil {
		return err
	}

	snap := sched.Snapshot()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTERFACE\tSTATE\tIN\tOUT\tTOTAL IN\tTOTAL OUT")
	for _, st := range snap.Interfaces {
		state := "ok"
		if st.Stale {
			state = "stale: " + errString(st.LastError)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", st.Name, state,
			units.Format(st.Instant.RxBytes, traffic), units.Format(st.Instant.TxBytes, traffic),
			units.FormatTotal(st.Totals.RxBytes, data), units.FormatTotal(st.Totals.TxBytes, data))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, ev := range sched.Events().Recent(10) {
		fmt.Printf("%s  %-8s %-18s %s %s\n", ev.Timestamp.Format(time.TimeOnly), ev.Severity, ev.Kind,
			ev.Subject, strings.TrimSpace(ev.Detail))
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}
