package cmd

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/tonhe/netwatch/internal/diagnostics"
)

func probeCmd(args []string) {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	timeout := fs.Duration("timeout", 2*time.Second, "Per-probe timeout")
	inFlight := fs.Int("parallel", 4, "Maximum concurrent probes")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: netwatch probe [--timeout D] [--parallel N] [TARGET...]")
		fmt.Fprintln(os.Stderr, "IP addresses are pinged; names are resolved through DNS.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadOrDefaultConfig()
	pc := diagnostics.Config{
		Targets:     cfg.Diagnostics.Targets,
		Domains:     cfg.Diagnostics.Domains,
		Timeout:     *timeout,
		MaxInFlight: *inFlight,
	}
	if fs.NArg() > 0 {
		pc.Targets, pc.Domains = nil, nil
		for _, a := range fs.Args() {
			if net.ParseIP(a) != nil {
				pc.Targets = append(pc.Targets, a)
			} else {
				pc.Domains = append(pc.Domains, a)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results := diagnostics.New(pc).RunOnce(ctx)
	failed := 0
	fmt.Printf("%-28s  %-5s  %-6s  %10s  %s\n", "Target", "Kind", "State", "RTT", "Info")
	for _, r := range results {
		state, info := "up", fmt.Sprint(r.Resolved)
		if !r.Success {
			state, info = "down", fmt.Sprint(r.Err)
			failed++
		}
		fmt.Printf("%-28s  %-5s  %-6s  %10s  %s\n", r.Address, r.Kind, state, r.RTT.Round(time.Microsecond), info)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
