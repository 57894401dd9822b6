package cmd

import (
	"fmt"
	"os"
)

// Version is the release version shown by "netwatch version".
var Version = "0.1.0"

// knownSubcommands is the set of CLI subcommands that bypass the monitor.
var knownSubcommands = map[string]bool{
	"list":    true,
	"probe":   true,
	"config":  true,
	"units":   true,
	"themes":  true,
	"version": true,
	"help":    true,
}

// IsSubcommand returns true if the argument is a known CLI subcommand.
func IsSubcommand(arg string) bool {
	return knownSubcommands[arg]
}

// Execute dispatches to the appropriate CLI subcommand handler.
func Execute(args []string) {
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "list":
		listCmd(args[1:])
	case "probe":
		probeCmd(args[1:])
	case "config":
		configCmd(args[1:])
	case "units":
		unitsCmd()
	case "themes":
		themesCmd()
	case "version":
		fmt.Printf("netwatch v%s\n", Version)
	case "help":
		PrintUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		PrintUsage()
		os.Exit(1)
	}
}

// PrintUsage prints the top-level help text.
func PrintUsage() {
	fmt.Println(`netwatch - real-time network traffic monitor

Usage:
  netwatch [flags] [DEVICE...]  Launch the monitor (all interfaces by default)
  netwatch list [--all]         List interfaces and their counters
  netwatch probe [TARGET...]    Probe diagnostics targets once
  netwatch config <cmd>         Manage configuration
  netwatch units                Show display unit modes
  netwatch themes               List available themes
  netwatch version              Show version
  netwatch help                 Show this help

Flags:
  -t MS        Refresh interval in milliseconds (100-60000)
  -a SECONDS   Average window in seconds
  -u MODE      Traffic unit (h H b B k K m M g G)
  -U MODE      Data unit (h H b B k K m M g G)
  --hp         High-performance mode (slower sampling, less analysis)
  --test       Print two samples as text and exit
  --config     Path to config.toml
  --theme      Theme override
  --log-level  debug, info, warn or error

Config Commands:
  netwatch config path             Show config file path
  netwatch config show             Print the effective configuration
  netwatch config validate         Check the config file
  netwatch config theme NAME       Set default theme`)
}
