package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/tonhe/netwatch/internal/platform"
	"github.com/tonhe/netwatch/internal/units"
)

func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	all := fs.Bool("all", false, "Include loopback and virtual interfaces")
	unit := fs.String("U", "H", "Data unit for counters")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: netwatch list [--all] [-U MODE]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	mode, err := units.ParseMode(*unit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	reader, err := platform.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	names, err := reader.ListInterfaces(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing interfaces: %v\n", err)
		os.Exit(1)
	}
	names = platform.Filter(names, *all)
	if len(names) == 0 {
		fmt.Println("No interfaces found.")
		return
	}

	fmt.Printf("%-16s  %12s  %12s  %12s  %12s  %8s  %8s\n", "Interface", "Received", "Sent", "Rx Packets", "Tx Packets", "Errors", "Drops")
	fmt.Printf("%-16s  %12s  %12s  %12s  %12s  %8s  %8s\n", "---------", "--------", "----", "----------", "----------", "------", "-----")
	for _, name := range names {
		s, err := reader.ReadCounters(ctx, name)
		if err != nil {
			fmt.Printf("%-16s  %s\n", name, err)
			continue
		}
		fmt.Printf("%-16s  %12s  %12s  %12d  %12d  %8d  %8d\n",
			name,
			units.FormatTotal(s.RxBytes, mode),
			units.FormatTotal(s.TxBytes, mode),
			s.RxPackets, s.TxPackets,
			s.RxErrors+s.TxErrors, s.RxDrops+s.TxDrops,
		)
	}
}
