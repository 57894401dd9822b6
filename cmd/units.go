package cmd

import (
	"fmt"

	"github.com/tonhe/netwatch/internal/units"
)

var modeHelp = []struct {
	mode units.Mode
	desc string
}{
	{units.HumanBits, "auto-scaled bits"},
	{units.HumanBytes, "auto-scaled bytes"},
	{units.Bits, "bits"},
	{units.Bytes, "bytes"},
	{units.KiloBits, "kilobits"},
	{units.KiloBytes, "kilobytes"},
	{units.MegaBits, "megabits"},
	{units.MegaBytes, "megabytes"},
	{units.GigaBits, "gigabits"},
	{units.GigaBytes, "gigabytes"},
}

func unitsCmd() {
	const sample = 1_234_567
	fmt.Printf("%-4s  %-18s  %s\n", "Mode", "Unit", "1234567 B/s shows as")
	for _, m := range modeHelp {
		fmt.Printf("%-4s  %-18s  %s\n", m.mode, m.desc, units.Format(sample, m.mode))
	}
}
