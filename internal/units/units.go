// Package units formats byte counts and rates for display. Every function
// is pure and safe to call from any goroutine.
package units

import (
	"fmt"
	"math"
)

// Mode selects the display unit. Lowercase modes show bits, uppercase
// modes show bytes; h and H scale automatically.
type Mode byte

const (
	HumanBits  Mode = 'h'
	HumanBytes Mode = 'H'
	Bits       Mode = 'b'
	Bytes      Mode = 'B'
	KiloBits   Mode = 'k'
	KiloBytes  Mode = 'K'
	MegaBits   Mode = 'm'
	MegaBytes  Mode = 'M'
	GigaBits   Mode = 'g'
	GigaBytes  Mode = 'G'
)

var order = []Mode{HumanBits, HumanBytes, Bits, Bytes, KiloBits, KiloBytes, MegaBits, MegaBytes, GigaBits, GigaBytes}

// ParseMode accepts a single-letter mode.
func ParseMode(s string) (Mode, error) {
	if len(s) == 1 {
		for _, m := range order {
			if Mode(s[0]) == m {
				return m, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown unit %q (want one of h H b B k K m M g G)", s)
}

func (m Mode) String() string { return string(rune(m)) }

// Next cycles to the following mode.
func (m Mode) Next() Mode {
	for i, o := range order {
		if o == m {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}

// IsBits reports whether values are shown in bits.
func (m Mode) IsBits() bool { return m >= 'a' && m <= 'z' }

var (
	bitUnits  = []string{"bit", "Kbit", "Mbit", "Gbit", "Tbit"}
	byteUnits = []string{"B", "KB", "MB", "GB", "TB"}
)

// Scale converts a byte quantity into the mode's number and unit label.
func Scale(bytes float64, m Mode) (float64, string) {
	if math.IsNaN(bytes) || bytes < 0 {
		bytes = 0
	}
	switch m {
	case HumanBits:
		return autoScale(bytes*8, 1000, bitUnits)
	case HumanBytes:
		return autoScale(bytes, 1024, byteUnits)
	case Bits:
		return bytes * 8, "bit"
	case Bytes:
		return bytes, "B"
	case KiloBits:
		return bytes * 8 / 1000, "kbit"
	case KiloBytes:
		return bytes / 1024, "KB"
	case MegaBits:
		return bytes * 8 / 1e6, "Mbit"
	case MegaBytes:
		return bytes / (1024 * 1024), "MB"
	case GigaBits:
		return bytes * 8 / 1e9, "Gbit"
	case GigaBytes:
		return bytes / (1024 * 1024 * 1024), "GB"
	default:
		return autoScale(bytes, 1024, byteUnits)
	}
}

func autoScale(v, base float64, names []string) (float64, string) {
	i := 0
	for v >= base && i < len(names)-1 {
		v /= base
		i++
	}
	return v, names[i]
}

func human(m Mode) bool { return m == HumanBits || m == HumanBytes }

func number(v float64, m Mode) string {
	if !human(m) {
		return fmt.Sprintf("%.2f", v)
	}
	switch {
	case v >= 100:
		return fmt.Sprintf("%.0f", v)
	case v >= 10:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// Format renders a rate given in bytes per second.
func Format(bytesPerSec float64, m Mode) string {
	v, unit := Scale(bytesPerSec, m)
	return number(v, m) + " " + unit + "/s"
}

// FormatTotal renders a cumulative byte count.
func FormatTotal(bytes uint64, m Mode) string {
	v, unit := Scale(float64(bytes), m)
	return number(v, m) + " " + unit
}
