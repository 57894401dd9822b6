// Package platform reads raw per-interface counters from the host operating
// system. Exactly two variants exist, one for Linux and one for macOS, and
// New picks between them once at startup.
package platform

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"time"
)

// CounterWidth is the bit width the platform reports for its counters.
type CounterWidth int

const (
	// WidthAuto means the width is unknown; wrap detection infers it.
	WidthAuto CounterWidth = iota
	Width32
	Width64
)

func (w CounterWidth) String() string {
	switch w {
	case Width32:
		return "32"
	case Width64:
		return "64"
	default:
		return "auto"
	}
}

// Sample is one reading of an interface's raw monotonic counters.
type Sample struct {
	Name      string
	RxBytes   uint64
	TxBytes   uint64
	RxPackets uint64
	TxPackets uint64
	RxErrors  uint64
	TxErrors  uint64
	RxDrops   uint64
	TxDrops   uint64
	Width     CounterWidth
	Timestamp time.Time
}

// Reader is the capability every platform variant provides.
type Reader interface {
	// ListInterfaces returns the sorted names currently known to the OS.
	ListInterfaces(ctx context.Context) ([]string, error)
	// ReadCounters returns a fresh sample for a single interface.
	ReadCounters(ctx context.Context, name string) (Sample, error)
}

// New returns the Reader for the running operating system.
func New() (Reader, error) {
	return newForOS(runtime.GOOS)
}

func newForOS(goos string) (Reader, error) {
	switch goos {
	case "linux":
		return NewProcNetDev(DefaultProcNetDev), nil
	case "darwin":
		return NewDarwin(), nil
	default:
		return nil, &ReadError{Op: "select", Err: ErrUnsupportedPlatform, Detail: goos}
	}
}

var virtualPrefixes = []string{
	"lo", "docker", "veth", "br-", "virbr", "vboxnet", "vmnet",
	"gif", "stf", "awdl", "llw", "utun", "dummy",
}

// IsVirtual reports whether name looks like a loopback, container, or
// tunnel device that the "all" selection skips by default.
func IsVirtual(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range virtualPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// Filter returns the names that pass validation and, unless includeVirtual
// is set, are not virtual devices. The result is sorted and de-duplicated.
func Filter(names []string, includeVirtual bool) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] || ValidateName(n) != nil {
			continue
		}
		if !includeVirtual && IsVirtual(n) {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func sortedUnique(names []string) []string {
	sort.Strings(names)
	out := names[:0]
	for i, n := range names {
		if i > 0 && n == names[i-1] {
			continue
		}
		out = append(out, n)
	}
	return out
}
