package platform

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultProcNetDev is the kernel's per-interface counter table.
const DefaultProcNetDev = "/proc/net/dev"

// netDevWidth is the width of the kernel's unsigned long counters, which
// matches the native word size.
var netDevWidth = func() CounterWidth {
	if strconv.IntSize == 64 {
		return Width64
	}
	return Width32
}()

// ProcNetDev is the Linux Reader. It parses the textual table in
// /proc/net/dev; Path may point elsewhere for fixtures.
type ProcNetDev struct {
	Path string
	now  func() time.Time
}

// NewProcNetDev returns a Linux reader for the table at path.
func NewProcNetDev(path string) *ProcNetDev {
	return &ProcNetDev{Path: path, now: time.Now}
}

func (p *ProcNetDev) read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, classify("read", name, err)
	}
	return data, nil
}

// ListInterfaces returns every interface named in the table, including ones
// whose counter columns are malformed.
func (p *ProcNetDev) ListInterfaces(ctx context.Context) ([]string, error) {
	data, err := p.read(ctx, "")
	if err != nil {
		return nil, err
	}
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "|") {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx <= 0 {
			continue
		}
		if n := strings.TrimSpace(line[:idx]); n != "" {
			names = append(names, n)
		}
	}
	return sortedUnique(names), nil
}

// ReadCounters parses only the requested interface's line. A malformed line
// fails this interface alone.
func (p *ProcNetDev) ReadCounters(ctx context.Context, name string) (Sample, error) {
	if err := ValidateName(name); err != nil {
		return Sample{}, err
	}
	data, err := p.read(ctx, name)
	if err != nil {
		return Sample{}, err
	}
	ts := p.now()
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		idx := strings.IndexByte(line, ':')
		if idx <= 0 || strings.TrimSpace(line[:idx]) != name {
			continue
		}
		return parseNetDevLine(line, ts)
	}
	return Sample{}, &ReadError{Op: "read", Interface: name, Err: ErrDeviceNotFound}
}

// ParseNetDev parses a whole table. Malformed lines are reported in errs and
// skipped; the remaining samples are still returned.
func ParseNetDev(r io.Reader, ts time.Time) (samples []Sample, errs []error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "|") || strings.TrimSpace(line) == "" {
			continue
		}
		s, err := parseNetDevLine(line, ts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		samples = append(samples, s)
	}
	return samples, errs
}

// parseNetDevLine parses one "  eth0: rx... tx..." row. The kernel prints 8
// receive columns followed by 8 transmit columns.
func parseNetDevLine(line string, ts time.Time) (Sample, error) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return Sample{}, &ReadError{Op: "parse", Err: ErrParse, Detail: "missing ':'"}
	}
	name := strings.TrimSpace(line[:idx])
	fields := strings.Fields(line[idx+1:])
	if len(fields) < 16 {
		return Sample{}, &ReadError{Op: "parse", Interface: name, Err: ErrParse,
			Detail: fmt.Sprintf("expected 16 columns, got %d", len(fields))}
	}

	var vals [16]uint64
	for i := 0; i < 16; i++ {
		v, err := strconv.ParseUint(fields[i], 10, 64)
		if err != nil {
			return Sample{}, &ReadError{Op: "parse", Interface: name, Err: ErrParse,
				Detail: fmt.Sprintf("column %d: %q", i, fields[i])}
		}
		vals[i] = v
	}

	return Sample{
		Name:      name,
		RxBytes:   vals[0],
		RxPackets: vals[1],
		RxErrors:  vals[2],
		RxDrops:   vals[3],
		TxBytes:   vals[8],
		TxPackets: vals[9],
		TxErrors:  vals[10],
		TxDrops:   vals[11],
		Width:     netDevWidth,
		Timestamp: ts,
	}, nil
}
