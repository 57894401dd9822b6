// Package diagnostics runs reachability and DNS latency probes against
// configured targets, independent of the sampling cadence.
package diagnostics

import (
	"errors"
	"time"
)

var (
	ErrProbeTimeout      = errors.New("probe timed out")
	ErrResolutionFailure = errors.New("resolution failure")
)

// Kind distinguishes reachability targets from DNS domains.
type Kind int

const (
	KindHost Kind = iota
	KindDomain
)

func (k Kind) String() string {
	if k == KindDomain {
		return "dns"
	}
	return "host"
}

// Target is the tracked state of one probe target.
type Target struct {
	Address             string
	Kind                Kind
	LastRTT             time.Duration
	LastSuccess         bool
	ConsecutiveFailures int
	LastError           string
	LastChecked         time.Time
	Resolved            []string
	Probes              uint64
}

func (t Target) key() string { return t.Kind.String() + ":" + t.Address }

// Result is the outcome of a single probe.
type Result struct {
	Address  string
	Kind     Kind
	Success  bool
	RTT      time.Duration
	Resolved []string
	Err      error
	At       time.Time
}
