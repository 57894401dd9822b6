// Package forensics keeps a bounded log of security and anomaly events and
// runs the analysis passes that produce them.
package forensics

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// MaxDetailLen caps an event's detail string, in bytes.
const MaxDetailLen = 256

// Kind enumerates event categories.
type Kind int

const (
	KindInvalidInput Kind = iota
	KindCounterReset
	KindCounterWrap
	KindInterfaceLost
	KindTrafficSpike
	KindPacketErrors
	KindPortScan
	KindConnectionFlood
	KindSuspiciousPort
	KindAnalysisUnavailable
	KindResourceExhaustion
)

var kindNames = [...]string{
	KindInvalidInput:        "invalid-input",
	KindCounterReset:        "counter-reset",
	KindCounterWrap:         "counter-wrap",
	KindInterfaceLost:       "interface-lost",
	KindTrafficSpike:        "traffic-spike",
	KindPacketErrors:        "packet-errors",
	KindPortScan:            "port-scan",
	KindConnectionFlood:     "connection-flood",
	KindSuspiciousPort:      "suspicious-port",
	KindAnalysisUnavailable: "analysis-unavailable",
	KindResourceExhaustion:  "resource-exhaustion",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Severity orders events by urgency.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "info"
	}
}

// Event is one recorded observation. Subject names the interface, remote
// address, or analyzer it concerns.
type Event struct {
	Kind      Kind
	Severity  Severity
	Timestamp time.Time
	Subject   string
	Detail    string
}

// NewEvent builds an event with the detail truncated to MaxDetailLen.
func NewEvent(kind Kind, sev Severity, ts time.Time, subject, detail string) Event {
	return Event{
		Kind:      kind,
		Severity:  sev,
		Timestamp: ts,
		Subject:   truncate(subject, 64),
		Detail:    truncate(detail, MaxDetailLen),
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
