package forensics

import (
	"context"
	"fmt"

	"github.com/tonhe/netwatch/internal/units"
)

// TrafficAnalyzer flags sudden rate spikes and packet error growth.
type TrafficAnalyzer struct {
	// SpikeFactor is the instant/average ratio that counts as a spike.
	SpikeFactor float64
	// MinRate ignores spikes on nearly idle links, in bytes per second.
	MinRate float64
}

// NewTrafficAnalyzer returns an analyzer with the given thresholds, using
// 5x and 128 KiB/s for non-positive values.
func NewTrafficAnalyzer(factor, minRate float64) *TrafficAnalyzer {
	if factor <= 0 {
		factor = 5
	}
	if minRate <= 0 {
		minRate = 128 * 1024
	}
	return &TrafficAnalyzer{SpikeFactor: factor, MinRate: minRate}
}

func (a *TrafficAnalyzer) Name() string { return "traffic" }

func (a *TrafficAnalyzer) Analyze(ctx context.Context, in Input) ([]Event, error) {
	var out []Event
	for _, s := range in.Interfaces {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if s.Stale {
			continue
		}
		if s.AverageRate > 0 && s.InstantRate >= a.MinRate && s.InstantRate > a.SpikeFactor*s.AverageRate {
			out = append(out, NewEvent(KindTrafficSpike, SeverityWarning, in.Now, s.Name,
				fmt.Sprintf("rate %s is %.1fx the average %s",
					units.Format(s.InstantRate, units.HumanBytes), s.InstantRate/s.AverageRate,
					units.Format(s.AverageRate, units.HumanBytes))))
		}
		if s.ErrorsDelta > 0 || s.DropsDelta > 0 {
			sev := SeverityInfo
			if s.ErrorsDelta+s.DropsDelta > 100 {
				sev = SeverityWarning
			}
			out = append(out, NewEvent(KindPacketErrors, sev, in.Now, s.Name,
				fmt.Sprintf("%d errors, %d drops since last tick", s.ErrorsDelta, s.DropsDelta)))
		}
	}
	return out, nil
}
