package forensics

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrAnalysisFailure wraps every error, panic, or timeout raised by an
// analysis pass. It never escapes Guard without a fallback event.
var ErrAnalysisFailure = errors.New("analysis failure")

// ErrPassRunning means an earlier pass of the analyzer overran and has not
// returned yet, so no new one was started.
var ErrPassRunning = errors.New("previous pass still running")

// InterfaceSignal is the per-interface traffic summary analyzers consume.
type InterfaceSignal struct {
	Name        string
	InstantRate float64 // bytes per second
	AverageRate float64
	ErrorsDelta uint64
	DropsDelta  uint64
	Stale       bool
}

// Input is what a single analysis pass sees.
type Input struct {
	Now        time.Time
	Interfaces []InterfaceSignal
}

// Analyzer produces events from one tick's input.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, in Input) ([]Event, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc struct {
	Label string
	Fn    func(ctx context.Context, in Input) ([]Event, error)
}

func (f AnalyzerFunc) Name() string { return f.Label }

func (f AnalyzerFunc) Analyze(ctx context.Context, in Input) ([]Event, error) {
	return f.Fn(ctx, in)
}

// Guard runs a inside a failure boundary bounded by timeout. A panic, an
// error, or an overrun is replaced by a single analysis-unavailable event,
// and the cause is returned wrapped in ErrAnalysisFailure. A pass that
// overruns keeps running in its goroutine until it notices ctx is done; its
// late result is discarded.
func Guard(ctx context.Context, a Analyzer, in Input, timeout time.Duration) ([]Event, error) {
	return guard(ctx, a, in, timeout, nil)
}

func guard(ctx context.Context, a Analyzer, in Input, timeout time.Duration, release func()) ([]Event, error) {
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		events []Event
		err    error
	}
	done := make(chan result, 1)
	go func() {
		if release != nil {
			defer release()
		}
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		evs, err := a.Analyze(ctx, in)
		done <- result{events: evs, err: err}
	}()

	var cause error
	select {
	case r := <-done:
		if r.err == nil {
			return r.events, nil
		}
		cause = r.err
	case <-ctx.Done():
		cause = ctx.Err()
	}

	err := fmt.Errorf("%w: %s: %v", ErrAnalysisFailure, a.Name(), cause)
	return []Event{Fallback(a.Name(), in.Now, cause)}, err
}

// Boundary runs one analyzer through Guard and never lets a second pass
// start while an overrunning one is still in its goroutine.
type Boundary struct {
	a    Analyzer
	busy atomic.Bool
}

func NewBoundary(a Analyzer) *Boundary { return &Boundary{a: a} }

func (b *Boundary) Name() string { return b.a.Name() }

// Busy reports whether a pass is still running.
func (b *Boundary) Busy() bool { return b.busy.Load() }

// Run is Guard for the wrapped analyzer. While an earlier pass is still
// running it returns the fallback event and ErrPassRunning without calling
// the analyzer.
func (b *Boundary) Run(ctx context.Context, in Input, timeout time.Duration) ([]Event, error) {
	if !b.busy.CompareAndSwap(false, true) {
		return []Event{Fallback(b.a.Name(), in.Now, ErrPassRunning)},
			fmt.Errorf("%w: %s: %w", ErrAnalysisFailure, b.a.Name(), ErrPassRunning)
	}
	return guard(ctx, b.a, in, timeout, func() { b.busy.Store(false) })
}

// Fallback is the degraded result substituted for a failed pass.
func Fallback(analyzer string, ts time.Time, cause error) Event {
	return NewEvent(KindAnalysisUnavailable, SeverityWarning, ts, analyzer,
		fmt.Sprintf("analysis unavailable this tick: %v", cause))
}
