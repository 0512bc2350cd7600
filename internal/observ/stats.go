package observ

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Counter names one accumulated compilation statistic.
type Counter uint8

const (
	CounterLexing Counter = iota
	CounterParsing
	CounterGenerate
	CounterAnalyze
	CounterPolymorph
	counterCount
)

func (c Counter) String() string {
	switch c {
	case CounterLexing:
		return "lexing"
	case CounterParsing:
		return "parsing"
	case CounterGenerate:
		return "mir generate"
	case CounterAnalyze:
		return "mir analyze"
	case CounterPolymorph:
		return "polymorph"
	default:
		return "unknown"
	}
}

// Stats accumulates per-stage durations summed over all workers plus
// a few volume counters. All methods are goroutine-safe.
type Stats struct {
	durations  [counterCount]atomic.Int64
	units      atomic.Int64
	tokens     atomic.Int64
	lines      atomic.Int64
	polymorphs atomic.Int64
}

// Add accumulates d into counter c.
func (s *Stats) Add(c Counter, d time.Duration) {
	if s == nil || c >= counterCount {
		return
	}
	s.durations[c].Add(int64(d))
}

// Duration returns the accumulated duration of c.
func (s *Stats) Duration(c Counter) time.Duration {
	if s == nil || c >= counterCount {
		return 0
	}
	return time.Duration(s.durations[c].Load())
}

// AddUnit records one processed unit.
func (s *Stats) AddUnit(tokens, lines int) {
	s.units.Add(1)
	s.tokens.Add(int64(tokens))
	s.lines.Add(int64(lines))
}

// AddPolymorph records one generated polymorph instance.
func (s *Stats) AddPolymorph(d time.Duration) {
	s.polymorphs.Add(1)
	s.Add(CounterPolymorph, d)
}

// Polymorphs returns the number of generated polymorph instances.
func (s *Stats) Polymorphs() int64 { return s.polymorphs.Load() }

// Units returns the number of processed units.
func (s *Stats) Units() int64 { return s.units.Load() }

// Lines returns the number of processed source lines.
func (s *Stats) Lines() int64 { return s.lines.Load() }

// Summary renders the statistics in the same layout as Timer.Summary.
func (s *Stats) Summary() string {
	var b strings.Builder
	b.WriteString("statistics:\n")
	fmt.Fprintf(&b, "  %-20s %7d\n", "units", s.units.Load())
	fmt.Fprintf(&b, "  %-20s %7d\n", "lines", s.lines.Load())
	fmt.Fprintf(&b, "  %-20s %7d\n", "tokens", s.tokens.Load())
	fmt.Fprintf(&b, "  %-20s %7d\n", "polymorphs", s.polymorphs.Load())
	for c := Counter(0); c < counterCount; c++ {
		fmt.Fprintf(&b, "  %-20s %7.2f ms\n", c.String(), millis(s.Duration(c)))
	}
	return b.String()
}
