package diag

import (
	"sync"
	"sync/atomic"

	"biscuit/internal/source"
)

// SinkOptions configures the assembly-wide diagnostic sink.
type SinkOptions struct {
	ErrorLimit       int  // 0 means DefaultErrorLimit
	WarningsAsErrors bool // warnings are promoted to errors
	Capacity         int  // max stored diagnostics, 0 means 4*ErrorLimit
}

const DefaultErrorLimit = 10

// Sink is the lock-protected message sink shared by all workers.
// Once ErrorLimit errors were accepted, every further diagnostic is dropped.
// Exact repeats (same code, span and message) are kept once.
type Sink struct {
	mu        sync.Mutex
	bag       *Bag
	limit     int32
	warnAsErr bool
	seen      map[sinkKey]struct{}
	errors    atomic.Int32
	warnings  atomic.Int32
	dropped   atomic.Int32
}

// sinkKey identifies repeated reports of the same problem, e.g. a failed
// recipe instance reached from several call sites.
type sinkKey struct {
	code Code
	span source.Span
	msg  string
}

// NewSink creates a sink.
func NewSink(opts SinkOptions) *Sink {
	limit := opts.ErrorLimit
	if limit <= 0 {
		limit = DefaultErrorLimit
	}
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = 4 * limit
	}
	return &Sink{
		bag:       NewBag(capacity),
		seen:      make(map[sinkKey]struct{}),
		limit:     int32(min(limit, 1<<20)), //nolint:gosec // bounded above
		warnAsErr: opts.WarningsAsErrors,
	}
}

// ShouldReport reports whether the error limit was not reached yet.
func (s *Sink) ShouldReport() bool {
	return s.errors.Load() < s.limit
}

// Report implements Reporter.
func (s *Sink) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if sev == SevWarning && s.warnAsErr {
		sev = SevError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errors.Load() >= s.limit {
		s.dropped.Add(1)
		return
	}
	key := sinkKey{code: code, span: primary, msg: msg}
	if _, dup := s.seen[key]; dup {
		return
	}
	s.seen[key] = struct{}{}
	if !s.bag.Add(Diagnostic{Severity: sev, Code: code, Message: msg, Primary: primary, Notes: notes}) {
		s.dropped.Add(1)
		return
	}
	switch sev {
	case SevError:
		s.errors.Add(1)
	case SevWarning:
		s.warnings.Add(1)
	}
}

// ErrorCount returns the number of accepted errors.
func (s *Sink) ErrorCount() int { return int(s.errors.Load()) }

// WarningCount returns the number of accepted warnings.
func (s *Sink) WarningCount() int { return int(s.warnings.Load()) }

// Dropped returns the number of diagnostics suppressed by the limit.
func (s *Sink) Dropped() int { return int(s.dropped.Load()) }

// HasErrors reports whether at least one error was accepted.
func (s *Sink) HasErrors() bool { return s.errors.Load() > 0 }

// Snapshot returns a sorted copy of the collected diagnostics.
func (s *Sink) Snapshot() *Bag {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := NewBag(max(s.bag.Len(), 1))
	for _, d := range s.bag.Items() {
		out.Add(d)
	}
	out.Sort()
	return out
}
