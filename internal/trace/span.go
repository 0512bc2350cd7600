package trace

import (
	"sync/atomic"
	"time"
)

var (
	seq   atomic.Uint64
	spans atomic.Uint64
)

// Span is an open interval; End emits the closing event. A nil Span is
// valid and does nothing, which is what Begin returns for a disabled
// tracer.
type Span struct {
	t      Tracer
	id     uint64
	parent uint64
	scope  Scope
	name   string
	worker int
	start  time.Time
}

// Begin opens a span outside of the job pool.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	return begin(t, scope, name, parent, NoWorker)
}

// BeginOn opens a span on a pool worker.
func BeginOn(t Tracer, scope Scope, name string, worker uint32) *Span {
	return begin(t, scope, name, 0, int(worker))
}

func begin(t Tracer, scope Scope, name string, parent uint64, worker int) *Span {
	if !Enabled(t) {
		return nil
	}
	s := &Span{t: t, id: spans.Add(1), parent: parent, scope: scope, name: name, worker: worker, start: time.Now()}
	t.Emit(&Event{
		Time:   s.start,
		Seq:    seq.Add(1),
		Kind:   KindSpanBegin,
		Scope:  scope,
		Span:   s.id,
		Parent: parent,
		Worker: worker,
		Name:   name,
	})
	return s
}

// End closes the span and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	now := time.Now()
	d := now.Sub(s.start)
	s.t.Emit(&Event{
		Time:    now,
		Seq:     seq.Add(1),
		Kind:    KindSpanEnd,
		Scope:   s.scope,
		Span:    s.id,
		Parent:  s.parent,
		Worker:  s.worker,
		Name:    s.name,
		Detail:  detail,
		Elapsed: d,
	})
	return d
}

// ID returns the span id for child spans; 0 for a nil span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event.
func Point(t Tracer, scope Scope, name, detail string) {
	if !Enabled(t) {
		return
	}
	t.Emit(&Event{
		Time:   time.Now(),
		Seq:    seq.Add(1),
		Kind:   KindPoint,
		Scope:  scope,
		Worker: NoWorker,
		Name:   name,
		Detail: detail,
	})
}
