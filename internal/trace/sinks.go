package trace

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

type nopTracer struct{}

func (nopTracer) Emit(*Event)  {}
func (nopTracer) Flush() error { return nil }
func (nopTracer) Close() error { return nil }
func (nopTracer) Level() Level { return LevelOff }

// Nop discards everything.
var Nop Tracer = nopTracer{}

// Stream encodes events to a writer as they arrive.
type Stream struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	level  Level
	format Format
}

// NewStream writes to w. Events are buffered until Flush.
func NewStream(w io.Writer, level Level, format Format) *Stream {
	if format == FormatAuto {
		format = FormatText
	}
	return &Stream{w: bufio.NewWriter(w), level: level, format: format}
}

func (s *Stream) Emit(ev *Event) {
	if !s.level.Allows(ev) {
		return
	}
	data := ev.Encode(s.format)
	s.mu.Lock()
	_, _ = s.w.Write(data)
	s.mu.Unlock()
}

func (s *Stream) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

// Close flushes and closes the output when the stream opened it.
func (s *Stream) Close() error {
	err := s.Flush()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
		s.closer = nil
	}
	return err
}

func (s *Stream) Level() Level { return s.level }

// Ring keeps the last N events in memory.
type Ring struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	full  bool
	level Level
}

// NewRing keeps up to capacity events.
func NewRing(capacity int, level Level) *Ring {
	return &Ring{buf: make([]Event, max(capacity, 1)), level: level}
}

func (r *Ring) Emit(ev *Event) {
	if !r.level.Allows(ev) {
		return
	}
	r.mu.Lock()
	r.buf[r.next] = *ev
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

// Snapshot returns the buffered events, oldest first.
func (r *Ring) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Event(nil), r.buf[:r.next]...)
	}
	out := make([]Event, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// Dump writes the snapshot to w.
func (r *Ring) Dump(w io.Writer, format Format) error {
	for _, ev := range r.Snapshot() {
		if _, err := w.Write(ev.Encode(format)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Ring) Flush() error { return nil }
func (r *Ring) Close() error { return nil }
func (r *Ring) Level() Level { return r.level }

type fanout struct {
	level   Level
	targets []Tracer
}

// Fanout sends every event to all targets.
func Fanout(level Level, targets ...Tracer) Tracer {
	return &fanout{level: level, targets: targets}
}

func (f *fanout) Emit(ev *Event) {
	for _, t := range f.targets {
		t.Emit(ev)
	}
}

func (f *fanout) Flush() error {
	var errs []error
	for _, t := range f.targets {
		errs = append(errs, t.Flush())
	}
	return errors.Join(errs...)
}

func (f *fanout) Close() error {
	var errs []error
	for _, t := range f.targets {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}

func (f *fanout) Level() Level { return f.level }
