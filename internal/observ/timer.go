package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one measured stage of an assembly.
type Phase struct {
	Name string
	Dur  time.Duration
	Note string
}

// Timer records wall-clock stage durations in start order.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

func NewTimer() *Timer { return &Timer{} }

// Start opens a phase; the returned func closes it with an optional note.
// Calling it twice keeps the first measurement.
func (t *Timer) Start(name string) func(note string) {
	t.mu.Lock()
	idx := len(t.phases)
	t.phases = append(t.phases, Phase{Name: name})
	t.mu.Unlock()
	began := time.Now()
	var once sync.Once
	return func(note string) {
		once.Do(func() {
			d := time.Since(began)
			t.mu.Lock()
			t.phases[idx].Dur, t.phases[idx].Note = d, note
			t.mu.Unlock()
		})
	}
}

// Phases returns a copy of the recorded phases.
func (t *Timer) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Phase(nil), t.phases...)
}

// Total sums the phase durations.
func (t *Timer) Total() time.Duration {
	var total time.Duration
	for _, p := range t.Phases() {
		total += p.Dur
	}
	return total
}

// Summary renders the phases as an aligned table with their share of the
// total.
func (t *Timer) Summary() string {
	phases := t.Phases()
	total := t.Total()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range phases {
		share := 0.0
		if total > 0 {
			share = 100 * float64(p.Dur) / float64(total)
		}
		fmt.Fprintf(&b, "  %-20s %7.2f ms %5.1f%%", p.Name, millis(p.Dur), share)
		if p.Note != "" {
			b.WriteString("  // ")
			b.WriteString(p.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-20s %7.2f ms\n", "total", millis(total))
	return b.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
