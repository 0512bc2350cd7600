package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestStatsConcurrentAdd(t *testing.T) {
	var s Stats
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(CounterLexing, time.Millisecond)
			s.AddUnit(10, 2)
		}()
	}
	wg.Wait()
	if s.Duration(CounterLexing) != 4*time.Millisecond {
		t.Fatalf("lexing = %v", s.Duration(CounterLexing))
	}
	if s.Units() != 4 || s.Lines() != 8 {
		t.Fatalf("units=%d lines=%d", s.Units(), s.Lines())
	}
	s.AddPolymorph(time.Microsecond)
	if s.Polymorphs() != 1 {
		t.Fatalf("polymorphs = %d", s.Polymorphs())
	}
	if !strings.Contains(s.Summary(), "mir analyze") {
		t.Fatalf("summary misses analyze row")
	}
}

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	stopLink := tm.Start("link")
	stopAnalyze := tm.Start("analyze")
	stopAnalyze("3 passes")
	stopAnalyze("ignored")
	stopLink("")
	phases := tm.Phases()
	if len(phases) != 2 || phases[0].Name != "link" || phases[1].Note != "3 passes" {
		t.Fatalf("unexpected phases %+v", phases)
	}
	sum := tm.Summary()
	if !strings.Contains(sum, "analyze") || !strings.Contains(sum, "total") {
		t.Fatalf("summary = %q", sum)
	}
}
