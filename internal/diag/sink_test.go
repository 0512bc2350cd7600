package diag

import (
	"sync"
	"testing"

	"biscuit/internal/source"
)

func TestSinkErrorLimit(t *testing.T) {
	sink := NewSink(SinkOptions{ErrorLimit: 3})
	for i := range uint32(5) {
		sink.Report(SemaError, SevError, source.Span{File: 1, Start: i, End: i + 1}, "boom", nil)
	}
	if sink.ErrorCount() != 3 {
		t.Fatalf("ErrorCount() = %d, want 3", sink.ErrorCount())
	}
	if sink.Dropped() != 2 {
		t.Fatalf("Dropped() = %d, want 2", sink.Dropped())
	}
	if sink.ShouldReport() {
		t.Fatalf("ShouldReport must be false once the limit is reached")
	}
	// после лимита даже предупреждения не проходят
	sink.Report(SemaInfo, SevWarning, source.Span{File: 1}, "late", nil)
	if sink.WarningCount() != 0 {
		t.Fatalf("warning accepted after limit")
	}
}

func TestSinkWarningsAsErrors(t *testing.T) {
	sink := NewSink(SinkOptions{ErrorLimit: 10, WarningsAsErrors: true})
	sink.Report(SemaInfo, SevWarning, source.Span{}, "w", nil)
	if !sink.HasErrors() {
		t.Fatalf("warning was not promoted")
	}
	if got := sink.Snapshot().Items()[0].Severity; got != SevError {
		t.Fatalf("severity = %v, want ERROR", got)
	}
}

func TestSinkConcurrentReport(t *testing.T) {
	sink := NewSink(SinkOptions{ErrorLimit: 1000})
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(base uint32) {
			defer wg.Done()
			for i := range uint32(50) {
				sink.Report(SemaError, SevError, source.Span{File: 1, Start: base + i}, "x", nil)
			}
		}(uint32(w) * 50)
	}
	wg.Wait()
	if sink.ErrorCount() != 400 {
		t.Fatalf("ErrorCount() = %d, want 400", sink.ErrorCount())
	}
	if sink.Snapshot().Len() != 400 {
		t.Fatalf("Snapshot().Len() = %d, want 400", sink.Snapshot().Len())
	}
}

func TestSinkDropsRepeats(t *testing.T) {
	sink := NewSink(SinkOptions{})
	sp := source.Span{File: 1, Start: 2, End: 4}
	sink.Report(SemaUnresolvedSymbol, SevError, sp, "unknown symbol 'x'", nil)
	sink.Report(SemaUnresolvedSymbol, SevError, sp, "unknown symbol 'x'", nil)
	sink.Report(SemaUnresolvedSymbol, SevError, sp, "unknown symbol 'y'", nil)
	if sink.ErrorCount() != 2 || sink.Dropped() != 0 {
		t.Fatalf("errors=%d dropped=%d, want 2 and 0", sink.ErrorCount(), sink.Dropped())
	}
}

func TestBagSortOrder(t *testing.T) {
	bag := NewBag(4)
	bag.Add(New(SevWarning, SemaInfo, source.Span{File: 2, Start: 1}, "c"))
	bag.Add(New(SevWarning, SemaInfo, source.Span{File: 1, Start: 5}, "b"))
	bag.Add(NewError(SemaError, source.Span{File: 1, Start: 5}, "a"))
	bag.Sort()
	var got string
	for _, d := range bag.Items() {
		got += d.Message
	}
	if got != "abc" {
		t.Fatalf("order = %q, want abc", got)
	}
	if bag.Add(New(SevInfo, SemaInfo, source.Span{}, "d")) && bag.Add(New(SevInfo, SemaInfo, source.Span{}, "e")) {
		t.Fatalf("bag accepted more than its limit")
	}
}
