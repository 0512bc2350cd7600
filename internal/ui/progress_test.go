package ui

import (
	"strings"
	"testing"

	"biscuit/internal/driver"
)

func feed(m *progressModel, evs ...driver.Event) {
	for _, ev := range evs {
		m.applyEvent(ev)
	}
}

func TestUnitsAppearAsQueued(t *testing.T) {
	m := NewProgressModel("build", "/p", nil).(*progressModel)
	feed(m,
		driver.Event{Unit: "/p/main.bl", Stage: driver.StageLoad, Status: driver.StatusQueued},
		driver.Event{Unit: "/p/main.bl", Stage: driver.StageParse, Status: driver.StatusWorking},
		driver.Event{Unit: "/p/lib/util.bl", Stage: driver.StageLoad, Status: driver.StatusQueued},
	)
	if len(m.items) != 2 {
		t.Fatalf("items = %d, want 2", len(m.items))
	}
	if m.items[0].status != "parsing" || m.items[1].path != "lib/util.bl" {
		t.Fatalf("items = %+v", m.items)
	}
	if got := m.percent(); got != (0.6+0.0)/2 {
		t.Fatalf("percent = %v", got)
	}
}

func TestQueuedUnitsAddNoProgress(t *testing.T) {
	m := NewProgressModel("build", "", nil).(*progressModel)
	feed(m, driver.Event{Unit: "a.bl", Stage: driver.StageLoad, Status: driver.StatusQueued})
	if got := m.percent(); got != 0 {
		t.Fatalf("queued percent = %v, want 0", got)
	}
	feed(m, driver.Event{Unit: "a.bl", Stage: driver.StageLoad, Status: driver.StatusWorking})
	if got := m.percent(); got != 0.1 {
		t.Fatalf("loading percent = %v, want 0.1", got)
	}
}

func TestAssemblyStagesSetHeader(t *testing.T) {
	m := NewProgressModel("build", "", nil).(*progressModel)
	feed(m,
		driver.Event{Unit: "a.bl", Stage: driver.StageLoad, Status: driver.StatusQueued},
		driver.Event{Unit: "a.bl", Stage: driver.StageGenerate, Status: driver.StatusDone},
		driver.Event{Stage: driver.StageAnalyze, Status: driver.StatusWorking},
	)
	if m.percent() != 1.0 {
		t.Fatalf("percent = %v", m.percent())
	}
	if !strings.Contains(m.View(), "build (analyze: analyzing)") {
		t.Fatalf("view:\n%s", m.View())
	}
	feed(m, driver.Event{Stage: driver.StageRun, Status: driver.StatusError})
	m.done = true
	if !strings.HasPrefix(stripHeader(m.View()), "failed: build") {
		t.Fatalf("view:\n%s", m.View())
	}
}

func TestViewCollapsesLongUnitLists(t *testing.T) {
	m := NewProgressModel("build", "", nil).(*progressModel)
	for i := 0; i < maxVisible+5; i++ {
		feed(m, driver.Event{Unit: string(rune('a'+i)) + ".bl", Stage: driver.StageLoad, Status: driver.StatusQueued})
	}
	if !strings.Contains(m.View(), "5 more units") {
		t.Fatalf("view:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("日本語のパス", 5); got != "日..." {
		t.Fatalf("truncate wide = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}

// stripHeader drops styling so the header can be compared as text.
func stripHeader(view string) string {
	line, _, _ := strings.Cut(view, "\n")
	var b strings.Builder
	inEsc := false
	for _, r := range line {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
