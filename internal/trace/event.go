package trace

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindNames = [...]string{"unknown", "begin", "end", "point", "heartbeat"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[0]
}

// Scope is the granularity of an event; lower values are coarser.
type Scope uint8

const (
	ScopeDriver  Scope = iota + 1 // assembly lifecycle
	ScopePass                     // assembly stages (link, analyze, export, run)
	ScopeUnit                     // per-unit jobs on workers
	ScopeAnalyze                  // analyzer passes and waiting-table traffic
)

var scopeNames = [...]string{"unknown", "driver", "pass", "unit", "analyze"}

func (s Scope) String() string {
	if int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return scopeNames[0]
}

// NoWorker marks events emitted outside of the job pool.
const NoWorker = -1

// Event is one trace record.
type Event struct {
	Time    time.Time
	Seq     uint64
	Kind    Kind
	Scope   Scope
	Span    uint64
	Parent  uint64
	Worker  int
	Name    string
	Detail  string
	Elapsed time.Duration // только для KindSpanEnd
}

// Level selects which scopes reach the output.
type Level uint8

const (
	LevelOff Level = iota
	LevelError
	LevelPhase
	LevelDetail
	LevelDebug
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel accepts the names printed by Level.String in any case.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|detail|debug)", s)
}

// Allows reports whether events of scope pass at this level. Heartbeats
// pass whenever tracing is on.
func (l Level) Allows(ev *Event) bool {
	switch {
	case l == LevelOff:
		return false
	case ev.Kind == KindHeartbeat:
		return true
	}
	switch l {
	case LevelPhase:
		return ev.Scope <= ScopePass
	case LevelDetail:
		return ev.Scope <= ScopeUnit
	case LevelDebug:
		return true
	}
	return false
}

// Format is the encoding of a stream tracer.
type Format uint8

const (
	FormatAuto   Format = iota // pick by output file extension
	FormatText                 // human-readable text
	FormatNDJSON               // newline-delimited JSON
)

type jsonEvent struct {
	Time      string `json:"time"`
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	Scope     string `json:"scope"`
	Span      uint64 `json:"span,omitempty"`
	Parent    uint64 `json:"parent,omitempty"`
	Worker    *int   `json:"worker,omitempty"`
	Name      string `json:"name"`
	Detail    string `json:"detail,omitempty"`
	ElapsedUS int64  `json:"elapsed_us,omitempty"`
}

// Encode renders ev in format f, newline included.
func (ev *Event) Encode(f Format) []byte {
	if f == FormatNDJSON {
		j := jsonEvent{
			Time:      ev.Time.Format(time.RFC3339Nano),
			Seq:       ev.Seq,
			Kind:      ev.Kind.String(),
			Scope:     ev.Scope.String(),
			Span:      ev.Span,
			Parent:    ev.Parent,
			Name:      ev.Name,
			Detail:    ev.Detail,
			ElapsedUS: ev.Elapsed.Microseconds(),
		}
		if ev.Worker != NoWorker {
			w := ev.Worker
			j.Worker = &w
		}
		data, err := json.Marshal(j)
		if err != nil {
			return nil
		}
		return append(data, '\n')
	}

	// 15:04:05.000000 w2  → unit:parse (main.bl) 1.2ms
	var sb strings.Builder
	sb.WriteString(ev.Time.Format("15:04:05.000000"))
	if ev.Worker == NoWorker {
		sb.WriteString(" --  ")
	} else {
		sb.WriteString(" w")
		sb.WriteString(strconv.Itoa(ev.Worker))
		sb.WriteString(strings.Repeat(" ", max(3-len(strconv.Itoa(ev.Worker)), 1)))
	}
	switch ev.Kind {
	case KindSpanBegin:
		sb.WriteString("→ ")
	case KindSpanEnd:
		sb.WriteString("← ")
	case KindPoint:
		sb.WriteString("• ")
	case KindHeartbeat:
		sb.WriteString("♡ ")
	}
	sb.WriteString(ev.Scope.String())
	sb.WriteByte(':')
	sb.WriteString(ev.Name)
	if ev.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(ev.Detail)
		sb.WriteByte(')')
	}
	if ev.Kind == KindSpanEnd {
		sb.WriteByte(' ')
		sb.WriteString(ev.Elapsed.String())
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}
