package driver

import "time"

// Stage names one step of a unit or assembly pipeline.
type Stage string

const (
	StageLoad     Stage = "load"
	StageLex      Stage = "lex"
	StageTokens   Stage = "tokens"
	StageParse    Stage = "parse"
	StageGenerate Stage = "generate"

	StageLink    Stage = "link"
	StageAnalyze Stage = "analyze"
	StageScopes  Stage = "scopes"
	StageExport  Stage = "export"
	StageRun     Stage = "run"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Event reports progress for a unit (or for the whole assembly when Unit is
// empty).
type Event struct {
	Unit    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. OnEvent is called from worker
// goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func (a *Assembly) emit(ev Event) {
	if a.opts.Progress != nil {
		a.opts.Progress.OnEvent(ev)
	}
}
