package driver

import (
	"io"

	"biscuit/internal/diag"
	"biscuit/internal/jobs"
	"biscuit/internal/native"
	"biscuit/internal/project"
	"biscuit/internal/trace"
)

// Options describe one assembly: what to compile and which optional
// stages run.
type Options struct {
	Name       string
	Files      []string
	ModuleDirs []string
	Target     string

	Threads          int // 0 means jobs.DefaultThreads()
	SingleThread     bool
	ErrorLimit       int // 0 means diag.DefaultErrorLimit
	WarningsAsErrors bool

	SyntaxOnly  bool
	PrintTokens bool
	PrintScopes bool
	DumpMIR     bool
	// EmitMIR is the snapshot path; empty skips the export.
	EmitMIR string
	// Run executes Entry in the compile-time machine after analysis.
	Run   bool
	Entry string

	// Out receives token, scope and IR listings and native output.
	Out      io.Writer
	Progress ProgressSink
	Tracer   trace.Tracer
	Resolver native.Resolver
}

// FromManifest fills options from a loaded biscuit.toml.
func FromManifest(m *project.Manifest) (Options, error) {
	files, err := m.EntryFiles()
	if err != nil {
		return Options{}, err
	}
	b := m.Config.Build
	return Options{
		Name:             m.Config.Package.Name,
		Files:            files,
		ModuleDirs:       m.ModuleDirs(),
		Target:           b.Target,
		Threads:          b.Threads,
		SingleThread:     b.SingleThread,
		ErrorLimit:       b.ErrorLimit,
		WarningsAsErrors: b.WarningsAsErrors,
		SyntaxOnly:       b.SyntaxOnly,
	}, nil
}

func (o *Options) normalize() {
	if o.Threads <= 0 {
		o.Threads = jobs.DefaultThreads()
	}
	if o.ErrorLimit <= 0 {
		o.ErrorLimit = diag.DefaultErrorLimit
	}
	if o.Target == "" {
		o.Target = "host"
	}
	if o.Entry == "" {
		o.Entry = "main"
	}
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.Tracer == nil {
		o.Tracer = trace.Nop
	}
	if o.Resolver == nil {
		o.Resolver = &native.HostResolver{Out: o.Out}
	}
}
