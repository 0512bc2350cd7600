// Package trace is the structured event log of the compiler.
//
// Driver stages open ScopePass spans, unit jobs open ScopeUnit spans tagged
// with the worker that runs them, and the analyzer emits ScopeAnalyze
// points per fixpoint pass. Tracers are goroutine-safe.
//
//	span := trace.Begin(tracer, trace.ScopePass, "analyze", 0)
//	defer span.End("")
package trace
