// Package diag defines the diagnostic model shared by all pipeline phases.
//
// Diagnostic is the central record: severity, numeric code, message,
// primary span and optional notes. Producers emit through a Reporter;
// the assembly-wide Sink is the goroutine-safe reporter used by unit
// jobs and the analyzer. It enforces the error limit: once the limit is
// reached further diagnostics are dropped and the driver skips the
// remaining pipeline stages.
//
// Rendering lives in internal/diagfmt.
package diag
