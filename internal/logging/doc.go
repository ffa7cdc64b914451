// Package logging assembles structured slog loggers and formatting helpers used
// across cogstream.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code can tag log lines with the
// item, stage, signature, and run identifiers carried on a context. A no-op
// logger is provided for tests and wiring code that cannot fail.
//
// Loggers are always passed explicitly into the enumerator, producer, and
// consumer constructors; nothing in the module reads a process-wide default.
package logging
