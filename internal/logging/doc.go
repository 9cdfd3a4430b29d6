// Package logging assembles structured slog loggers and formatting helpers used
// across clipper.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so capture, trim and analytics code can tag
// log lines with video IDs, session IDs and request correlation IDs. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
