// Package logging assembles the structured slog loggers used across vigil.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so pipeline code tags log lines
// with camera and event identifiers in a consistent shape. A no-op logger is
// available for tests and wiring code that cannot fail.
package logging
