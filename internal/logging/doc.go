// Package logging assembles structured slog loggers and formatting helpers used
// across Hoist services.
//
// It owns the configurable console/JSON handlers, rotates the daemon log file
// through lumberjack, and exposes context-aware helpers so upload code can tag
// log lines with upload IDs and correlation IDs. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the system.
package logging
