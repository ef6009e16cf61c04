// Package logging assembles structured slog loggers and formatting helpers used
// across Workbench.
//
// It owns the configurable console/JSON handlers, tees a JSON copy of every
// line into the log directory, and exposes context-aware helpers so request
// code automatically tags log lines with request IDs, routes, and workspace
// names. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape as the rest of the system.
package logging
