// Package logging assembles structured slog loggers and formatting helpers used
// across piperun services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes helpers so components tag log lines with a component
// name, an event type, and the id of the channel session they belong to. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
