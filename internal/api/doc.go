// Package api defines wire-format types and converters shared by the IPC
// and HTTP API layers. It translates session snapshots, host reports,
// workspace state, and history entries into transport-friendly DTOs so
// clients never couple to internal types.
//
// # Key Types
//
// Session: the command channel session, including queue depth and
// listener health.
//
// DaemonStatus: aggregated runtime information returned by both the
// Piperun.Status RPC and GET /api/status.
//
// HistoryEntry: one journaled command line with its outcome.
//
// # Design Notes
//
// JSON tags are snake_case. Durations travel as integer milliseconds.
// Converters return empty (non-nil) slices so payloads encode as [] rather
// than null.
package api
