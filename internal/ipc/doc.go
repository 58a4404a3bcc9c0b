// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and conversions
// between session, workspace, and history models and their wire
// representations. Start and stop requests control the command channel
// session inside a running daemon; the daemon process itself is started by
// `piperun serve` and stopped by signal.
package ipc
