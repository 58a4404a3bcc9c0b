// Package main hosts the piperun CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon (`serve`), translates session
// control into IPC calls (`start`, `stop`, `status`, `history`), writes
// command lines into the named pipe (`send`), and scaffolds configuration.
// Heavy lifting lives in the internal packages; commands here only resolve
// configuration and sockets and render output.
package main
