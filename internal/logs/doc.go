// Package logs reads the daemon log file for `piperun logs`.
//
// Tail returns the last N complete lines with bounded memory. A Follower
// then polls for lines appended after that offset, holding back a trailing
// partial line until its newline arrives and starting over when the file
// shrinks (the daemon truncates on restart). Callers pass a context so
// follow mode stops cleanly when the CLI exits.
package logs
