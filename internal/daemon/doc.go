// Package daemon coordinates the long-running piperun process.
//
// It wires configuration, the command history store, the workspace verbs,
// and the host loop into a single lifecycle with flock-based locking to
// prevent multiple instances. Each Start creates a private runtime directory
// that backs the `${tmp}` placeholder of the pipe path, so concurrent users
// never share a channel.
//
// Session operations are posted to the host loop, which is also where ticks
// dispatch commands, so the workspace is only ever touched from one
// goroutine.
package daemon
