// Package preflight checks that the host can run a command channel before
// the daemon is started: writable directories, a usable interpreter,
// readable scripts, and a reachable ntfy topic.
//
// Checks never mutate state. `piperun check` renders the results and the
// daemon logs failed checks at startup.
package preflight
