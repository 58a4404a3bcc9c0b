// Package host provides the daemon-side collaborators of a command channel
// session: a single-goroutine main loop with fixed-interval timers, a report
// sink, a status panel that tracks the start/stop label, and a mutable
// preference store.
//
// Everything that touches workspace state runs on the Loop goroutine. Other
// goroutines hand work to it with Loop.Do.
package host
