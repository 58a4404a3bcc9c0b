// Package session owns one command channel session at a time: it opens the
// named pipe, runs the listener, and drains the command queue on every tick
// of the host main loop.
//
// A Manager is created once per daemon and handed to whatever needs to start,
// stop, or inspect sessions. All Manager methods except the pure queries are
// expected to run on the host main context, the same goroutine that invokes
// the registered tick. The host side is abstracted behind small interfaces
// (Scheduler, Reporter, Preferences, Redrawer, Handler, Journal) so the
// channel can be driven by the real daemon loop or by test fakes.
//
// Tick order is fixed: listener health first, then a pending stop request,
// then the queue drain. Every line queued before a stop or a listener failure
// is still dispatched after the listener has been joined. Only Shutdown
// discards queued lines, journaling them as dropped.
package session
