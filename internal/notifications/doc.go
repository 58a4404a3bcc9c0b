// Package notifications pushes command channel events to ntfy.
//
// The ntfy implementation publishes to the topic URL configured under
// [notifications] and degrades to a no-op when no topic is set. Session
// lifecycle and error events can be toggled independently; suppressed events
// return nil without touching the network.
package notifications
