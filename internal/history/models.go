package history

import "time"

// Outcome classifies how a command line was handled.
type Outcome string

const (
	// OutcomeOK means a handler ran and produced a message.
	OutcomeOK Outcome = "ok"
	// OutcomeNoTarget means the verb or argument matched nothing.
	OutcomeNoTarget Outcome = "no_target"
	// OutcomeFailed means the handler returned an error or panicked.
	OutcomeFailed Outcome = "failed"
	// OutcomeMalformed means the line had no verb/argument separator.
	OutcomeMalformed Outcome = "malformed"
	// OutcomeDropped means the line was queued when the session was shut down.
	OutcomeDropped Outcome = "dropped"
)

// Entry is one journaled command line.
type Entry struct {
	ID         int64
	SessionID  string
	Line       string
	Verb       string
	Argument   string
	Outcome    Outcome
	Message    string
	Duration   time.Duration
	RecordedAt time.Time
}

// Filter narrows Recent. Zero values match everything.
type Filter struct {
	SessionID string
	Outcome   Outcome
	Limit     int
}
