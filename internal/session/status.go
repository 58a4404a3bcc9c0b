package session

// Status is the control-flow token a tick or an operator entry point returns
// to the host.
type Status string

const (
	// RunningModal keeps the tick registered after a successful start.
	RunningModal Status = "RUNNING_MODAL"
	// PassThrough keeps the tick registered after a normal drain.
	PassThrough Status = "PASS_THROUGH"
	// Finished ends the registration after a clean stop.
	Finished Status = "FINISHED"
	// Cancelled ends the registration after a failure or a rejected request.
	Cancelled Status = "CANCELLED"
)

// Terminal reports whether the host should drop the tick registration.
func (s Status) Terminal() bool {
	return s == Finished || s == Cancelled
}

// Severity classifies a user-facing report.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Control labels shown by the host for the start/stop toggle.
const (
	LabelStart    = "Start remote"
	LabelStopping = "Stopping remote..."
	LabelStop     = "Stop remote"
)

// User-facing report messages for lifecycle failures.
const (
	MessageStartupFailed = "Creating unix pipe failed"
	MessageListenerDied  = "Command listening thread died"
)
