package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies lifecycle and failure events for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldSessionID is the standardized structured logging key for channel session identifiers.
	FieldSessionID = "session_id"
	// FieldPipePath is the resolved location of the named pipe.
	FieldPipePath = "pipe_path"
	// FieldVerb is the command verb of a dispatched line.
	FieldVerb = "verb"
	// FieldArgument is the command argument of a dispatched line.
	FieldArgument = "argument"
	// FieldSeverity is the severity of a user-facing report.
	FieldSeverity = "severity"
)
