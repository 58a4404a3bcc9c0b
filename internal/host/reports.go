package host

import (
	"log/slog"
	"sync"
	"time"

	"piperun/internal/logging"
	"piperun/internal/notifications"
	"piperun/internal/session"
)

const defaultReportLimit = 20

// Report is one user-facing message.
type Report struct {
	Severity session.Severity
	Message  string
	At       time.Time
}

// Reports logs user-facing messages, keeps the most recent ones for status
// output, and forwards errors to the notifier.
type Reports struct {
	logger   *slog.Logger
	notifier *Notifier
	limit    int

	mu     sync.Mutex
	recent []Report
}

// NewReports builds a report sink. limit <= 0 uses the default.
func NewReports(logger *slog.Logger, notifier *Notifier, limit int) *Reports {
	if limit <= 0 {
		limit = defaultReportLimit
	}
	return &Reports{
		logger:   logging.NewComponentLogger(logger, "reports"),
		notifier: notifier,
		limit:    limit,
	}
}

// Report implements session.Reporter.
func (r *Reports) Report(severity session.Severity, message string) {
	r.mu.Lock()
	r.recent = append(r.recent, Report{Severity: severity, Message: message, At: time.Now()})
	if over := len(r.recent) - r.limit; over > 0 {
		r.recent = append(r.recent[:0], r.recent[over:]...)
	}
	r.mu.Unlock()

	attrs := []logging.Attr{logging.String(logging.FieldSeverity, string(severity))}
	switch severity {
	case session.SeverityError:
		logging.ErrorWithContext(r.logger, message, "report_error", attrs...)
		r.notifier.Publish(notifications.EventError, notifications.Payload{
			"context": "command channel",
			"error":   message,
		})
	case session.SeverityWarning:
		logging.WarnWithContext(r.logger, message, "report_warning", attrs...)
	default:
		r.logger.Info(message, logging.Args(attrs...)...)
	}
}

// Recent returns stored reports, oldest first.
func (r *Reports) Recent() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.recent...)
}
