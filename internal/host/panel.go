package host

import (
	"log/slog"
	"sync"

	"piperun/internal/logging"
	"piperun/internal/notifications"
	"piperun/internal/session"
)

// SnapshotFunc reports the current session state.
type SnapshotFunc func() session.Snapshot

// Panel is the redraw target: it re-reads the session state, logs label
// changes, and publishes session start and stop events.
type Panel struct {
	logger   *slog.Logger
	notifier *Notifier

	mu       sync.Mutex
	source   SnapshotFunc
	label    string
	pipePath string
	redraws  int
}

// NewPanel builds a panel. Bind must be called before the first redraw.
func NewPanel(logger *slog.Logger, notifier *Notifier) *Panel {
	return &Panel{
		logger:   logging.NewComponentLogger(logger, "panel"),
		notifier: notifier,
		label:    session.LabelStart,
	}
}

// Bind sets the snapshot source. The manager needs the panel at
// construction, so the source is attached afterwards.
func (p *Panel) Bind(source SnapshotFunc) {
	p.mu.Lock()
	p.source = source
	p.mu.Unlock()
}

// RequestRedraw implements session.Redrawer.
func (p *Panel) RequestRedraw() {
	p.mu.Lock()
	source := p.source
	p.mu.Unlock()
	if source == nil {
		return
	}
	snap := source()

	p.mu.Lock()
	p.redraws++
	previous := p.label
	lastPath := p.pipePath
	p.label = snap.Label
	if snap.PipePath != "" {
		p.pipePath = snap.PipePath
	}
	p.mu.Unlock()

	if previous == snap.Label {
		return
	}
	p.logger.Info("control label changed",
		logging.String(logging.FieldEventType, "label_changed"),
		logging.String("from", previous),
		logging.String("to", snap.Label),
	)

	switch {
	case previous == session.LabelStart && snap.Running:
		p.notifier.Publish(notifications.EventSessionStarted, notifications.Payload{
			"pipePath": snap.PipePath,
		})
	case previous != session.LabelStart && !snap.Running:
		reason := ""
		if snap.LastError != "" {
			reason = "listener died"
		}
		p.notifier.Publish(notifications.EventSessionStopped, notifications.Payload{
			"pipePath": lastPath,
			"reason":   reason,
		})
	}
}

// Label returns the last rendered control label.
func (p *Panel) Label() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.label
}

// Redraws returns how many redraws were requested.
func (p *Panel) Redraws() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.redraws
}
