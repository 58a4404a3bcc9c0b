package host

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"piperun/internal/logging"
	"piperun/internal/notifications"
)

const notifyTimeout = 15 * time.Second

// Notifier publishes events off the loop goroutine so a slow ntfy server
// never delays a tick.
type Notifier struct {
	svc    notifications.Service
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewNotifier wraps svc. A nil svc drops every event.
func NewNotifier(svc notifications.Service, logger *slog.Logger) *Notifier {
	if svc == nil {
		svc = notifications.NewNoop()
	}
	return &Notifier{
		svc:    svc,
		logger: logging.NewComponentLogger(logger, "notifier"),
	}
}

// Publish sends event in the background.
func (n *Notifier) Publish(event notifications.Event, payload notifications.Payload) {
	if n == nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := n.svc.Publish(ctx, event, payload); err != nil {
			logging.WarnWithContext(n.logger, "notification failed", "notification_failed",
				logging.String("event", string(event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ntfy_topic and network access"),
				logging.String(logging.FieldImpact, "notification not delivered"),
			)
		}
	}()
}

// Wait blocks until in-flight notifications finish.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
