package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"piperun/internal/config"
)

const userAgent = "piperun/0.1.0"

// Event identifies a notification template.
type Event string

const (
	EventSessionStarted Event = "session_started"
	EventSessionStopped Event = "session_stopped"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries template values for an event.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		errors:   cfg.Notifications.Errors,
		session:  cfg.Notifications.Session,
	}
}

// NewNoop returns a service that drops every event.
func NewNoop() Service {
	return noopService{}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	errors   bool
	session  bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, err := format(event, data)
	if err != nil {
		return err
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventSessionStarted, EventSessionStopped:
		return n.session
	case EventError:
		return n.errors
	default:
		return true
	}
}

func format(event Event, data Payload) (payload, error) {
	switch event {
	case EventSessionStarted:
		return payload{
			title:   "piperun - Session Started",
			message: fmt.Sprintf("📡 Listening on %s", stringValue(data, "pipePath", "unknown pipe")),
			tags:    []string{"piperun", "session", "started"},
		}, nil
	case EventSessionStopped:
		message := fmt.Sprintf("Stopped listening on %s", stringValue(data, "pipePath", "unknown pipe"))
		if reason := stringValue(data, "reason", ""); reason != "" {
			message += " (" + reason + ")"
		}
		return payload{
			title:   "piperun - Session Stopped",
			message: message,
			tags:    []string{"piperun", "session", "stopped"},
		}, nil
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := stringValue(data, "context", ""); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		builder.WriteString(stringValue(data, "error", "unknown"))
		return payload{
			title:    "piperun - Error",
			message:  builder.String(),
			tags:     []string{"piperun", "error", "alert"},
			priority: "high",
		}, nil
	case EventTest:
		return payload{
			title:    "piperun - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"piperun", "test"},
			priority: "low",
		}, nil
	default:
		return payload{}, fmt.Errorf("unsupported notification event %q", event)
	}
}

func stringValue(data Payload, key, fallback string) string {
	if data == nil {
		return fallback
	}
	raw, ok := data[key]
	if !ok || raw == nil {
		return fallback
	}
	var value string
	switch v := raw.(type) {
	case string:
		value = v
	case error:
		value = v.Error()
	default:
		value = fmt.Sprint(v)
	}
	if value = strings.TrimSpace(value); value == "" {
		return fallback
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
