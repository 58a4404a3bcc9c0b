package ipc

import "piperun/internal/api"

// StartRequest starts a command channel session. PipePath, when set,
// replaces the pipe path template first.
type StartRequest struct {
	PipePath string `json:"pipe_path"`
}

// StartResponse indicates whether a session was started.
type StartResponse struct {
	Started bool    `json:"started"`
	Message string  `json:"message"`
	Session Session `json:"session"`
}

// StopRequest asks the running session to stop.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Requested bool   `json:"requested"`
	Message   string `json:"message"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// Shared DTOs travel unchanged over IPC and HTTP.
type (
	Session        = api.Session
	Report         = api.Report
	Script         = api.Script
	Addon          = api.Addon
	StatusResponse = api.DaemonStatus
	HistoryEntry   = api.HistoryEntry
)

// HistoryRequest filters journaled commands.
type HistoryRequest struct {
	SessionID string `json:"session_id"`
	Outcome   string `json:"outcome"`
	Limit     int    `json:"limit"`
}

// HistoryResponse contains journal entries, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// TestNotificationRequest triggers a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse indicates notification result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
