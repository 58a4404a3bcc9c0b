package api

import "time"

// Session mirrors session.Snapshot on the wire.
type Session struct {
	Running       bool      `json:"running"`
	StopRequested bool      `json:"stop_requested"`
	Label         string    `json:"label"`
	ID            string    `json:"id"`
	PipePath      string    `json:"pipe_path"`
	StartedAt     time.Time `json:"started_at"`
	Processed     int       `json:"processed"`
	Failed        int       `json:"failed"`
	Pending       int       `json:"pending"`
	ListenerAlive bool      `json:"listener_alive"`
	LastError     string    `json:"last_error"`
}

// Report is one user-facing message.
type Report struct {
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Script describes a loaded script.
type Script struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	LoadedAt time.Time `json:"loaded_at"`
	Runs     int       `json:"runs"`
}

// Addon describes a discovered add-on.
type Addon struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Modules int    `json:"modules"`
	Reloads int    `json:"reloads"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool     `json:"running"`
	PID          int      `json:"pid"`
	Session      Session  `json:"session"`
	PipeTemplate string   `json:"pipe_template"`
	RuntimeDir   string   `json:"runtime_dir"`
	Reports      []Report `json:"reports"`
	Scripts      []Script `json:"scripts"`
	Addons       []Addon  `json:"addons"`
	Verbs        []string `json:"verbs"`
	HistoryPath  string   `json:"history_path"`
	LockPath     string   `json:"lock_path"`
	LogPath      string   `json:"log_path"`
}

// HistoryEntry is one journaled command line.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Line       string    `json:"line"`
	Verb       string    `json:"verb"`
	Argument   string    `json:"argument"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message"`
	DurationMS int64     `json:"duration_ms"`
	RecordedAt time.Time `json:"recorded_at"`
}

// HistoryResponse wraps journal entries, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// SessionResponse is returned by the session control endpoints.
type SessionResponse struct {
	OK      bool    `json:"ok"`
	Message string  `json:"message"`
	Session Session `json:"session"`
}
