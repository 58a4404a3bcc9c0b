package api

import (
	"piperun/internal/history"
	"piperun/internal/host"
	"piperun/internal/session"
	"piperun/internal/workspace"
)

// FromSnapshot converts a session snapshot to its API representation.
func FromSnapshot(snap session.Snapshot) Session {
	return Session{
		Running:       snap.Running,
		StopRequested: snap.StopRequested,
		Label:         snap.Label,
		ID:            snap.SessionID,
		PipePath:      snap.PipePath,
		StartedAt:     snap.StartedAt,
		Processed:     snap.Processed,
		Failed:        snap.Failed,
		Pending:       snap.Pending,
		ListenerAlive: snap.ListenerAlive,
		LastError:     snap.LastError,
	}
}

// FromReports converts host reports, preserving order.
func FromReports(reports []host.Report) []Report {
	out := make([]Report, 0, len(reports))
	for _, r := range reports {
		out = append(out, Report{
			Severity: string(r.Severity),
			Message:  r.Message,
			At:       r.At,
		})
	}
	return out
}

// FromScripts converts loaded scripts. Script text is not exposed.
func FromScripts(scripts []workspace.Script) []Script {
	out := make([]Script, 0, len(scripts))
	for _, sc := range scripts {
		out = append(out, Script{
			Path:     sc.Path,
			Name:     sc.Name,
			LoadedAt: sc.LoadedAt,
			Runs:     sc.Runs,
		})
	}
	return out
}

// FromAddons converts discovered add-ons, reporting module counts only.
func FromAddons(addons []workspace.Addon) []Addon {
	out := make([]Addon, 0, len(addons))
	for _, a := range addons {
		out = append(out, Addon{
			Name:    a.Name,
			Enabled: a.Enabled,
			Modules: len(a.Modules),
			Reloads: a.Reloads,
		})
	}
	return out
}

// FromHistoryEntries converts journal rows.
func FromHistoryEntries(entries []history.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntry{
			ID:         e.ID,
			SessionID:  e.SessionID,
			Line:       e.Line,
			Verb:       e.Verb,
			Argument:   e.Argument,
			Outcome:    string(e.Outcome),
			Message:    e.Message,
			DurationMS: e.Duration.Milliseconds(),
			RecordedAt: e.RecordedAt,
		})
	}
	return out
}
