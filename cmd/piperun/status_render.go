package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"piperun/internal/ipc"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 14
	statusIndent     = "  "
	reportLimit      = 5
)

func renderStatus(resp *ipc.StatusResponse, colorize bool) string {
	if resp == nil {
		return ""
	}
	now := time.Now()
	var lines []string

	lines = append(lines, renderSectionHeader("Daemon", colorize)...)
	if resp.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", resp.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "stopped", colorize))
	}
	if resp.RuntimeDir != "" {
		lines = append(lines, renderStatusLine("Runtime dir", statusInfo, resp.RuntimeDir, colorize))
	}
	if resp.HistoryPath != "" {
		lines = append(lines, renderStatusLine("History", statusInfo, resp.HistoryPath, colorize))
	} else {
		lines = append(lines, renderStatusLine("History", statusInfo, "disabled", colorize))
	}
	lines = append(lines, "")

	session := resp.Session
	lines = append(lines, renderSectionHeader("Session", colorize)...)
	lines = append(lines, renderStatusLine("Control", statusInfo, session.Label, colorize))
	switch {
	case session.StopRequested:
		lines = append(lines, renderStatusLine("Session", statusWarn, "stopping "+session.PipePath, colorize))
	case session.Running:
		lines = append(lines, renderStatusLine("Session", statusOK,
			fmt.Sprintf("listening on %s (started %s)", session.PipePath, formatAge(session.StartedAt, now)), colorize))
	default:
		lines = append(lines, renderStatusLine("Session", statusInfo, "idle, next pipe "+resp.PipeTemplate, colorize))
	}
	if session.Running {
		if session.ListenerAlive {
			lines = append(lines, renderStatusLine("Listener", statusOK, "alive", colorize))
		} else {
			lines = append(lines, renderStatusLine("Listener", statusError, "dead", colorize))
		}
		kind := statusInfo
		if session.Failed > 0 {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine("Commands", kind,
			fmt.Sprintf("%d processed, %d failed, %d pending", session.Processed, session.Failed, session.Pending), colorize))
	}
	if session.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusError, session.LastError, colorize))
	}
	lines = append(lines, "")

	lines = append(lines, renderSectionHeader("Workspace", colorize)...)
	lines = append(lines, renderStatusLine("Scripts", statusInfo, fmt.Sprintf("%d loaded", len(resp.Scripts)), colorize))
	for _, script := range resp.Scripts {
		lines = append(lines, fmt.Sprintf("%s%s- %s (%d runs)", statusIndent, statusIndent, script.Path, script.Runs))
	}
	lines = append(lines, renderStatusLine("Add-ons", statusInfo, fmt.Sprintf("%d discovered", len(resp.Addons)), colorize))
	for _, addon := range resp.Addons {
		state := "enabled"
		if !addon.Enabled {
			state = "disabled"
		}
		lines = append(lines, fmt.Sprintf("%s%s- %s (%s, %d modules, %d reloads)",
			statusIndent, statusIndent, addon.Name, state, addon.Modules, addon.Reloads))
	}
	if len(resp.Verbs) > 0 {
		lines = append(lines, renderStatusLine("Verbs", statusInfo, strings.Join(resp.Verbs, ", "), colorize))
	}

	if len(resp.Reports) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Recent reports", colorize)...)
		reports := resp.Reports
		if len(reports) > reportLimit {
			reports = reports[len(reports)-reportLimit:]
		}
		for _, report := range reports {
			lines = append(lines, renderStatusLine(formatAge(report.At, now), severityKind(report.Severity), report.Message, colorize))
		}
	}

	return strings.Join(lines, "\n") + "\n"
}

func severityKind(severity string) statusKind {
	switch strings.ToUpper(strings.TrimSpace(severity)) {
	case "ERROR":
		return statusError
	case "WARNING":
		return statusWarn
	default:
		return statusInfo
	}
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	return isTerminal(file)
}

func isTerminal(file *os.File) bool {
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
