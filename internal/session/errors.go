package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStartupFailure = errors.New("session startup failure")
	ErrListenerDied   = errors.New("command listener died")
	ErrHandlerFailure = errors.New("command handler failure")
	ErrAlreadyRunning = errors.New("session already running")
	ErrNotRunning     = errors.New("session not running")
)

// Wrap tags err with marker and joins operation and detail into the message.
// marker should be one of the sentinels above so callers can classify the
// failure with errors.Is.
func Wrap(marker error, operation, detail string, err error) error {
	if marker == nil {
		marker = ErrHandlerFailure
	}
	msg := buildDetail(operation, detail)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, msg, err)
	}
	return fmt.Errorf("%w: %s", marker, msg)
}

func buildDetail(operation, detail string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if detail = strings.TrimSpace(detail); detail != "" {
		parts = append(parts, detail)
	}
	if len(parts) == 0 {
		return "session failure"
	}
	return strings.Join(parts, ": ")
}
