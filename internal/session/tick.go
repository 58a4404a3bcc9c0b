package session

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"piperun/internal/command"
	"piperun/internal/history"
	"piperun/internal/logging"
)

// Tick runs one poll cycle: listener health, then a pending stop, then the
// queue drain. It is registered with the Scheduler by Start.
func (m *Manager) Tick(ctx context.Context) Status {
	s := m.current()
	if s == nil {
		return Cancelled
	}

	if !s.worker.Alive() {
		return m.listenerDied(ctx, s)
	}
	if m.state.IsStopRequested() {
		return m.finishStop(ctx, s)
	}

	m.drain(ctx, s)
	return PassThrough
}

func (m *Manager) listenerDied(ctx context.Context, s *activeSession) Status {
	m.detach()

	cause := s.worker.Err()
	if cause == nil {
		cause = errors.New("listener exited without an error")
	}
	err := Wrap(ErrListenerDied, "listen", s.path, cause)
	if stopErr := s.worker.Stop(); stopErr != nil {
		err = errors.Join(err, stopErr)
	}

	// Joined: lines that were fully received before the failure still run.
	m.drain(ctx, s)
	m.state.clear()

	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()

	logging.ErrorWithContext(s.logger, "command listener died", "listener_died",
		logging.String(logging.FieldPipePath, s.path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "restart the session with `piperun start`"),
		logging.String(logging.FieldImpact, "commands are no longer received"),
	)
	m.deps.Reporter.Report(SeverityError, MessageListenerDied)
	m.redraw()
	return Cancelled
}

func (m *Manager) finishStop(ctx context.Context, s *activeSession) Status {
	m.detach()

	stopErr := s.worker.Stop()
	if stopErr != nil {
		logging.WarnWithContext(s.logger, "failed to release command channel", "session_stop_cleanup_failed",
			logging.String(logging.FieldPipePath, s.path),
			logging.Error(stopErr),
			logging.String(logging.FieldImpact, "the pipe may be left behind"),
		)
	}

	// The listener is joined, so the queue holds everything that will ever
	// arrive for this session.
	m.drain(ctx, s)
	m.state.clear()

	s.logger.Info("command channel session stopped",
		logging.String(logging.FieldEventType, "session_stopped"),
		logging.Int("processed", s.processed),
		logging.Int("failed", s.failed),
	)
	m.redraw()
	return Finished
}

func (m *Manager) drain(ctx context.Context, s *activeSession) {
	for s.queue.HasNext() {
		line, err := s.queue.Next()
		if err != nil {
			return
		}
		m.dispatch(ctx, s, line)
	}
}

func (m *Manager) dispatch(ctx context.Context, s *activeSession, line string) {
	verb, argument, ok := command.Split(line)
	if !ok {
		s.logger.Debug("ignoring malformed command line",
			logging.String("line", line),
		)
		m.journal(ctx, s, history.Entry{Line: line, Outcome: history.OutcomeMalformed})
		return
	}

	started := m.deps.Now()
	message, err := m.invoke(ctx, verb, argument)
	entry := history.Entry{
		Line:     line,
		Verb:     verb,
		Argument: argument,
		Duration: m.deps.Now().Sub(started),
	}

	m.mu.Lock()
	s.processed++
	if err != nil {
		s.failed++
	}
	m.mu.Unlock()

	logger := s.logger.With(logging.CommandArgs(verb, argument)...)
	switch {
	case err != nil:
		err = Wrap(ErrHandlerFailure, verb, argument, err)
		entry.Outcome = history.OutcomeFailed
		entry.Message = err.Error()
		logging.WarnWithContext(logger, "command failed", "command_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "command had no effect"),
		)
		m.deps.Reporter.Report(SeverityError, err.Error())
	case message != "":
		entry.Outcome = history.OutcomeOK
		entry.Message = message
		logger.Debug("command handled",
			logging.Duration("duration", entry.Duration),
		)
		m.deps.Reporter.Report(SeverityInfo, message)
	default:
		entry.Outcome = history.OutcomeNoTarget
		logger.Debug("command matched nothing")
	}
	m.journal(ctx, s, entry)
}

// invoke runs the handler, turning a panic into an error carrying the stack.
func (m *Manager) invoke(ctx context.Context, verb, argument string) (message string, err error) {
	defer func() {
		if r := recover(); r != nil {
			message = ""
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return m.deps.Handler.Handle(ctx, verb, argument)
}
