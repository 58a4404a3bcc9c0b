package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"piperun/internal/cmdqueue"
	"piperun/internal/config"
	"piperun/internal/fifo"
	"piperun/internal/history"
	"piperun/internal/listener"
	"piperun/internal/logging"
)

const defaultInterval = 100 * time.Millisecond

// Dependencies wires a Manager to its host. Scheduler, Reporter,
// Preferences, and Handler are required.
type Dependencies struct {
	Scheduler   Scheduler
	Reporter    Reporter
	Preferences Preferences
	Handler     Handler
	Redrawer    Redrawer
	Journal     Journal
	Logger      *slog.Logger

	// TemplateVars resolves `${tmp}` and `${home}` in the path template.
	TemplateVars config.TemplateVars

	TickInterval   time.Duration
	ListenInterval time.Duration

	OpenEndpoint EndpointOpener
	NewWorker    WorkerFactory
	Now          func() time.Time
	NewID        func() string
}

// Snapshot describes the manager for status output.
type Snapshot struct {
	Running       bool
	StopRequested bool
	Label         string
	SessionID     string
	PipePath      string
	StartedAt     time.Time
	Processed     int
	Failed        int
	Pending       int
	ListenerAlive bool
	LastError     string
}

type activeSession struct {
	id        string
	path      string
	startedAt time.Time
	queue     *cmdqueue.Queue
	worker    Worker
	reg       Registration
	logger    *slog.Logger
	processed int
	failed    int
}

// Manager runs at most one channel session at a time.
type Manager struct {
	deps   Dependencies
	logger *slog.Logger
	state  State

	mu      sync.Mutex
	active  *activeSession
	lastErr error
}

// New validates deps and returns an idle manager.
func New(deps Dependencies) (*Manager, error) {
	switch {
	case deps.Scheduler == nil:
		return nil, errors.New("session: scheduler is required")
	case deps.Reporter == nil:
		return nil, errors.New("session: reporter is required")
	case deps.Preferences == nil:
		return nil, errors.New("session: preferences are required")
	case deps.Handler == nil:
		return nil, errors.New("session: handler is required")
	}
	if deps.TickInterval <= 0 {
		deps.TickInterval = defaultInterval
	}
	if deps.ListenInterval <= 0 {
		deps.ListenInterval = defaultInterval
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.TemplateVars.Home == "" {
		if home, err := os.UserHomeDir(); err == nil {
			deps.TemplateVars.Home = home
		}
	}
	if deps.TemplateVars.Tmp == "" {
		deps.TemplateVars.Tmp = os.TempDir()
	}

	m := &Manager{
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "session"),
	}
	if m.deps.OpenEndpoint == nil {
		m.deps.OpenEndpoint = openFIFO
	}
	if m.deps.NewWorker == nil {
		m.deps.NewWorker = m.newListener
	}
	return m, nil
}

func openFIFO(path string) (Endpoint, error) {
	ep, err := fifo.Open(path)
	if err != nil {
		return nil, err
	}
	return ep, nil
}

func (m *Manager) newListener(ep Endpoint, q *cmdqueue.Queue) Worker {
	return listener.New(ep, q,
		listener.WithInterval(m.deps.ListenInterval),
		listener.WithLogger(m.deps.Logger),
	)
}

// IsRunning reports whether a session is active.
func (m *Manager) IsRunning() bool {
	return m.state.IsRunning()
}

// IsStopRequested reports whether the active session is waiting to stop.
func (m *Manager) IsStopRequested() bool {
	return m.state.IsStopRequested()
}

// Label returns the start/stop control label.
func (m *Manager) Label() string {
	return m.state.Label()
}

// Start opens the channel, starts the listener, and registers the tick. It
// is rejected while a session is running or another Start is in progress.
func (m *Manager) Start(ctx context.Context) (Status, error) {
	if !m.state.tryStart() {
		return Cancelled, ErrAlreadyRunning
	}

	path := config.ExpandTemplate(m.deps.Preferences.PipePathTemplate(), m.deps.TemplateVars)
	ep, err := m.deps.OpenEndpoint(path)
	if err != nil {
		return m.failStart(path, "open channel", err, nil)
	}

	id := m.deps.NewID()
	s := &activeSession{
		id:        id,
		path:      path,
		startedAt: m.deps.Now(),
		queue:     cmdqueue.New(),
		logger:    logging.WithSession(m.logger, id),
	}
	s.worker = m.deps.NewWorker(ep, s.queue)
	if err := s.worker.Start(); err != nil {
		return m.failStart(path, "start listener", err, s.worker)
	}

	m.mu.Lock()
	m.active = s
	m.lastErr = nil
	m.mu.Unlock()
	if !m.state.markRunning() {
		m.mu.Lock()
		m.active = nil
		m.mu.Unlock()
		return m.failStart(path, "mark running", ErrAlreadyRunning, s.worker)
	}

	reg, err := m.deps.Scheduler.Register(m.deps.TickInterval, m.Tick)
	if err != nil {
		m.mu.Lock()
		m.active = nil
		m.mu.Unlock()
		m.state.clear()
		return m.failStart(path, "register tick", err, s.worker)
	}
	m.mu.Lock()
	s.reg = reg
	m.mu.Unlock()

	s.logger.Info("command channel session started",
		logging.String(logging.FieldEventType, "session_started"),
		logging.String(logging.FieldPipePath, path),
		logging.Duration("tick_interval", m.deps.TickInterval),
	)
	m.redraw()
	return RunningModal, nil
}

func (m *Manager) failStart(path, operation string, cause error, worker Worker) (Status, error) {
	if worker != nil {
		if stopErr := worker.Stop(); stopErr != nil {
			cause = errors.Join(cause, stopErr)
		}
	}
	err := Wrap(ErrStartupFailure, operation, path, cause)
	m.state.abortStart()

	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()

	logging.ErrorWithContext(m.logger, "command channel session failed to start", "session_start_failed",
		logging.String(logging.FieldPipePath, path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check that the pipe directory exists and is writable"),
	)
	m.deps.Reporter.Report(SeverityError, MessageStartupFailed)
	return Cancelled, err
}

// RequestStop asks the running session to stop on its next tick. It returns
// false when nothing is running or a stop is already pending.
func (m *Manager) RequestStop() bool {
	if !m.state.requestStop() {
		return false
	}
	m.logger.Info("command channel stop requested",
		logging.String(logging.FieldEventType, "session_stop_requested"),
	)
	m.redraw()
	return true
}

// Toggle is the operator entry point: with stop set it requests a stop,
// otherwise it starts a session.
func (m *Manager) Toggle(ctx context.Context, stop bool) Status {
	if stop {
		if m.RequestStop() {
			return Finished
		}
		return Cancelled
	}
	status, _ := m.Start(ctx)
	return status
}

// Shutdown tears down any session without dispatching queued lines. It is
// safe to call when idle.
func (m *Manager) Shutdown(ctx context.Context) error {
	s := m.detach()
	if s == nil {
		m.state.clear()
		return nil
	}

	stopErr := s.worker.Stop()
	m.dropQueued(ctx, s, "session shut down")
	m.state.clear()

	if stopErr != nil {
		logging.WarnWithContext(s.logger, "failed to release command channel", "session_shutdown_cleanup_failed",
			logging.String(logging.FieldPipePath, s.path),
			logging.Error(stopErr),
			logging.String(logging.FieldImpact, "the pipe may be left behind"),
		)
	}
	s.logger.Info("command channel session shut down",
		logging.String(logging.FieldEventType, "session_shutdown"),
		logging.Int("processed", s.processed),
	)
	m.redraw()
	return stopErr
}

// Snapshot returns the current session details.
func (m *Manager) Snapshot() Snapshot {
	snap := Snapshot{
		Running:       m.state.IsRunning(),
		StopRequested: m.state.IsStopRequested(),
		Label:         m.state.Label(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastErr != nil {
		snap.LastError = m.lastErr.Error()
	}
	if s := m.active; s != nil {
		snap.SessionID = s.id
		snap.PipePath = s.path
		snap.StartedAt = s.startedAt
		snap.Processed = s.processed
		snap.Failed = s.failed
		snap.Pending = s.queue.Len()
		snap.ListenerAlive = s.worker.Alive()
	}
	return snap
}

// detach clears the active session and cancels its tick registration.
func (m *Manager) detach() *activeSession {
	m.mu.Lock()
	s := m.active
	m.active = nil
	m.mu.Unlock()
	if s != nil && s.reg != nil {
		s.reg.Cancel()
	}
	return s
}

func (m *Manager) current() *activeSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Manager) redraw() {
	if m.deps.Redrawer != nil {
		m.deps.Redrawer.RequestRedraw()
	}
}

func (m *Manager) journal(ctx context.Context, s *activeSession, entry history.Entry) {
	if m.deps.Journal == nil {
		return
	}
	entry.SessionID = s.id
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = m.deps.Now()
	}
	if err := m.deps.Journal.Record(ctx, entry); err != nil {
		logging.WarnWithContext(s.logger, "failed to journal command", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "command missing from history"),
		)
	}
}

func (m *Manager) dropQueued(ctx context.Context, s *activeSession, reason string) {
	dropped := s.queue.Drain()
	if len(dropped) == 0 {
		return
	}
	logging.WarnWithContext(s.logger, "discarding queued commands", "commands_dropped",
		logging.Int("count", len(dropped)),
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, fmt.Sprintf("%d queued commands were not executed", len(dropped))),
	)
	for _, line := range dropped {
		m.journal(ctx, s, history.Entry{Line: line, Outcome: history.OutcomeDropped, Message: reason})
	}
}
