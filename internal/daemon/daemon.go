package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"piperun/internal/api"
	"piperun/internal/command"
	"piperun/internal/config"
	"piperun/internal/history"
	"piperun/internal/host"
	"piperun/internal/logging"
	"piperun/internal/notifications"
	"piperun/internal/session"
	"piperun/internal/workspace"
)

const shutdownTimeout = 5 * time.Second

var (
	// ErrNotRunning is returned by session operations before Start.
	ErrNotRunning = errors.New("daemon not running")
	// ErrHistoryDisabled is returned by History when no journal is open.
	ErrHistoryDisabled = errors.New("command history disabled")
)

// Daemon coordinates the host loop, the command channel session, and
// enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *history.Store
	svc      notifications.Service
	notifier *host.Notifier

	prefs      *host.Preferences
	reports    *host.Reports
	panel      *host.Panel
	workspace  *workspace.Workspace
	dispatcher *command.Dispatcher
	wsOpts     []workspace.Option
	api        *apiServer

	shutdownTimeout time.Duration

	lockPath string
	lock     *flock.Flock

	mu         sync.Mutex
	running    atomic.Bool
	loop       *host.Loop
	manager    *session.Manager
	runtimeDir string
	cancel     context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Session      session.Snapshot
	PipeTemplate string
	RuntimeDir   string
	Reports      []host.Report
	Scripts      []workspace.Script
	Addons       []workspace.Addon
	Verbs        []string
	HistoryPath  string
	LockFilePath string
	LogPath      string
}

// API converts the status into its wire representation.
func (s Status) API() api.DaemonStatus {
	return api.DaemonStatus{
		Running:      s.Running,
		PID:          s.PID,
		Session:      api.FromSnapshot(s.Session),
		PipeTemplate: s.PipeTemplate,
		RuntimeDir:   s.RuntimeDir,
		Reports:      api.FromReports(s.Reports),
		Scripts:      api.FromScripts(s.Scripts),
		Addons:       api.FromAddons(s.Addons),
		Verbs:        s.Verbs,
		HistoryPath:  s.HistoryPath,
		LockPath:     s.LockFilePath,
		LogPath:      s.LogPath,
	}
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithWorkspaceOptions passes opts through to workspace.New.
func WithWorkspaceOptions(opts ...workspace.Option) Option {
	return func(d *Daemon) {
		d.wsOpts = append(d.wsOpts, opts...)
	}
}

// WithShutdownTimeout bounds how long Stop waits for the session to be torn
// down on the host loop.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(d *Daemon) {
		if timeout > 0 {
			d.shutdownTimeout = timeout
		}
	}
}

// New constructs a daemon with initialized dependencies. store may be nil
// when history is disabled.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, svc notifications.Service, opts ...Option) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if svc == nil {
		svc = notifications.NewNoop()
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		svc:      svc,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),

		shutdownTimeout: shutdownTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.notifier = host.NewNotifier(svc, logger)
	d.prefs = host.NewPreferences(cfg.Pipe.Path)
	d.reports = host.NewReports(logger, d.notifier, 0)
	d.panel = host.NewPanel(logger, d.notifier)

	ws, err := workspace.New(cfg, append([]workspace.Option{workspace.WithLogger(logger)}, d.wsOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("load workspace: %w", err)
	}
	d.workspace = ws
	d.dispatcher = command.NewDispatcher()
	if err := workspace.Register(d.dispatcher, ws); err != nil {
		return nil, fmt.Errorf("register verbs: %w", err)
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, creates the runtime directory, and starts
// the host loop. A session is started too when autostart is configured.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another piperun daemon instance is already running")
	}

	runtimeDir, err := os.MkdirTemp("", "piperun-")
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("create runtime directory: %w", err)
	}

	loop := host.NewLoop(d.logger)
	deps := session.Dependencies{
		Scheduler:      loop,
		Reporter:       d.reports,
		Preferences:    d.prefs,
		Handler:        d.dispatcher,
		Redrawer:       d.panel,
		Logger:         d.logger,
		TemplateVars:   config.TemplateVars{Tmp: runtimeDir},
		TickInterval:   d.cfg.TickInterval(),
		ListenInterval: d.cfg.ListenInterval(),
	}
	if d.store != nil {
		deps.Journal = d.store
	}
	manager, err := session.New(deps)
	if err != nil {
		_ = os.RemoveAll(runtimeDir)
		_ = d.lock.Unlock()
		return fmt.Errorf("create session manager: %w", err)
	}
	d.panel.Bind(manager.Snapshot)

	loopCtx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := loop.Run(loopCtx); err != nil {
			d.logger.Error("host loop exited", logging.Error(err))
		}
	}()

	d.loop = loop
	d.manager = manager
	d.runtimeDir = runtimeDir
	d.cancel = cancel
	d.running.Store(true)

	d.pruneHistory(ctx)
	if err := d.api.start(); err != nil {
		logging.WarnWithContext(d.logger, "http api unavailable", "api_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api.bind in the config"),
			logging.String(logging.FieldImpact, "status and control remain available over the socket"),
		)
	}
	d.logger.Info("piperun daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("runtime_dir", runtimeDir),
	)

	if d.cfg.Session.Autostart {
		if err := d.startSessionLocked(ctx, ""); err != nil {
			logging.WarnWithContext(d.logger, "autostart failed", "session_autostart_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run `piperun start` once the pipe path is usable"),
				logging.String(logging.FieldImpact, "no command channel until started manually"),
			)
		}
	}
	return nil
}

// Stop shuts down any session, stops the loop, and releases the daemon lock.
func (d *Daemon) Stop() {
	// In-flight API handlers may need d.mu, so drain them first.
	d.api.stop()

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.shutdownTimeout)
	defer cancel()
	err := d.loop.Do(ctx, d.manager.Shutdown)

	// Cancelling the loop context aborts a long run_script, so the loop
	// goroutine exits and no tick can run alongside the fallback below.
	d.cancel()
	<-d.loop.Done()
	if errors.Is(err, host.ErrLoopClosed) || errors.Is(err, context.DeadlineExceeded) {
		fallbackCtx, fallbackCancel := context.WithTimeout(context.Background(), d.shutdownTimeout)
		err = d.manager.Shutdown(fallbackCtx)
		fallbackCancel()
	}
	if err != nil {
		logging.WarnWithContext(d.logger, "session shutdown incomplete", "session_shutdown_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the pipe may be left behind"),
		)
	}
	d.notifier.Wait()

	if err := os.RemoveAll(d.runtimeDir); err != nil {
		d.logger.Warn("failed to remove runtime directory",
			logging.String("runtime_dir", d.runtimeDir),
			logging.Error(err),
		)
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}

	d.loop = nil
	d.manager = nil
	d.runtimeDir = ""
	d.cancel = nil
	d.running.Store(false)
	d.logger.Info("piperun daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// APIAddr returns the address the HTTP API listens on, or "" when it is
// disabled or not started.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// StartSession starts a command channel session. A non-empty template
// replaces the pipe path preference first.
func (d *Daemon) StartSession(ctx context.Context, template string) (session.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return session.Snapshot{}, ErrNotRunning
	}
	if err := d.startSessionLocked(ctx, template); err != nil {
		return d.manager.Snapshot(), err
	}
	return d.manager.Snapshot(), nil
}

func (d *Daemon) startSessionLocked(ctx context.Context, template string) error {
	manager := d.manager
	return d.loop.Do(ctx, func(loopCtx context.Context) error {
		if template = strings.TrimSpace(template); template != "" {
			d.prefs.SetPipePathTemplate(template)
		}
		_, err := manager.Start(loopCtx)
		return err
	})
}

// StopSession asks the running session to stop on its next tick. It
// returns false when a stop is already pending.
func (d *Daemon) StopSession(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return false, ErrNotRunning
	}
	manager := d.manager
	var requested bool
	err := d.loop.Do(ctx, func(context.Context) error {
		if !manager.IsRunning() {
			return session.ErrNotRunning
		}
		requested = manager.RequestStop()
		return nil
	})
	return requested, err
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		PID:          os.Getpid(),
		PipeTemplate: d.prefs.PipePathTemplate(),
		Reports:      d.reports.Recent(),
		Verbs:        d.dispatcher.Verbs(),
		LockFilePath: d.lockPath,
		LogPath:      d.cfg.LogPath(),
	}
	if d.store != nil {
		status.HistoryPath = d.store.Path()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return status
	}
	status.Running = true
	status.RuntimeDir = d.runtimeDir
	manager := d.manager
	err := d.loop.Do(ctx, func(context.Context) error {
		status.Session = manager.Snapshot()
		status.Scripts = d.workspace.Scripts()
		status.Addons = d.workspace.Addons()
		return nil
	})
	if err != nil {
		d.logger.Debug("status collected off loop", logging.Error(err))
		status.Session = manager.Snapshot()
	}
	return status
}

// History returns journaled command lines, newest first.
func (d *Daemon) History(ctx context.Context, filter history.Filter) ([]history.Entry, error) {
	if d.store == nil {
		return nil, ErrHistoryDisabled
	}
	return d.store.Recent(ctx, filter)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.svc.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func (d *Daemon) pruneHistory(ctx context.Context) {
	if d.store == nil || d.cfg.History.RetentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -d.cfg.History.RetentionDays)
	removed, err := d.store.Prune(ctx, cutoff)
	if err != nil {
		logging.WarnWithContext(d.logger, "history prune failed", "history_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "old command history is kept"),
		)
		return
	}
	if removed > 0 {
		d.logger.Info("pruned command history",
			logging.String(logging.FieldEventType, "history_pruned"),
			logging.Int64("removed", removed),
			logging.Int("retention_days", d.cfg.History.RetentionDays),
		)
	}
}
