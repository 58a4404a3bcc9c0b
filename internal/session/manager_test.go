package session_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"piperun/internal/history"
	"piperun/internal/session"
)

func TestTickDispatchesQueuedLinesInOrder(t *testing.T) {
	h := newHarness(t)
	w := h.start(t)

	var want []call
	for i := 0; i < 5; i++ {
		arg := fmt.Sprintf("/tmp/script%d.py", i)
		w.queue.Push("run_script " + arg)
		want = append(want, call{verb: "run_script", argument: arg})
	}

	if status := h.scheduler.tick(t); status != session.PassThrough {
		t.Fatalf("tick status = %s, want %s", status, session.PassThrough)
	}

	got := h.handler.recorded()
	if len(got) != len(want) {
		t.Fatalf("dispatched %d commands, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	// Nothing new queued: a second tick dispatches nothing.
	h.scheduler.tick(t)
	if n := len(h.handler.recorded()); n != len(want) {
		t.Fatalf("second tick dispatched again: %d calls", n)
	}

	reports := h.reporter.all()
	if len(reports) != len(want) {
		t.Fatalf("got %d reports, want %d", len(reports), len(want))
	}
	for _, r := range reports {
		if r.severity != session.SeverityInfo {
			t.Fatalf("unexpected report %+v", r)
		}
	}
	if snap := h.manager.Snapshot(); snap.Processed != len(want) || snap.Pending != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestStartRegistersTickAndMarksRunning(t *testing.T) {
	h := newHarness(t)
	if h.manager.IsRunning() {
		t.Fatal("new manager should be idle")
	}
	before := h.redrawer.redraws()
	h.start(t)

	if !h.manager.IsRunning() || h.manager.IsStopRequested() {
		t.Fatal("expected running without stop request")
	}
	if h.scheduler.interval.Milliseconds() != 100 {
		t.Fatalf("tick interval = %v", h.scheduler.interval)
	}
	if h.redrawer.redraws() <= before {
		t.Fatal("Start should request a redraw")
	}
	if label := h.manager.Label(); label != session.LabelStop {
		t.Fatalf("Label = %q, want %q", label, session.LabelStop)
	}
	snap := h.manager.Snapshot()
	if snap.SessionID == "" || snap.PipePath != "/var/x/script_run_pipe" || !snap.ListenerAlive {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestStartTwiceIsRejected(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	status, err := h.manager.Start(context.Background())
	if !errors.Is(err, session.ErrAlreadyRunning) {
		t.Fatalf("second Start err = %v, want ErrAlreadyRunning", err)
	}
	if status != session.Cancelled {
		t.Fatalf("second Start status = %s", status)
	}
	if !h.manager.IsRunning() || h.manager.IsStopRequested() {
		t.Fatal("state changed by rejected start")
	}
	if len(h.opened) != 1 || len(h.workers) != 1 {
		t.Fatalf("rejected start opened %d endpoints, built %d workers", len(h.opened), len(h.workers))
	}
}

func TestRequestStopWhenIdle(t *testing.T) {
	h := newHarness(t)
	before := h.redrawer.redraws()
	if h.manager.RequestStop() {
		t.Fatal("RequestStop on idle manager returned true")
	}
	if h.manager.IsRunning() || h.manager.IsStopRequested() {
		t.Fatal("idle RequestStop changed state")
	}
	if h.redrawer.redraws() != before {
		t.Fatal("idle RequestStop requested a redraw")
	}
}

func TestRequestStopTwiceRunsOneStopSequence(t *testing.T) {
	h := newHarness(t)
	w := h.start(t)

	if !h.manager.RequestStop() {
		t.Fatal("first RequestStop returned false")
	}
	if h.manager.RequestStop() {
		t.Fatal("second RequestStop returned true")
	}
	if !h.manager.IsStopRequested() || h.manager.Label() != session.LabelStopping {
		t.Fatal("expected stop to be pending")
	}

	if status := h.scheduler.tick(t); status != session.Finished {
		t.Fatalf("tick status = %s, want %s", status, session.Finished)
	}
	if w.stopCount() != 1 {
		t.Fatalf("listener stopped %d times, want 1", w.stopCount())
	}
	if h.endpoints[0].closed != 1 {
		t.Fatalf("endpoint closed %d times, want 1", h.endpoints[0].closed)
	}
	if h.scheduler.regs[0].count() != 1 {
		t.Fatal("tick registration not cancelled")
	}
	if h.manager.IsRunning() || h.manager.IsStopRequested() {
		t.Fatal("expected idle after stop")
	}
	if h.manager.Label() != session.LabelStart {
		t.Fatalf("Label = %q after stop", h.manager.Label())
	}

	// A stale tick after the session ended is a no-op.
	if status := h.scheduler.tick(t); status != session.Cancelled {
		t.Fatalf("stale tick status = %s", status)
	}
	if w.stopCount() != 1 {
		t.Fatal("stale tick stopped the listener again")
	}
}

func TestCleanStopDispatchesQueuedLines(t *testing.T) {
	h := newHarness(t)
	w := h.start(t)

	w.queue.Push("reload_script /a.py")
	w.queue.Push("reload_script /b.py")
	h.manager.RequestStop()

	if status := h.scheduler.tick(t); status != session.Finished {
		t.Fatalf("tick status = %s", status)
	}
	calls := h.handler.recorded()
	if len(calls) != 2 || calls[0].argument != "/a.py" || calls[1].argument != "/b.py" {
		t.Fatalf("calls = %+v", calls)
	}
	if w.queue.HasNext() {
		t.Fatal("queue not drained on stop")
	}
}

func TestListenerDeathStopsSessionAndReportsError(t *testing.T) {
	h := newHarness(t)
	w := h.start(t)

	w.queue.Push("run_script /queued.py")
	w.kill(errBoom)

	if status := h.scheduler.tick(t); status != session.Cancelled {
		t.Fatalf("tick status = %s, want %s", status, session.Cancelled)
	}
	if h.manager.IsRunning() {
		t.Fatal("session still running after listener death")
	}
	if calls := h.handler.recorded(); len(calls) != 1 || calls[0].argument != "/queued.py" {
		t.Fatalf("lines queued before the failure were not dispatched: %+v", calls)
	}
	if w.stopCount() != 1 || h.endpoints[0].closed != 1 {
		t.Fatal("endpoint cleanup not attempted after listener death")
	}
	if h.scheduler.regs[0].count() != 1 {
		t.Fatal("tick registration not cancelled")
	}

	reports := h.reporter.all()
	if len(reports) != 2 || reports[1].severity != session.SeverityError || reports[1].message != session.MessageListenerDied {
		t.Fatalf("reports = %+v", reports)
	}

	outcomes := h.journal.outcomes()
	if len(outcomes) != 1 || outcomes[0] != history.OutcomeOK {
		t.Fatalf("journal outcomes = %v", outcomes)
	}

	snap := h.manager.Snapshot()
	if !strings.Contains(snap.LastError, "command listener died") || !strings.Contains(snap.LastError, "boom") {
		t.Fatalf("LastError = %q", snap.LastError)
	}

	// The manager can start a fresh session afterwards.
	h.start(t)
	if len(h.workers) != 2 {
		t.Fatalf("expected a second worker, got %d", len(h.workers))
	}
}

func TestSplitAndMalformedLines(t *testing.T) {
	h := newHarness(t)
	w := h.start(t)

	w.queue.Push("noSpaceHere")
	w.queue.Push("reload_script /tmp/foo.py")
	h.scheduler.tick(t)

	calls := h.handler.recorded()
	if len(calls) != 1 {
		t.Fatalf("calls = %+v", calls)
	}
	if calls[0].verb != "reload_script" || calls[0].argument != "/tmp/foo.py" {
		t.Fatalf("call = %+v", calls[0])
	}
	for _, r := range h.reporter.all() {
		if r.severity == session.SeverityError {
			t.Fatalf("malformed line produced an error report: %+v", r)
		}
	}
	outcomes := h.journal.outcomes()
	if len(outcomes) != 2 || outcomes[0] != history.OutcomeMalformed || outcomes[1] != history.OutcomeOK {
		t.Fatalf("journal outcomes = %v", outcomes)
	}
}

func TestHandlerFailureDoesNotBlockNextCommand(t *testing.T) {
	tests := []struct {
		name string
		fail func() (string, error)
		want string
	}{
		{name: "error", fail: func() (string, error) { return "", errBoom }, want: "boom"},
		{name: "panic", fail: func() (string, error) { panic("kaboom") }, want: "kaboom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.handler.fn = func(_ string, argument string) (string, error) {
				if argument == "/bad.py" {
					return tt.fail()
				}
				return "Ran good.py", nil
			}
			w := h.start(t)
			w.queue.Push("run_script /bad.py")
			w.queue.Push("run_script /good.py")

			if status := h.scheduler.tick(t); status != session.PassThrough {
				t.Fatalf("tick status = %s", status)
			}
			reports := h.reporter.all()
			if len(reports) != 2 {
				t.Fatalf("reports = %+v", reports)
			}
			if reports[0].severity != session.SeverityError || !strings.Contains(reports[0].message, tt.want) {
				t.Fatalf("first report = %+v", reports[0])
			}
			if !strings.Contains(reports[0].message, "/bad.py") {
				t.Fatalf("error report lacks the failing argument: %q", reports[0].message)
			}
			if reports[1] != (report{severity: session.SeverityInfo, message: "Ran good.py"}) {
				t.Fatalf("second report = %+v", reports[1])
			}
			if !h.manager.IsRunning() {
				t.Fatal("handler failure ended the session")
			}
			if snap := h.manager.Snapshot(); snap.Failed != 1 || snap.Processed != 2 {
				t.Fatalf("snapshot = %+v", snap)
			}
		})
	}
}

func TestNoTargetIsNotReported(t *testing.T) {
	h := newHarness(t)
	h.handler.fn = func(string, string) (string, error) { return "", nil }
	w := h.start(t)
	w.queue.Push("reload_addon missing")
	h.scheduler.tick(t)

	if reports := h.reporter.all(); len(reports) != 0 {
		t.Fatalf("reports = %+v", reports)
	}
	if outcomes := h.journal.outcomes(); len(outcomes) != 1 || outcomes[0] != history.OutcomeNoTarget {
		t.Fatalf("journal outcomes = %v", outcomes)
	}
}

func TestStartupFailureLeavesSessionIdle(t *testing.T) {
	h := newHarness(t)
	h.openErr = errors.New("permission denied")

	status, err := h.manager.Start(context.Background())
	if status != session.Cancelled {
		t.Fatalf("status = %s", status)
	}
	if !errors.Is(err, session.ErrStartupFailure) {
		t.Fatalf("err = %v, want ErrStartupFailure", err)
	}
	if h.manager.IsRunning() {
		t.Fatal("session running after startup failure")
	}
	if len(h.workers) != 0 || h.scheduler.fn != nil {
		t.Fatal("startup failure created a worker or registered a tick")
	}
	reports := h.reporter.all()
	if len(reports) != 1 || reports[0].severity != session.SeverityError || reports[0].message != session.MessageStartupFailed {
		t.Fatalf("reports = %+v", reports)
	}
}

func TestStartupFailureOnListenerOrSchedulerReleasesEndpoint(t *testing.T) {
	t.Run("listener", func(t *testing.T) {
		h := newHarness(t)
		h.startErr = errBoom
		if _, err := h.manager.Start(context.Background()); !errors.Is(err, session.ErrStartupFailure) {
			t.Fatalf("err = %v", err)
		}
		if h.endpoints[0].closed != 1 {
			t.Fatal("endpoint not released")
		}
		if h.manager.IsRunning() {
			t.Fatal("session running")
		}
	})
	t.Run("scheduler", func(t *testing.T) {
		h := newHarness(t)
		h.scheduler.err = errBoom
		if _, err := h.manager.Start(context.Background()); !errors.Is(err, session.ErrStartupFailure) {
			t.Fatalf("err = %v", err)
		}
		if h.workers[0].stopCount() != 1 || h.endpoints[0].closed != 1 {
			t.Fatal("listener not stopped")
		}
		if h.manager.IsRunning() {
			t.Fatal("session running")
		}
	})
}

func TestPathTemplateResolvedOnceAtStart(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	if len(h.opened) != 1 || h.opened[0] != "/var/x/script_run_pipe" {
		t.Fatalf("opened = %v", h.opened)
	}

	h.prefs.set("${home}/other_pipe")
	h.scheduler.tick(t)
	h.scheduler.tick(t)

	if len(h.opened) != 1 {
		t.Fatalf("path re-resolved during session: %v", h.opened)
	}
	if snap := h.manager.Snapshot(); snap.PipePath != "/var/x/script_run_pipe" {
		t.Fatalf("PipePath = %q", snap.PipePath)
	}
}

func TestShutdownReleasesRunningSession(t *testing.T) {
	h := newHarness(t)
	w := h.start(t)
	w.queue.Push("run_script /pending.py")

	if err := h.manager.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if h.manager.IsRunning() {
		t.Fatal("running after Shutdown")
	}
	if w.stopCount() != 1 || h.scheduler.regs[0].count() != 1 {
		t.Fatal("Shutdown did not stop the listener and cancel the tick")
	}
	if len(h.handler.recorded()) != 0 {
		t.Fatal("Shutdown dispatched queued commands")
	}
	if outcomes := h.journal.outcomes(); len(outcomes) != 1 || outcomes[0] != history.OutcomeDropped {
		t.Fatalf("journal outcomes = %v", outcomes)
	}
	if err := h.manager.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestToggle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if status := h.manager.Toggle(ctx, true); status != session.Cancelled {
		t.Fatalf("stop toggle on idle = %s", status)
	}
	if status := h.manager.Toggle(ctx, false); status != session.RunningModal {
		t.Fatalf("start toggle = %s", status)
	}
	if status := h.manager.Toggle(ctx, false); status != session.Cancelled {
		t.Fatalf("second start toggle = %s", status)
	}
	if status := h.manager.Toggle(ctx, true); status != session.Finished {
		t.Fatalf("stop toggle = %s", status)
	}
	if status := h.manager.Toggle(ctx, true); status != session.Cancelled {
		t.Fatalf("repeated stop toggle = %s", status)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	full := session.Dependencies{
		Scheduler:   &fakeScheduler{},
		Reporter:    &fakeReporter{},
		Preferences: &fakePrefs{},
		Handler:     &fakeHandler{},
	}
	if _, err := session.New(full); err != nil {
		t.Fatalf("New with all collaborators: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*session.Dependencies)
	}{
		{"scheduler", func(d *session.Dependencies) { d.Scheduler = nil }},
		{"reporter", func(d *session.Dependencies) { d.Reporter = nil }},
		{"preferences", func(d *session.Dependencies) { d.Preferences = nil }},
		{"handler", func(d *session.Dependencies) { d.Handler = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := full
			tt.mutate(&deps)
			if _, err := session.New(deps); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, want := range map[session.Status]bool{
		session.RunningModal: false,
		session.PassThrough:  false,
		session.Finished:     true,
		session.Cancelled:    true,
	} {
		if status.Terminal() != want {
			t.Fatalf("%s.Terminal() = %v", status, !want)
		}
	}
}

func TestWrap(t *testing.T) {
	err := session.Wrap(session.ErrHandlerFailure, "run_script", "/a.py", errBoom)
	if !errors.Is(err, session.ErrHandlerFailure) || !errors.Is(err, errBoom) {
		t.Fatalf("Wrap lost markers: %v", err)
	}
	if got := err.Error(); got != "command handler failure: run_script: /a.py: boom" {
		t.Fatalf("Wrap message = %q", got)
	}
	if got := session.Wrap(nil, "", "", nil).Error(); got != "command handler failure: session failure" {
		t.Fatalf("empty Wrap = %q", got)
	}
}
