package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"piperun/internal/cmdqueue"
	"piperun/internal/config"
	"piperun/internal/history"
	"piperun/internal/session"
)

type fakeRegistration struct {
	mu        sync.Mutex
	cancelled int
}

func (r *fakeRegistration) Cancel() {
	r.mu.Lock()
	r.cancelled++
	r.mu.Unlock()
}

func (r *fakeRegistration) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

type fakeScheduler struct {
	err      error
	interval time.Duration
	fn       session.TickFunc
	regs     []*fakeRegistration
}

func (s *fakeScheduler) Register(interval time.Duration, fn session.TickFunc) (session.Registration, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.interval = interval
	s.fn = fn
	reg := &fakeRegistration{}
	s.regs = append(s.regs, reg)
	return reg, nil
}

func (s *fakeScheduler) tick(t *testing.T) session.Status {
	t.Helper()
	if s.fn == nil {
		t.Fatal("no tick registered")
	}
	return s.fn(context.Background())
}

type report struct {
	severity session.Severity
	message  string
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []report
}

func (r *fakeReporter) Report(severity session.Severity, message string) {
	r.mu.Lock()
	r.reports = append(r.reports, report{severity: severity, message: message})
	r.mu.Unlock()
}

func (r *fakeReporter) all() []report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]report(nil), r.reports...)
}

type fakePrefs struct {
	mu       sync.Mutex
	template string
}

func (p *fakePrefs) PipePathTemplate() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.template
}

func (p *fakePrefs) set(template string) {
	p.mu.Lock()
	p.template = template
	p.mu.Unlock()
}

type fakeRedrawer struct {
	mu    sync.Mutex
	count int
}

func (r *fakeRedrawer) RequestRedraw() {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

func (r *fakeRedrawer) redraws() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

type call struct {
	verb     string
	argument string
}

type fakeHandler struct {
	mu    sync.Mutex
	calls []call
	fn    func(verb, argument string) (string, error)
}

func (h *fakeHandler) Handle(_ context.Context, verb, argument string) (string, error) {
	h.mu.Lock()
	h.calls = append(h.calls, call{verb: verb, argument: argument})
	fn := h.fn
	h.mu.Unlock()
	if fn == nil {
		return "handled " + argument, nil
	}
	return fn(verb, argument)
}

func (h *fakeHandler) recorded() []call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]call(nil), h.calls...)
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (j *fakeJournal) Record(_ context.Context, entry history.Entry) error {
	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
	return nil
}

func (j *fakeJournal) outcomes() []history.Outcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]history.Outcome, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e.Outcome)
	}
	return out
}

type fakeEndpoint struct {
	path   string
	closed int
}

func (e *fakeEndpoint) Read([]byte) (int, error) { return 0, nil }
func (e *fakeEndpoint) Close() error             { e.closed++; return nil }
func (e *fakeEndpoint) Path() string             { return e.path }

type fakeWorker struct {
	mu       sync.Mutex
	queue    *cmdqueue.Queue
	endpoint session.Endpoint
	alive    bool
	err      error
	startErr error
	stops    int
}

func (w *fakeWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.startErr != nil {
		return w.startErr
	}
	w.alive = true
	return nil
}

func (w *fakeWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stops++
	w.alive = false
	return w.endpoint.Close()
}

func (w *fakeWorker) Alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.alive
}

func (w *fakeWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *fakeWorker) kill(err error) {
	w.mu.Lock()
	w.alive = false
	w.err = err
	w.mu.Unlock()
}

func (w *fakeWorker) stopCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stops
}

// harness bundles a manager with fakes for every collaborator.
type harness struct {
	manager   *session.Manager
	scheduler *fakeScheduler
	reporter  *fakeReporter
	prefs     *fakePrefs
	redrawer  *fakeRedrawer
	handler   *fakeHandler
	journal   *fakeJournal

	openErr   error
	opened    []string
	endpoints []*fakeEndpoint
	workers   []*fakeWorker
	startErr  error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		scheduler: &fakeScheduler{},
		reporter:  &fakeReporter{},
		prefs:     &fakePrefs{template: "${tmp}/script_run_pipe"},
		redrawer:  &fakeRedrawer{},
		handler:   &fakeHandler{},
		journal:   &fakeJournal{},
	}
	ids := 0
	m, err := session.New(session.Dependencies{
		Scheduler:    h.scheduler,
		Reporter:     h.reporter,
		Preferences:  h.prefs,
		Handler:      h.handler,
		Redrawer:     h.redrawer,
		Journal:      h.journal,
		TemplateVars: config.TemplateVars{Tmp: "/var/x", Home: "/home/u"},
		TickInterval: 100 * time.Millisecond,
		OpenEndpoint: func(path string) (session.Endpoint, error) {
			h.opened = append(h.opened, path)
			if h.openErr != nil {
				return nil, h.openErr
			}
			ep := &fakeEndpoint{path: path}
			h.endpoints = append(h.endpoints, ep)
			return ep, nil
		},
		NewWorker: func(ep session.Endpoint, q *cmdqueue.Queue) session.Worker {
			w := &fakeWorker{queue: q, endpoint: ep, startErr: h.startErr}
			h.workers = append(h.workers, w)
			return w
		},
		NewID: func() string {
			ids++
			return "session-" + string(rune('0'+ids))
		},
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	h.manager = m
	return h
}

func (h *harness) start(t *testing.T) *fakeWorker {
	t.Helper()
	status, err := h.manager.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if status != session.RunningModal {
		t.Fatalf("Start status = %s, want %s", status, session.RunningModal)
	}
	return h.workers[len(h.workers)-1]
}

var errBoom = errors.New("boom")
