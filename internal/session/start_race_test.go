package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"piperun/internal/cmdqueue"
	"piperun/internal/config"
	"piperun/internal/session"
)

type lockedScheduler struct {
	mu    sync.Mutex
	count int
}

func (s *lockedScheduler) Register(time.Duration, session.TickFunc) (session.Registration, error) {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return &fakeRegistration{}, nil
}

func TestConcurrentStartOpensOneSession(t *testing.T) {
	var (
		mu      sync.Mutex
		opened  int
		workers []*fakeWorker
	)
	scheduler := &lockedScheduler{}
	m, err := session.New(session.Dependencies{
		Scheduler:    scheduler,
		Reporter:     &fakeReporter{},
		Preferences:  &fakePrefs{template: "${tmp}/script_run_pipe"},
		Handler:      &fakeHandler{},
		TemplateVars: config.TemplateVars{Tmp: "/var/x", Home: "/home/u"},
		OpenEndpoint: func(path string) (session.Endpoint, error) {
			time.Sleep(50 * time.Millisecond)
			mu.Lock()
			opened++
			mu.Unlock()
			return &fakeEndpoint{path: path}, nil
		},
		NewWorker: func(ep session.Endpoint, q *cmdqueue.Queue) session.Worker {
			w := &fakeWorker{queue: q, endpoint: ep}
			mu.Lock()
			workers = append(workers, w)
			mu.Unlock()
			return w
		},
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}

	const callers = 4
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Start(context.Background())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, session.ErrAlreadyRunning):
			t.Fatalf("Start err = %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("successful starts = %d, want 1", succeeded)
	}
	mu.Lock()
	if opened != 1 {
		t.Fatalf("endpoints opened = %d, want 1", opened)
	}
	mu.Unlock()
	if scheduler.count != 1 {
		t.Fatalf("ticks registered = %d, want 1", scheduler.count)
	}

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	for _, w := range workers {
		if w.Alive() {
			t.Fatal("listener left alive after Shutdown")
		}
	}
}

func TestStartAfterFailedOpenCanRetry(t *testing.T) {
	h := newHarness(t)
	h.openErr = errBoom
	if _, err := h.manager.Start(context.Background()); !errors.Is(err, session.ErrStartupFailure) {
		t.Fatalf("Start err = %v", err)
	}
	h.openErr = nil
	h.start(t)
}
