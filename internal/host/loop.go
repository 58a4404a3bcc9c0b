package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"piperun/internal/logging"
	"piperun/internal/session"
)

// ErrLoopClosed is returned once the loop has stopped.
var ErrLoopClosed = errors.New("host loop closed")

const callBuffer = 64

// Loop runs posted calls and timer callbacks on one goroutine.
type Loop struct {
	logger *slog.Logger
	calls  chan func(context.Context)
	done   chan struct{}

	startOnce sync.Once
	closeOnce sync.Once

	mu     sync.Mutex
	timers map[uint64]*timer
	nextID uint64
}

// NewLoop builds a loop. Nothing runs until Run.
func NewLoop(logger *slog.Logger) *Loop {
	return &Loop{
		logger: logging.NewComponentLogger(logger, "host-loop"),
		calls:  make(chan func(context.Context), callBuffer),
		done:   make(chan struct{}),
		timers: make(map[uint64]*timer),
	}
}

// Run executes calls until ctx is cancelled. It returns ErrLoopClosed if
// the loop already ran.
func (l *Loop) Run(ctx context.Context) error {
	started := false
	l.startOnce.Do(func() { started = true })
	if !started {
		return ErrLoopClosed
	}
	defer l.close()

	l.logger.Debug("host loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("host loop stopped")
			return nil
		case fn := <-l.calls:
			fn(ctx)
		}
	}
}

func (l *Loop) close() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.mu.Lock()
		timers := make([]*timer, 0, len(l.timers))
		for _, t := range l.timers {
			timers = append(timers, t)
		}
		l.mu.Unlock()
		for _, t := range timers {
			t.Cancel()
		}
	})
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Do runs fn on the loop and waits for its result. It must not be called
// from the loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func(context.Context) error) error {
	result := make(chan error, 1)
	call := func(loopCtx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("host call panicked: %v", r)
			}
		}()
		result <- fn(loopCtx)
	}

	select {
	case l.calls <- call:
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-l.done:
		// The call may have run just before close.
		select {
		case err := <-result:
			return err
		default:
			return ErrLoopClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register calls fn on the loop every interval until fn returns a terminal
// status or the registration is cancelled. Ticks that fire while a previous
// one is still queued are coalesced.
func (l *Loop) Register(interval time.Duration, fn session.TickFunc) (session.Registration, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("timer interval must be positive, got %s", interval)
	}
	if fn == nil {
		return nil, errors.New("timer callback is nil")
	}
	select {
	case <-l.done:
		return nil, ErrLoopClosed
	default:
	}

	l.mu.Lock()
	l.nextID++
	t := &timer{
		id:   l.nextID,
		loop: l,
		fn:   fn,
		stop: make(chan struct{}),
	}
	l.timers[t.id] = t
	l.mu.Unlock()

	go t.run(interval)
	return t, nil
}

// Timers returns the number of live registrations.
func (l *Loop) Timers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

type timer struct {
	id      uint64
	loop    *Loop
	fn      session.TickFunc
	stop    chan struct{}
	once    sync.Once
	pending atomic.Bool
	dead    atomic.Bool
}

func (t *timer) Cancel() {
	t.once.Do(func() {
		t.dead.Store(true)
		close(t.stop)
		t.loop.mu.Lock()
		delete(t.loop.timers, t.id)
		t.loop.mu.Unlock()
	})
}

func (t *timer) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-t.loop.done:
			return
		case <-ticker.C:
		}
		if !t.pending.CompareAndSwap(false, true) {
			continue
		}
		select {
		case t.loop.calls <- t.fire:
		case <-t.stop:
			return
		case <-t.loop.done:
			return
		}
	}
}

func (t *timer) fire(ctx context.Context) {
	t.pending.Store(false)
	if t.dead.Load() {
		return
	}
	if status := t.fn(ctx); status.Terminal() {
		t.Cancel()
	}
}
