// Package listener runs the background goroutine that moves command lines
// from the named pipe into the command queue.
package listener

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"piperun/internal/logging"
)

const (
	defaultInterval = 100 * time.Millisecond
	defaultReadSize = 4096
)

// ErrStopped is returned by Start after Stop has been called.
var ErrStopped = errors.New("listener stopped")

// Source is the non-blocking read side of the channel. Read returns 0, nil
// when nothing is pending.
type Source interface {
	Read(p []byte) (int, error)
	Close() error
}

// Sink receives complete command lines in arrival order.
type Sink interface {
	Push(line string)
}

// Option customizes a Listener.
type Option func(*Listener)

// WithInterval sets the pause between read passes.
func WithInterval(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		l.logger = logging.NewComponentLogger(logger, "listener")
	}
}

// WithReadSize sets the size of the read buffer.
func WithReadSize(n int) Option {
	return func(l *Listener) {
		if n > 0 {
			l.readSize = n
		}
	}
}

// Listener drains a Source into a Sink on its own goroutine.
type Listener struct {
	source   Source
	sink     Sink
	interval time.Duration
	readSize int
	logger   *slog.Logger

	quit chan struct{}
	done chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	alive   bool
	err     error

	stopOnce sync.Once
	stopErr  error
}

// New builds a listener. Nothing runs until Start.
func New(source Source, sink Sink, opts ...Option) *Listener {
	l := &Listener{
		source:   source,
		sink:     sink,
		interval: defaultInterval,
		readSize: defaultReadSize,
		logger:   logging.NewComponentLogger(nil, "listener"),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start launches the goroutine. Later calls are no-ops.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return ErrStopped
	}
	if l.started {
		return nil
	}
	l.started = true
	l.alive = true
	go l.run()
	return nil
}

// Stop signals the goroutine, waits for it to exit, then closes the source.
// It must not be called from the listener goroutine. Later calls return the
// first result.
func (l *Listener) Stop() error {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		started := l.started
		l.mu.Unlock()

		close(l.quit)
		if started {
			<-l.done
		}
		if err := l.source.Close(); err != nil {
			l.stopErr = fmt.Errorf("close channel endpoint: %w", err)
		}
	})
	return l.stopErr
}

// Alive reports whether the goroutine is running.
func (l *Listener) Alive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alive
}

// Err returns the failure that ended the goroutine, or nil.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *Listener) run() {
	defer close(l.done)
	defer func() {
		if r := recover(); r != nil {
			l.finish(fmt.Errorf("listener panic: %v\n%s", r, debug.Stack()))
		}
	}()

	l.logger.Debug("listener started",
		logging.String(logging.FieldEventType, "listener_started"),
		logging.Duration("interval", l.interval),
	)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	buf := make([]byte, l.readSize)
	var pending []byte
	for {
		if l.stopping() {
			l.discardPartial(pending)
			l.finish(nil)
			return
		}

		for {
			n, err := l.source.Read(buf)
			if err != nil {
				l.finish(fmt.Errorf("read channel: %w", err))
				return
			}
			if n == 0 {
				break
			}
			pending = l.emit(append(pending, buf[:n]...))
			if l.stopping() {
				break
			}
		}

		select {
		case <-l.quit:
			l.discardPartial(pending)
			l.finish(nil)
			return
		case <-ticker.C:
		}
	}
}

func (l *Listener) stopping() bool {
	select {
	case <-l.quit:
		return true
	default:
		return false
	}
}

// emit pushes every complete line in data and returns the unterminated tail.
func (l *Listener) emit(data []byte) []byte {
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimSuffix(data[:idx], []byte{'\r'})
		l.sink.Push(string(line))
		data = data[idx+1:]
	}
	if len(data) == 0 {
		return nil
	}
	tail := make([]byte, len(data))
	copy(tail, data)
	return tail
}

func (l *Listener) discardPartial(pending []byte) {
	if len(pending) == 0 {
		return
	}
	l.logger.Debug("discarding unterminated command line",
		logging.Int("bytes", len(pending)),
	)
}

func (l *Listener) finish(err error) {
	l.mu.Lock()
	l.alive = false
	l.err = err
	l.mu.Unlock()

	if err != nil {
		logging.ErrorWithContext(l.logger, "listener stopped unexpectedly", "listener_died",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the pipe was not removed or replaced"),
			logging.String(logging.FieldImpact, "commands are no longer received"),
		)
		return
	}
	l.logger.Debug("listener stopped",
		logging.String(logging.FieldEventType, "listener_stopped"),
	)
}
