//go:build unix

package fifo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// Endpoint is the read end of a named pipe created by Open.
type Endpoint struct {
	path string

	mu     sync.Mutex
	fd     int
	closed bool
}

// Open removes whatever exists at path, creates a FIFO there, and opens it
// for non-blocking reads. On failure nothing is left at path.
func Open(path string) (*Endpoint, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("create fifo: empty path")
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove stale fifo: %w", err)
	}
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return nil, fmt.Errorf("create fifo: %w", &fs.PathError{Op: "mkfifo", Path: path, Err: err})
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("open fifo: %w", &fs.PathError{Op: "open", Path: path, Err: err})
	}

	return &Endpoint{path: path, fd: fd}, nil
}

// Path returns the location of the pipe.
func (e *Endpoint) Path() string {
	return e.path
}

// Read copies whatever is currently buffered in the pipe into p. It never
// blocks: 0, nil means nothing is pending right now, either because the
// writer has not sent anything yet or because no writer is connected.
func (e *Endpoint) Read(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	n, err := unix.Read(e.fd, p)
	switch {
	case err == nil:
		if n < 0 {
			n = 0
		}
		return n, nil
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
		return 0, nil
	default:
		return 0, &fs.PathError{Op: "read", Path: e.path, Err: err}
	}
}

// Close releases the descriptor and unlinks the pipe. Later calls are no-ops.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if err := unix.Close(e.fd); err != nil {
		errs = append(errs, fmt.Errorf("close fifo: %w", err))
	}
	if err := os.Remove(e.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, fmt.Errorf("remove fifo: %w", err))
	}
	return errors.Join(errs...)
}
