//go:build unix

package fifo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Writer sends newline-terminated command lines into a pipe.
type Writer struct {
	path string
	file *os.File
}

// Dial opens the pipe at path for writing. It fails with ErrNoReader instead
// of blocking when no daemon holds the read end.
func Dial(path string) (*Writer, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return nil, fmt.Errorf("%w: %s", ErrNoReader, path)
		}
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	if st.Mode&unix.S_IFMT != unix.S_IFIFO {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: %s", ErrNotFIFO, path)
	}

	// Writes of a single line are atomic up to PIPE_BUF; blocking mode keeps
	// larger writes from failing with EAGAIN when the reader lags.
	if err := unix.SetNonblock(fd, false); err != nil {
		_ = unix.Close(fd)
		return nil, &fs.PathError{Op: "fcntl", Path: path, Err: err}
	}

	return &Writer{path: path, file: os.NewFile(uintptr(fd), path)}, nil
}

// WriteLine writes line followed by a newline.
func (w *Writer) WriteLine(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return ErrInvalidLine
	}
	if _, err := w.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	return nil
}

// Close closes the write end. The reader sees end-of-stream once every
// writer has closed.
func (w *Writer) Close() error {
	return w.file.Close()
}
