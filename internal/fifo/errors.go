package fifo

import "errors"

var (
	// ErrUnsupported is returned on platforms without named pipes.
	ErrUnsupported = errors.New("named pipes are not supported on this platform")
	// ErrNoReader means no process has the pipe open for reading.
	ErrNoReader = errors.New("no reader on pipe")
	// ErrNotFIFO means the path exists but is not a named pipe.
	ErrNotFIFO = errors.New("path is not a named pipe")
	// ErrClosed is returned when reading from a closed endpoint.
	ErrClosed = errors.New("endpoint closed")
	// ErrInvalidLine rejects command lines with embedded newlines.
	ErrInvalidLine = errors.New("command line must not contain a newline")
)
