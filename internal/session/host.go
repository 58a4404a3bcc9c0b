package session

import (
	"context"
	"time"

	"piperun/internal/cmdqueue"
	"piperun/internal/history"
	"piperun/internal/listener"
)

// TickFunc is invoked by the Scheduler on every interval. Returning a
// terminal Status ends the registration.
type TickFunc func(ctx context.Context) Status

// Scheduler registers fixed-interval callbacks on the host main context.
type Scheduler interface {
	Register(interval time.Duration, fn TickFunc) (Registration, error)
}

// Registration is a handle to a scheduled tick.
type Registration interface {
	Cancel()
}

// Reporter surfaces messages to the user.
type Reporter interface {
	Report(severity Severity, message string)
}

// Preferences supplies the channel path template.
type Preferences interface {
	PipePathTemplate() string
}

// Redrawer asks the host to refresh controls that depend on session state.
type Redrawer interface {
	RequestRedraw()
}

// Handler executes one command. An empty message with a nil error means the
// command matched nothing.
type Handler interface {
	Handle(ctx context.Context, verb, argument string) (string, error)
}

// Journal records processed command lines.
type Journal interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Endpoint is the read side of an open channel.
type Endpoint interface {
	listener.Source
	Path() string
}

// Worker is the background unit feeding the queue.
type Worker interface {
	Start() error
	Stop() error
	Alive() bool
	Err() error
}

// EndpointOpener creates the channel at path.
type EndpointOpener func(path string) (Endpoint, error)

// WorkerFactory builds the background unit for an endpoint.
type WorkerFactory func(endpoint Endpoint, queue *cmdqueue.Queue) Worker
