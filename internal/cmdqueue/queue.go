// Package cmdqueue holds command lines between the pipe listener and the
// poller. The queue is unbounded and safe for one producer and one consumer
// running on different goroutines.
package cmdqueue

import (
	"errors"
	"sync"
)

// ErrEmpty is returned by Next when no line is queued.
var ErrEmpty = errors.New("command queue empty")

// Queue is an unbounded FIFO of command lines.
type Queue struct {
	mu    sync.Mutex
	items []string
	head  int
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Push appends line. It never blocks.
func (q *Queue) Push(line string) {
	q.mu.Lock()
	q.items = append(q.items, line)
	q.mu.Unlock()
}

// HasNext reports whether at least one line is queued.
func (q *Queue) HasNext() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head < len(q.items)
}

// Next removes and returns the oldest line.
func (q *Queue) Next() (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.items) {
		return "", ErrEmpty
	}
	line := q.items[q.head]
	q.items[q.head] = ""
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	}
	return line, nil
}

// Len returns the number of queued lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Drain removes and returns every queued line in order.
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.items) {
		return nil
	}
	out := make([]string, len(q.items)-q.head)
	copy(out, q.items[q.head:])
	q.items = nil
	q.head = 0
	return out
}
