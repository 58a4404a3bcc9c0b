// Package command parses command lines and routes them to verb handlers.
//
// A command line is `<verb> <argument>`, split on the first space. The
// argument may itself contain spaces. Lines without a space carry no
// argument and are not dispatched.
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Verbs understood by the workspace handlers.
const (
	VerbReloadScript = "reload_script"
	VerbRunScript    = "run_script"
	VerbReloadAddon  = "reload_addon"
)

// Split separates line at the first space. ok is false when line has no
// space.
func Split(line string) (verb, argument string, ok bool) {
	return strings.Cut(line, " ")
}

// HandlerFunc executes one verb. A non-empty message is shown to the user;
// an empty message with a nil error means nothing matched.
type HandlerFunc func(ctx context.Context, argument string) (string, error)

// Dispatcher maps verbs to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Register binds fn to verb, replacing any previous binding.
func (d *Dispatcher) Register(verb string, fn HandlerFunc) error {
	verb = strings.TrimSpace(verb)
	if verb == "" || strings.ContainsAny(verb, " \n") {
		return fmt.Errorf("invalid verb %q", verb)
	}
	if fn == nil {
		return fmt.Errorf("nil handler for verb %q", verb)
	}
	d.mu.Lock()
	d.handlers[verb] = fn
	d.mu.Unlock()
	return nil
}

// Handle runs the handler bound to verb. Unknown verbs are a no-op.
func (d *Dispatcher) Handle(ctx context.Context, verb, argument string) (string, error) {
	d.mu.RLock()
	fn, ok := d.handlers[verb]
	d.mu.RUnlock()
	if !ok {
		return "", nil
	}
	return fn(ctx, argument)
}

// Verbs lists registered verbs in sorted order.
func (d *Dispatcher) Verbs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for verb := range d.handlers {
		out = append(out, verb)
	}
	sort.Strings(out)
	return out
}
