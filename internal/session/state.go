package session

import "sync"

// State tracks whether a session is running and whether a stop has been
// requested. A stop request only exists while running, and leaving the
// running state always clears it.
type State struct {
	mu            sync.Mutex
	starting      bool
	running       bool
	stopRequested bool
}

// IsRunning reports whether a session is active.
func (s *State) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// IsStopRequested reports whether the active session is waiting to stop.
func (s *State) IsStopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRequested
}

// Label returns the control label for the current state.
func (s *State) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.stopRequested:
		return LabelStopping
	case s.running:
		return LabelStop
	default:
		return LabelStart
	}
}

// tryStart reserves the state for a session being opened. It fails while a
// session is running or another start holds the reservation.
func (s *State) tryStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.starting {
		return false
	}
	s.starting = true
	return true
}

func (s *State) abortStart() {
	s.mu.Lock()
	s.starting = false
	s.mu.Unlock()
}

func (s *State) markRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.starting = false
	s.running = true
	s.stopRequested = false
	return true
}

func (s *State) requestStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.stopRequested {
		return false
	}
	s.stopRequested = true
	return true
}

func (s *State) clear() {
	s.mu.Lock()
	s.running = false
	s.stopRequested = false
	s.mu.Unlock()
}
