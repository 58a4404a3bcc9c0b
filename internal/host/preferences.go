package host

import "sync"

// Preferences is the mutable preference store.
type Preferences struct {
	mu               sync.RWMutex
	pipePathTemplate string
}

// NewPreferences seeds the pipe path template.
func NewPreferences(pipePathTemplate string) *Preferences {
	return &Preferences{pipePathTemplate: pipePathTemplate}
}

// PipePathTemplate implements session.Preferences.
func (p *Preferences) PipePathTemplate() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pipePathTemplate
}

// SetPipePathTemplate changes the template used by the next session start.
func (p *Preferences) SetPipePathTemplate(template string) {
	p.mu.Lock()
	p.pipePathTemplate = template
	p.mu.Unlock()
}
