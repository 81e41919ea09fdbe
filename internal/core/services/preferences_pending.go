// internal/core/services/preferences_pending.go
package services

import (
	"sync"

	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// pendingPrefs buffers the latest unwritten preference state per session
type pendingPrefs struct {
	mu sync.RWMutex
	m  map[string]*ports.FilterPreferences
}

func newPendingPrefs() *pendingPrefs {
	return &pendingPrefs{m: make(map[string]*ports.FilterPreferences)}
}

func (p *pendingPrefs) get(sessionID string) (*ports.FilterPreferences, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	prefs, ok := p.m[sessionID]
	return prefs, ok
}

func (p *pendingPrefs) set(sessionID string, prefs *ports.FilterPreferences) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[sessionID] = prefs
}

func (p *pendingPrefs) take(sessionID string) (*ports.FilterPreferences, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prefs, ok := p.m[sessionID]
	if ok {
		delete(p.m, sessionID)
	}
	return prefs, ok
}

func (p *pendingPrefs) delete(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, sessionID)
}

func (p *pendingPrefs) drain() map[string]*ports.FilterPreferences {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.m
	p.m = make(map[string]*ports.FilterPreferences)
	return out
}
