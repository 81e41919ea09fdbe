// internal/pkg/debounce/debounce.go
package debounce

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid calls per key into a single trailing-edge
// invocation after the settle window passes with no further calls. A
// slider emitting a call per tick produces one store write.
type Debouncer struct {
	settle time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// New creates a Debouncer with the given settle window
func New(settle time.Duration) *Debouncer {
	return &Debouncer{
		settle: settle,
		timers: make(map[string]*time.Timer),
	}
}

// Do schedules fn for the key. A later Do for the same key before the
// settle window elapses replaces fn and restarts the window. fn runs on
// a timer goroutine.
func (d *Debouncer) Do(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}

	d.timers[key] = time.AfterFunc(d.settle, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops any pending invocation for the key
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

// Close stops all pending timers. Pending invocations are dropped, not
// flushed; callers that need the last write must persist on shutdown
// themselves.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
