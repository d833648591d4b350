package server

import (
	"sync"
	"time"

	"github.com/jrsteele09/go-delivery-console/console"
)

type registeredConsole struct {
	console  *console.Console
	lastSeen time.Time
}

// consoleRegistry keeps one console per browser session ID. Only consoles that are signed in, or
// still restoring a stored session, are kept.
type consoleRegistry struct {
	mu       sync.Mutex
	consoles map[string]*registeredConsole
	now      func() time.Time
}

func newConsoleRegistry() *consoleRegistry {
	return &consoleRegistry{
		consoles: make(map[string]*registeredConsole),
		now:      time.Now,
	}
}

// getOrCreate returns the console for id, building it with create when absent. created reports
// whether this call built it.
func (r *consoleRegistry) getOrCreate(id string, create func() (*console.Console, error)) (c *console.Console, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.consoles[id]; ok {
		e.lastSeen = r.now()
		return e.console, false, nil
	}
	c, err = create()
	if err != nil {
		return nil, false, err
	}
	r.consoles[id] = &registeredConsole{console: c, lastSeen: r.now()}
	return c, true, nil
}

// adopt registers c under id. A different console already held for id is returned so the caller
// can tear it down.
func (r *consoleRegistry) adopt(id string, c *console.Console) (displaced *console.Console) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.consoles[id]; ok {
		e.lastSeen = r.now()
		if e.console == c {
			return nil
		}
		displaced = e.console
		e.console = c
		return displaced
	}
	r.consoles[id] = &registeredConsole{console: c, lastSeen: r.now()}
	return nil
}

// remove drops id only while it still holds c.
func (r *consoleRegistry) remove(id string, c *console.Console) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.consoles[id]; ok && e.console == c {
		delete(r.consoles, id)
	}
}

// sweep removes and returns the consoles not seen for longer than idle.
func (r *consoleRegistry) sweep(idle time.Duration) []*console.Console {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-idle)
	var out []*console.Console
	for id, e := range r.consoles {
		if e.lastSeen.Before(cutoff) {
			out = append(out, e.console)
			delete(r.consoles, id)
		}
	}
	return out
}

func (r *consoleRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.consoles)
}

// drain removes and returns every console.
func (r *consoleRegistry) drain() []*console.Console {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*console.Console, 0, len(r.consoles))
	for id, e := range r.consoles {
		out = append(out, e.console)
		delete(r.consoles, id)
	}
	return out
}
