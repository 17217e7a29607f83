package watch

import (
	"sync"
	"time"
)

type stopper interface {
	Stop() bool
}

// pending is one armed flush. A new schedule for the same key replaces the
// entry, so a callback that fired but lost the race for mu sees a different
// entry in the map and does nothing.
type pending struct {
	timer stopper
}

type debouncer struct {
	duration  time.Duration
	afterFunc func(time.Duration, func()) stopper

	mu      sync.Mutex
	timers  map[string]*pending
	stopped bool
}

func newDebouncer(duration time.Duration) *debouncer {
	return &debouncer{
		duration: duration,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		timers: make(map[string]*pending),
	}
}

// schedule runs flush(key) once no new schedule for key has arrived within
// the debounce window. It reports whether a pending flush was coalesced.
func (d *debouncer) schedule(key string, flush func(string)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	prev, coalesced := d.timers[key]
	if coalesced {
		prev.timer.Stop()
	}
	entry := &pending{}
	d.timers[key] = entry
	entry.timer = d.afterFunc(d.duration, func() {
		d.mu.Lock()
		current := d.timers[key] == entry
		if current {
			delete(d.timers, key)
		}
		run := current && !d.stopped
		d.mu.Unlock()
		if run {
			flush(key)
		}
	})
	return coalesced
}

func (d *debouncer) cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if entry, ok := d.timers[key]; ok {
		entry.timer.Stop()
		delete(d.timers, key)
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, entry := range d.timers {
		entry.timer.Stop()
		delete(d.timers, key)
	}
}
