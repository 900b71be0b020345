// Package debounce runs keyed, replaceable delayed tasks.
//
// Scheduling a key that already has a pending task replaces it; the old task
// never runs. Each task carries a generation number, so a timer that fired
// just before being replaced or cancelled finds itself stale and does nothing.
package debounce

import (
	"sync"
	"time"
)

type task struct {
	timer *time.Timer
	gen   uint64
}

type Debouncer struct {
	mu      sync.Mutex
	tasks   map[string]*task
	gen     uint64
	closed  bool
	running sync.WaitGroup
}

func New() *Debouncer {
	return &Debouncer{tasks: make(map[string]*task)}
}

// Schedule arranges for fn to run after delay unless key is rescheduled or
// cancelled first. It returns false once the debouncer is stopped.
func (d *Debouncer) Schedule(key string, delay time.Duration, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	if t, ok := d.tasks[key]; ok {
		t.timer.Stop()
	}

	d.gen++
	gen := d.gen
	t := &task{gen: gen}
	t.timer = time.AfterFunc(delay, func() { d.fire(key, gen, fn) })
	d.tasks[key] = t
	return true
}

func (d *Debouncer) fire(key string, gen uint64, fn func()) {
	d.mu.Lock()
	t, ok := d.tasks[key]
	if !ok || t.gen != gen || d.closed {
		d.mu.Unlock()
		return
	}
	delete(d.tasks, key)
	d.running.Add(1)
	d.mu.Unlock()

	defer d.running.Done()
	fn()
}

// Cancel drops the pending task for key and reports whether there was one.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tasks[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(d.tasks, key)
	return true
}

// Pending reports whether key has a task that has not started yet.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tasks[key]
	return ok
}

// Stop cancels every pending task and waits for running ones to return.
// It must not be called from inside a task.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.closed = true
	for key, t := range d.tasks {
		t.timer.Stop()
		delete(d.tasks, key)
	}
	d.mu.Unlock()

	d.running.Wait()
}
