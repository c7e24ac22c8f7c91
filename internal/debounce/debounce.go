// Package debounce coalesces bursts of calls into one deferred call per key.
//
// Each key holds at most one pending task. Scheduling a key that already has
// a pending task cancels it and starts a new quiet period, so only the last
// call in a burst runs.
package debounce

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Group tracks pending tasks by key.
type Group struct {
	clock clockwork.Clock

	mu      sync.Mutex
	pending map[string]*task
	seq     uint64
	stopped bool
}

type task struct {
	seq   uint64
	timer clockwork.Timer
}

// New creates a Group driven by clock. A nil clock uses real time.
func New(clock clockwork.Clock) *Group {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Group{
		clock:   clock,
		pending: make(map[string]*task),
	}
}

// Schedule runs fn once key has been quiet for delay. A task already pending
// for key is cancelled. Scheduling after Stop does nothing.
func (g *Group) Schedule(key string, delay time.Duration, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	if t, ok := g.pending[key]; ok {
		t.timer.Stop()
	}

	g.seq++
	t := &task{seq: g.seq}
	seq := t.seq
	t.timer = g.clock.AfterFunc(delay, func() { g.fire(key, seq, fn) })
	g.pending[key] = t
}

// fire runs fn unless the task was cancelled or replaced after its timer
// had already expired.
func (g *Group) fire(key string, seq uint64, fn func()) {
	g.mu.Lock()
	t, ok := g.pending[key]
	if !ok || t.seq != seq {
		g.mu.Unlock()
		return
	}
	delete(g.pending, key)
	g.mu.Unlock()

	fn()
}

// Cancel drops the pending task for key. It reports whether one was pending.
func (g *Group) Cancel(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.pending[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(g.pending, key)
	return true
}

// Pending reports whether key has a task waiting to run.
func (g *Group) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.pending[key]
	return ok
}

// Len returns the number of pending tasks.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.pending)
}

// Stop cancels every pending task and rejects further scheduling.
func (g *Group) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopped = true
	for key, t := range g.pending {
		t.timer.Stop()
		delete(g.pending, key)
	}
}
