// Package history provides an in-memory browser history for driving the
// state store's URL sync outside a browser.
package history

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
)

// ErrNoEntry is returned when Back or Forward runs off either end.
var ErrNoEntry = errors.New("no history entry")

// Memory is a navigation stack with a cursor, like a browser tab.
type Memory struct {
	mu        sync.Mutex
	entries   []*url.URL
	cursor    int
	listeners map[int]func()
	nextID    int

	pushes   int
	replaces int
}

// NewMemory starts a history at rawURL.
func NewMemory(rawURL string) (*Memory, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse initial url: %w", err)
	}
	return &Memory{
		entries:   []*url.URL{u},
		listeners: make(map[int]func()),
	}, nil
}

// URL returns a copy of the current entry.
func (m *Memory) URL() (*url.URL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneURL(m.entries[m.cursor]), nil
}

// PushState drops any forward entries and appends u.
func (m *Memory) PushState(u *url.URL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries[:m.cursor+1], cloneURL(u))
	m.cursor++
	m.pushes++
	return nil
}

// ReplaceState overwrites the current entry.
func (m *Memory) ReplaceState(u *url.URL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[m.cursor] = cloneURL(u)
	m.replaces++
	return nil
}

// OnPopState registers fn to run after Back and Forward.
func (m *Memory) OnPopState(fn func()) (remove func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Back moves to the previous entry and fires pop-state.
func (m *Memory) Back() error { return m.step(-1) }

// Forward moves to the next entry and fires pop-state.
func (m *Memory) Forward() error { return m.step(1) }

func (m *Memory) step(delta int) error {
	m.mu.Lock()
	next := m.cursor + delta
	if next < 0 || next >= len(m.entries) {
		m.mu.Unlock()
		return ErrNoEntry
	}
	m.cursor = next
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Entries returns every entry as a string, oldest first.
func (m *Memory) Entries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.entries))
	for i, u := range m.entries {
		out[i] = u.String()
	}
	return out
}

// Writes returns how many push and replace calls were made.
func (m *Memory) Writes() (pushes, replaces int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushes, m.replaces
}

// Listeners returns the number of registered pop-state listeners.
func (m *Memory) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
