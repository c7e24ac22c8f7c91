package state

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Listener receives the latest value at path after a debounced change.
type Listener func(value any, path string)

// EventListener receives the payload of a dispatched event.
type EventListener func(payload any)

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	ID   uuid.UUID
	Path string

	fn     Listener
	store  *Store
	active atomic.Bool
}

// Unsubscribe removes the subscription. A notification already pending for
// its path will not reach it.
func (sub *Subscription) Unsubscribe() {
	if sub == nil || sub.store == nil {
		return
	}
	sub.store.Unsubscribe(sub)
}

type eventListener struct {
	id uuid.UUID
	fn EventListener
}

// Paths registered up front so charts can rely on them.
var seededPaths = []string{
	PathLocation,
	PathTimeRange,
	PathMetric,
	PathThreshold,
	"visualizationStates.heatmap",
	"visualizationStates.radarChart",
	"visualizationStates.animationGraph",
	RootURLSync,
}

// Subscribe registers fn for changes at exactly path. Changes below path
// also reach it, since every ancestor of a changed path is notified.
func (s *Store) Subscribe(path string, fn Listener) *Subscription {
	sub := &Subscription{
		ID:    uuid.New(),
		Path:  path,
		fn:    fn,
		store: s,
	}
	sub.active.Store(true)

	s.subMu.Lock()
	s.subs[path] = append(s.subs[path], sub)
	s.subMu.Unlock()

	s.logger.Debug("subscribed", "path", path, "subscription_id", sub.ID)
	return sub
}

// Unsubscribe removes sub. Unknown or already removed subscriptions are
// ignored.
func (s *Store) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.active.Store(false)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	list := s.subs[sub.Path]
	if i := slices.Index(list, sub); i >= 0 {
		s.subs[sub.Path] = slices.Delete(slices.Clone(list), i, i+1)
	}
}

// notifyWithAncestors notifies the path named by segs and every prefix of
// it, deepest first.
func (s *Store) notifyWithAncestors(segs []string) {
	for i := len(segs); i > 0; i-- {
		s.notify(strings.Join(segs[:i], "."))
	}
}

// notify schedules a dispatch for path. Paths nobody ever subscribed to are
// skipped.
func (s *Store) notify(path string) {
	s.subMu.Lock()
	_, known := s.subs[path]
	s.subMu.Unlock()
	if !known {
		return
	}
	s.timers.Schedule("notify:"+path, s.notifyDelay, func() { s.dispatch(path) })
}

func (s *Store) dispatch(path string) {
	value, _ := s.Get(path)

	s.subMu.Lock()
	list := slices.Clone(s.subs[path])
	s.subMu.Unlock()

	s.metrics.Notifications.Inc()
	for _, sub := range list {
		if !sub.active.Load() {
			continue
		}
		s.safeCall(path, sub.ID, func() { sub.fn(cloneValue(value), path) })
	}
}

// safeCall runs fn and turns a panic into a logged ErrSubscriberFault so the
// remaining listeners still run.
func (s *Store) safeCall(target string, id uuid.UUID, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrSubscriberFault, r)
			s.metrics.SubscriberFaults.Inc()
			s.logger.Error("listener panicked", "target", target, "listener_id", id, "error", err)
		}
	}()
	fn()
}

// AddEventListener registers fn for the named event and returns a function
// that removes it.
func (s *Store) AddEventListener(name string, fn EventListener) (remove func()) {
	l := &eventListener{id: uuid.New(), fn: fn}

	s.subMu.Lock()
	s.events[name] = append(s.events[name], l)
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		list := s.events[name]
		if i := slices.Index(list, l); i >= 0 {
			s.events[name] = slices.Delete(slices.Clone(list), i, i+1)
		}
	}
}

// DispatchEvent calls every listener of name synchronously, in registration
// order.
func (s *Store) DispatchEvent(name string, payload any) {
	s.subMu.Lock()
	list := slices.Clone(s.events[name])
	s.subMu.Unlock()

	for _, l := range list {
		s.safeCall("event:"+name, l.id, func() { l.fn(cloneValue(payload)) })
	}
}

// eventCounts backs Get("events"): listener counts per event name.
func (s *Store) eventCounts(segs []string) (any, bool) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	switch len(segs) {
	case 0:
		counts := make(map[string]any, len(s.events))
		for name, list := range s.events {
			counts[name] = len(list)
		}
		return counts, true
	case 1:
		list, ok := s.events[segs[0]]
		if !ok {
			return nil, false
		}
		return len(list), true
	}
	return nil, false
}
