// Package state holds the dashboard's shared state: filters, per-chart UI
// state, and URL sync status, addressed by dot paths.
//
// Writes are synchronous. Notifications are deferred and debounced per path,
// so a Get right after a Set sees the new value before any subscriber runs.
// Filter changes are mirrored to a Location after a longer quiet period.
package state

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/himark-dashboard/internal/config"
	"github.com/couchcryptid/himark-dashboard/internal/debounce"
	"github.com/couchcryptid/himark-dashboard/internal/domain"
	"github.com/couchcryptid/himark-dashboard/internal/observability"
)

// Default debounce windows.
const (
	DefaultNotifyDebounce = 5 * time.Millisecond
	DefaultURLDebounce    = 300 * time.Millisecond
)

const urlWriteKey = "url:write"

// Store is the shared state of one dashboard session.
type Store struct {
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
	location    Location
	historyMode HistoryMode
	syncEnabled bool
	notifyDelay time.Duration
	urlDelay    time.Duration

	mu   sync.RWMutex
	tree Tree

	subMu  sync.Mutex
	subs   map[string][]*Subscription
	events map[string][]*eventListener

	timers         *debounce.Group
	removePopState func()
	closed         atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock driving debounce timers and urlSync.lastUpdated.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithLocation mirrors filters to loc.
func WithLocation(loc Location) Option {
	return func(s *Store) { s.location = loc }
}

// WithURLSync turns URL mirroring on or off. It is on by default.
func WithURLSync(enabled bool) Option {
	return func(s *Store) { s.syncEnabled = enabled }
}

// WithHistoryMode selects whether URL writes replace the current entry or
// push a new one.
func WithHistoryMode(m HistoryMode) Option {
	return func(s *Store) { s.historyMode = m }
}

// WithNotifyDebounce sets the per-path notification window.
func WithNotifyDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.notifyDelay = d
		}
	}
}

// WithURLDebounce sets the quiet period before filter changes reach the URL.
func WithURLDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.urlDelay = d
		}
	}
}

// WithSyncConfig applies the environment-loaded sync settings.
func WithSyncConfig(cfg config.SyncConfig) Option {
	return func(s *Store) {
		WithURLSync(cfg.URLSyncEnabled)(s)
		WithNotifyDebounce(cfg.NotifyDebounce)(s)
		WithURLDebounce(cfg.URLDebounce)(s)
		if cfg.HistoryMode == config.HistoryPush {
			s.historyMode = HistoryPush
		} else {
			s.historyMode = HistoryReplace
		}
	}
}

// New creates a Store. When a location is configured and URL sync is on,
// filters are loaded from the current URL and reloaded on every pop-state.
func New(opts ...Option) *Store {
	s := &Store{
		historyMode: HistoryReplace,
		syncEnabled: true,
		notifyDelay: DefaultNotifyDebounce,
		urlDelay:    DefaultURLDebounce,
		tree:        newTree(),
		subs:        make(map[string][]*Subscription),
		events:      make(map[string][]*eventListener),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observability.NewUnregisteredMetrics()
	}
	s.timers = debounce.New(s.clock)
	s.tree.URLSync.Enabled = s.syncEnabled
	for _, p := range seededPaths {
		s.subs[p] = nil
	}

	if s.location != nil && s.syncEnabled {
		_ = s.LoadFromURL()
		s.removePopState = s.location.OnPopState(s.handlePopState)
	}
	return s
}

// Get returns the value at path, or a snapshot of the whole tree for an
// empty path. The bool is false when any segment is missing. Returned maps
// and slices are copies.
func (s *Store) Get(path string) (any, bool) {
	if path == "" {
		return s.Snapshot(), true
	}
	segs, err := splitPath(path)
	if err != nil {
		return nil, false
	}
	if segs[0] == RootEvents {
		return s.eventCounts(segs[1:])
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.get(segs)
}

// Snapshot returns a deep copy of the state tree.
func (s *Store) Snapshot() Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.clone()
}

// Filters returns the current filters.
func (s *Store) Filters() domain.Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFilters(s.tree.Filters)
}

// Set stores value at path and notifies subscribers of the path and each of
// its ancestors. Filter changes schedule a debounced URL write. Setting a
// value deep-equal to the current one does nothing.
func (s *Store) Set(path string, value any) error {
	return s.set(path, value, false)
}

// SetSilent stores value at path without notifying anyone or touching the
// URL.
func (s *Store) SetSilent(path string, value any) error {
	return s.set(path, value, true)
}

func (s *Store) set(path string, value any, silent bool) error {
	segs, err := splitPath(path)
	if err == nil {
		err = s.apply(segs, value, silent)
	}
	if err != nil {
		s.logger.Error("state update failed", "path", path, "error", err)
		return fmt.Errorf("update state at path %q: %w", path, err)
	}
	return nil
}

func (s *Store) apply(segs []string, value any, silent bool) error {
	s.mu.Lock()
	changed, err := s.tree.set(segs, value)
	syncEnabled := s.tree.URLSync.Enabled
	s.mu.Unlock()
	if err != nil || !changed {
		return err
	}

	s.metrics.StateUpdates.WithLabelValues(segs[0]).Inc()
	if silent {
		return nil
	}

	s.notifyWithAncestors(segs)
	if len(segs) > 1 && segs[0] == RootFilters && syncEnabled && s.location != nil {
		s.timers.Schedule(urlWriteKey, s.urlDelay, func() { _ = s.WriteURLFromState() })
	}
	return nil
}

// ResetFilters clears every filter and, when URL sync is on, writes the URL
// right away instead of waiting for the debounce.
func (s *Store) ResetFilters() error {
	s.mu.Lock()
	changed, _ := s.tree.set([]string{RootFilters}, domain.Filters{})
	syncEnabled := s.tree.URLSync.Enabled
	s.mu.Unlock()

	if changed {
		s.metrics.StateUpdates.WithLabelValues(RootFilters).Inc()
		s.notify(RootFilters)
	}
	if syncEnabled && s.location != nil {
		s.timers.Cancel(urlWriteKey)
		if err := s.WriteURLFromState(); err != nil {
			return fmt.Errorf("reset filters: %w", err)
		}
	}
	return nil
}

// ApplyFilters filters data with the current filters. data may be any
// sequence of records; anything else yields an empty result.
func (s *Store) ApplyFilters(data any, cfg domain.FilterConfig) []domain.Record {
	records, err := domain.AsRecords(data)
	if err != nil {
		s.logger.Warn("filter input is not a sequence", "error", err)
		return []domain.Record{}
	}

	start := s.clock.Now()
	out := domain.ApplyFilters(records, s.Filters(), cfg, s.logger)
	s.metrics.FilterDuration.Observe(s.clock.Since(start).Seconds())
	s.metrics.FilterRuns.Inc()
	s.metrics.RecordsKept.Observe(float64(len(out)))
	return out
}

// Close stops listening for pop-state and drops every pending notification
// and URL write. Sets still succeed afterwards but nothing is dispatched.
func (s *Store) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.removePopState != nil {
		s.removePopState()
	}
	s.timers.Stop()
}

func (s *Store) handlePopState() {
	if err := s.LoadFromURL(); err != nil {
		s.logger.Debug("pop-state reload skipped", "error", err)
	}
}
