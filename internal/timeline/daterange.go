package timeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/himark-dashboard/internal/domain"
	"github.com/couchcryptid/himark-dashboard/internal/state"
)

// DefaultRangeKey is the store path the date-range picker writes.
const DefaultRangeKey = state.PathTimeRange

// Bounds of the St. Himark report window.
var (
	DefaultMinDate = time.Date(2020, 4, 6, 0, 0, 0, 0, time.UTC)
	DefaultMaxDate = time.Date(2020, 4, 10, 0, 0, 0, 0, time.UTC)
)

// DayRange widens start and end to whole days in their own locations. An
// end before start is moved to start's day.
func DayRange(start, end time.Time) domain.TimeRange {
	if end.Before(start) {
		end = start
	}
	return domain.TimeRange{
		Start: startOfDay(start),
		End:   endOfDay(end),
	}
}

// SetDateRange writes DayRange(start, end) to key.
func SetDateRange(store *state.Store, key string, start, end time.Time) (domain.TimeRange, error) {
	r := DayRange(start, end)
	if err := store.Set(key, r); err != nil {
		return r, fmt.Errorf("set date range: %w", err)
	}
	return r, nil
}

// DateRange is a start/end date picker bound to a store path.
type DateRange struct {
	store       *state.Store
	key         string
	first, last time.Time

	mu      sync.Mutex
	current domain.TimeRange
}

// NewDateRange creates a picker spanning first to last and writes that full
// range to key. An empty key uses DefaultRangeKey.
func NewDateRange(store *state.Store, key string, first, last time.Time) (*DateRange, error) {
	if key == "" {
		key = DefaultRangeKey
	}
	d := &DateRange{store: store, key: key, first: first, last: last}
	if err := d.Reset(); err != nil {
		return nil, err
	}
	return d, nil
}

// Set selects start through end.
func (d *DateRange) Set(start, end time.Time) error {
	r, err := SetDateRange(d.store, d.key, start, end)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.current = r
	d.mu.Unlock()
	return nil
}

// Reset selects the full span.
func (d *DateRange) Reset() error {
	return d.Set(d.first, d.last)
}

// Range returns the selected range.
func (d *DateRange) Range() domain.TimeRange {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func startOfDay(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
