package state

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/himark-dashboard/internal/domain"
)

// HistoryMode selects how URL writes land in the navigation history.
type HistoryMode int

const (
	// HistoryReplace rewrites the current entry.
	HistoryReplace HistoryMode = iota
	// HistoryPush adds an entry per write, so back steps through filter
	// changes.
	HistoryPush
)

func (m HistoryMode) String() string {
	if m == HistoryPush {
		return "push"
	}
	return "replace"
}

// Location is the browser-style address bar the store mirrors filters to.
type Location interface {
	URL() (*url.URL, error)
	PushState(u *url.URL) error
	ReplaceState(u *url.URL) error
	// OnPopState registers fn for back/forward navigation and returns a
	// function that removes it.
	OnPopState(fn func()) (remove func())
}

// Query parameters carrying filter state.
const (
	ParamLocation  = "location"
	ParamMetric    = "metric"
	ParamThreshold = "threshold"
	ParamTimeStart = "timeStart"
	ParamTimeEnd   = "timeEnd"
)

var errNoLocation = errors.New("no location configured")

// EncodeFilters renders the set fields of f as query parameters. Times are
// written in UTC with nanosecond precision so they parse back exactly.
func EncodeFilters(f domain.Filters) url.Values {
	q := url.Values{}
	if f.Location != "" {
		q.Set(ParamLocation, f.Location)
	}
	if f.Metric != "" {
		q.Set(ParamMetric, f.Metric)
	}
	if f.Threshold != nil {
		q.Set(ParamThreshold, strconv.FormatFloat(*f.Threshold, 'f', -1, 64))
	}
	if f.TimeRange.Active() {
		q.Set(ParamTimeStart, f.TimeRange.Start.UTC().Format(time.RFC3339Nano))
		q.Set(ParamTimeEnd, f.TimeRange.End.UTC().Format(time.RFC3339Nano))
	}
	return q
}

// DecodeFilters overlays the recognized parameters in q onto base. Each
// field is taken independently: a malformed threshold or a half-specified
// or unparseable time range leaves that field as it was. The bool reports
// whether any field was taken.
func DecodeFilters(q url.Values, base domain.Filters) (domain.Filters, bool) {
	f := cloneFilters(base)
	found := false

	if q.Has(ParamLocation) {
		f.Location = q.Get(ParamLocation)
		found = true
	}
	if q.Has(ParamMetric) {
		f.Metric = q.Get(ParamMetric)
		found = true
	}
	if q.Has(ParamThreshold) {
		if v, ok := domain.NumericValue(q.Get(ParamThreshold)); ok {
			f.Threshold = domain.Float(v)
			found = true
		}
	}
	if q.Has(ParamTimeStart) && q.Has(ParamTimeEnd) {
		start, errStart := parseParamTime(q.Get(ParamTimeStart))
		end, errEnd := parseParamTime(q.Get(ParamTimeEnd))
		if errStart == nil && errEnd == nil {
			f.TimeRange = domain.TimeRange{Start: start, End: end}
			found = true
		}
	}
	return f, found
}

func parseParamTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// LoadFromURL reads filter parameters from the location and applies them as
// one silent update, then notifies "filters" once. Nothing happens when no
// parameter is recognized.
func (s *Store) LoadFromURL() error {
	if s.location == nil {
		return s.urlFault("load", errNoLocation)
	}
	u, err := s.location.URL()
	if err != nil {
		return s.urlFault("load", err)
	}

	f, found := DecodeFilters(u.Query(), s.Filters())
	if !found {
		return nil
	}

	s.mu.Lock()
	changed, _ := s.tree.set([]string{RootFilters}, f)
	s.mu.Unlock()

	s.metrics.URLLoads.Inc()
	if changed {
		s.metrics.StateUpdates.WithLabelValues(RootFilters).Inc()
	}
	s.notify(RootFilters)
	s.logger.Debug("filters loaded from url", "query", u.RawQuery)
	return nil
}

// WriteURLFromState replaces the location's query with the current filters,
// keeping its path and dropping any other parameters and fragment, then
// records the write time in urlSync.lastUpdated.
func (s *Store) WriteURLFromState() error {
	if s.location == nil {
		return s.urlFault("write", errNoLocation)
	}
	cur, err := s.location.URL()
	if err != nil {
		return s.urlFault("write", err)
	}

	next := *cur
	next.RawQuery = EncodeFilters(s.Filters()).Encode()
	next.Fragment = ""
	next.RawFragment = ""

	if s.historyMode == HistoryPush {
		err = s.location.PushState(&next)
	} else {
		err = s.location.ReplaceState(&next)
	}
	if err != nil {
		return s.urlFault("write", err)
	}

	s.metrics.URLWrites.Inc()
	if err := s.SetSilent(PathURLSyncUpdated, s.clock.Now()); err != nil {
		return err
	}
	s.logger.Debug("filters written to url", "url", next.String(), "mode", s.historyMode)
	return nil
}

func (s *Store) urlFault(op string, err error) error {
	err = fmt.Errorf("%w: %s: %w", ErrURLSync, op, err)
	s.metrics.URLSyncFaults.WithLabelValues(op).Inc()
	s.logger.Warn("url sync failed", "op", op, "error", err)
	return err
}
