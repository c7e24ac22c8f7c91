package domain

import "time"

// TimeRange bounds report times, both ends inclusive. A zero bound is unset.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Active reports whether both bounds are set.
func (r TimeRange) Active() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Filters is the cross-visualization filter state. The zero value filters
// nothing.
type Filters struct {
	Location  string    `json:"location,omitempty"`
	TimeRange TimeRange `json:"timeRange"`
	Metric    string    `json:"metric,omitempty"`
	Threshold *float64  `json:"threshold,omitempty"`
}

// ThresholdActive reports whether a positive threshold is set.
func (f Filters) ThresholdActive() bool {
	return f.Threshold != nil && *f.Threshold > 0
}

// Float returns a pointer to v, for building Filters literals.
func Float(v float64) *float64 {
	return &v
}
