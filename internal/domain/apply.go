package domain

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrMalformedInput marks data that is not a sequence of records.
var ErrMalformedInput = errors.New("malformed input")

// FilterConfig tells ApplyFilters which record fields to read. Zero fields
// take the defaults.
type FilterConfig struct {
	LocationKey string
	// MetricKeys maps a metric name to the record fields that carry it.
	MetricKeys map[string][]string
	TimeKey     string
}

// DefaultMetricKeys maps each dashboard metric to its own column.
func DefaultMetricKeys() map[string][]string {
	return map[string][]string{
		FieldCombinedDamage: {FieldCombinedDamage},
		FieldSewerAndWater:  {FieldSewerAndWater},
		FieldPower:          {FieldPower},
		FieldRoadsBridges:   {FieldRoadsBridges},
		FieldMedical:        {FieldMedical},
		FieldBuildings:      {FieldBuildings},
		FieldShakeIntensity: {FieldShakeIntensity},
	}
}

func (c FilterConfig) withDefaults() FilterConfig {
	if c.LocationKey == "" {
		c.LocationKey = FieldLocation
	}
	if c.TimeKey == "" {
		c.TimeKey = FieldTime
	}
	if c.MetricKeys == nil {
		c.MetricKeys = DefaultMetricKeys()
	}
	return c
}

// AsRecords converts the sequence shapes the dashboard receives from JSON
// and CSV collaborators into records. Nil elements are kept so the filter can
// drop them.
func AsRecords(data any) ([]Record, error) {
	switch d := data.(type) {
	case []Record:
		return d, nil
	case []map[string]any:
		out := make([]Record, len(d))
		for i, m := range d {
			out[i] = m
		}
		return out, nil
	case []map[string]string:
		out := make([]Record, len(d))
		for i, m := range d {
			if m == nil {
				continue
			}
			rec := make(Record, len(m))
			for k, v := range m {
				rec[k] = v
			}
			out[i] = rec
		}
		return out, nil
	case []any:
		out := make([]Record, len(d))
		for i, item := range d {
			switch m := item.(type) {
			case Record:
				out[i] = m
			case map[string]any:
				out[i] = m
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected a sequence of records, got %T", ErrMalformedInput, data)
	}
}

// ApplyFilters returns the records that pass every active filter in f.
// The input is never modified. Any failure while filtering yields an empty
// result rather than a partial one.
func ApplyFilters(records []Record, f Filters, cfg FilterConfig, logger *slog.Logger) (out []Record) {
	if logger == nil {
		logger = slog.Default()
	}
	if records == nil {
		logger.Warn("apply filters expected a record sequence, got nil")
		return []Record{}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("apply filters failed", "error", fmt.Sprint(r))
			out = []Record{}
		}
	}()

	cfg = cfg.withDefaults()
	m := matcher{
		filters: f,
		cfg:     cfg,
		logger:  logger,
		scores:  make(map[[5]float64]float64),
	}
	if f.Metric != "" {
		m.metricKeys = cfg.MetricKeys[f.Metric]
	}

	out = make([]Record, 0, len(records))
	for _, rec := range records {
		if m.keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

type matcher struct {
	filters    Filters
	cfg        FilterConfig
	metricKeys []string
	logger     *slog.Logger

	// scores memoizes the five-field mean within one ApplyFilters call.
	scores map[[5]float64]float64
}

func (m *matcher) keep(rec Record) bool {
	if rec == nil {
		return false
	}
	return m.matchLocation(rec) && m.matchTime(rec) && m.matchThreshold(rec)
}

func (m *matcher) matchLocation(rec Record) bool {
	if m.filters.Location == "" {
		return true
	}
	got, ok := LocationKey(rec[m.cfg.LocationKey])
	return ok && got == m.filters.Location
}

func (m *matcher) matchTime(rec Record) bool {
	tr := m.filters.TimeRange
	raw := rec[m.cfg.TimeKey]
	if !tr.Active() || !present(raw) {
		return true
	}
	t, err := ParseReportTime(raw)
	if err != nil {
		m.logger.Warn("invalid time value", "key", m.cfg.TimeKey, "value", raw, "error", err)
		return false
	}
	return tr.Contains(t)
}

func (m *matcher) matchThreshold(rec Record) bool {
	if !m.filters.ThresholdActive() {
		return true
	}
	threshold := *m.filters.Threshold

	if len(m.metricKeys) > 0 {
		for _, key := range m.metricKeys {
			if v, ok := NumericValue(rec[key]); ok && v >= threshold {
				return true
			}
		}
		return false
	}

	score, ok := m.combinedDamage(rec)
	if !ok {
		return true
	}
	return score >= threshold
}

// combinedDamage prefers a precomputed combined_damage column and otherwise
// averages the five damage categories. The second result is false when no
// score can be derived.
func (m *matcher) combinedDamage(rec Record) (float64, bool) {
	if raw, ok := rec[FieldCombinedDamage]; ok && raw != nil {
		return NumericValue(raw)
	}

	var key [5]float64
	for i, field := range DamageFields {
		v, ok := NumericValue(rec[field])
		if !ok {
			return 0, false
		}
		key[i] = v
	}
	if score, ok := m.scores[key]; ok {
		return score, true
	}
	score := CombinedScore(key)
	m.scores[key] = score
	return score, true
}

// CombinedScore is the mean of the five damage category values.
func CombinedScore(values [5]float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
