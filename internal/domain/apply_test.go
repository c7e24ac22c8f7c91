package domain

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDowntown = "Downtown"
	testUptown   = "Uptown"
)

func damageRecords() []Record {
	return []Record{
		{FieldLocation: testDowntown, FieldSewerAndWater: 5, FieldPower: 8, FieldRoadsBridges: 3, FieldMedical: 2, FieldBuildings: 4},
		{FieldLocation: testUptown, FieldSewerAndWater: 1, FieldPower: 1, FieldRoadsBridges: 1, FieldMedical: 1, FieldBuildings: 1},
	}
}

func locations(records []Record) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r[FieldLocation]
	}
	return out
}

func TestApplyFilters_CombinedThreshold(t *testing.T) {
	tests := []struct {
		name      string
		filters   Filters
		locations []any
	}{
		{"mean above threshold", Filters{Threshold: Float(4)}, []any{testDowntown}},
		{"mean below threshold", Filters{Threshold: Float(5)}, []any{}},
		{"selected metric", Filters{Metric: FieldPower, Threshold: Float(5)}, []any{testDowntown}},
		{"zero threshold disables filter", Filters{Threshold: Float(0)}, []any{testDowntown, testUptown}},
		{"negative threshold disables filter", Filters{Threshold: Float(-1)}, []any{testDowntown, testUptown}},
		{"no filters", Filters{}, []any{testDowntown, testUptown}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ApplyFilters(damageRecords(), tc.filters, FilterConfig{}, slog.Default())
			assert.Equal(t, tc.locations, locations(got))
		})
	}
}

func TestApplyFilters_Location(t *testing.T) {
	got := ApplyFilters(damageRecords(), Filters{Location: testUptown}, FilterConfig{}, slog.Default())
	assert.Equal(t, []any{testUptown}, locations(got))

	t.Run("numeric location matches text filter", func(t *testing.T) {
		records := []Record{{FieldLocation: 6.0}, {FieldLocation: "6"}, {FieldLocation: 7}}
		got := ApplyFilters(records, Filters{Location: "6"}, FilterConfig{}, slog.Default())
		assert.Len(t, got, 2)
	})

	t.Run("custom location key", func(t *testing.T) {
		records := []Record{{"district": "3"}, {"district": "4"}}
		got := ApplyFilters(records, Filters{Location: "4"}, FilterConfig{LocationKey: "district"}, slog.Default())
		require.Len(t, got, 1)
		assert.Equal(t, "4", got[0]["district"])
	})
}

func TestApplyFilters_MissingDataPassesCombinedThreshold(t *testing.T) {
	records := []Record{
		{FieldLocation: "partial", FieldSewerAndWater: 1, FieldPower: 1, FieldRoadsBridges: 1, FieldMedical: 1},
		{FieldLocation: "low", FieldSewerAndWater: 1, FieldPower: 1, FieldRoadsBridges: 1, FieldMedical: 1, FieldBuildings: 1},
	}

	got := ApplyFilters(records, Filters{Threshold: Float(4)}, FilterConfig{}, slog.Default())
	assert.Equal(t, []any{"partial"}, locations(got))
}

func TestApplyFilters_MissingDataExcludedByMetricThreshold(t *testing.T) {
	records := []Record{
		{FieldLocation: "no power", FieldSewerAndWater: 9},
		{FieldLocation: "text power", FieldPower: "7"},
		{FieldLocation: "bad power", FieldPower: "n/a"},
	}

	got := ApplyFilters(records, Filters{Metric: FieldPower, Threshold: Float(5)}, FilterConfig{}, slog.Default())
	assert.Equal(t, []any{"text power"}, locations(got))
}

func TestApplyFilters_PrecomputedCombinedDamage(t *testing.T) {
	records := []Record{
		{FieldLocation: "high", FieldCombinedDamage: 6.5, FieldSewerAndWater: 0, FieldPower: 0, FieldRoadsBridges: 0, FieldMedical: 0, FieldBuildings: 0},
		{FieldLocation: "low", FieldCombinedDamage: 1.5},
		{FieldLocation: "unreadable", FieldCombinedDamage: "unknown"},
	}

	got := ApplyFilters(records, Filters{Threshold: Float(5)}, FilterConfig{}, slog.Default())
	assert.Equal(t, []any{"high", "unreadable"}, locations(got))
}

func TestApplyFilters_UnmappedMetricFallsBackToCombined(t *testing.T) {
	got := ApplyFilters(damageRecords(), Filters{Metric: "aftershocks", Threshold: Float(4)}, FilterConfig{}, slog.Default())
	assert.Equal(t, []any{testDowntown}, locations(got))
}

func TestApplyFilters_MetricWithSeveralColumns(t *testing.T) {
	cfg := FilterConfig{MetricKeys: map[string][]string{
		"infrastructure": {FieldPower, FieldRoadsBridges},
	}}
	records := []Record{
		{FieldLocation: "roads", FieldPower: 1, FieldRoadsBridges: 7},
		{FieldLocation: "neither", FieldPower: 2, FieldRoadsBridges: 2},
	}

	got := ApplyFilters(records, Filters{Metric: "infrastructure", Threshold: Float(5)}, cfg, slog.Default())
	assert.Equal(t, []any{"roads"}, locations(got))
}

func TestApplyFilters_TimeRange(t *testing.T) {
	start := time.Date(2020, time.April, 6, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, time.April, 7, 23, 59, 59, 0, time.UTC)
	filters := Filters{TimeRange: TimeRange{Start: start, End: end}}

	records := []Record{
		{FieldLocation: "start bound", FieldTime: "2020-04-06 00:00:00"},
		{FieldLocation: "inside", FieldTime: "07/04/2020 12:30"},
		{FieldLocation: "end bound", FieldTime: end},
		{FieldLocation: "after", FieldTime: "2020-04-08T00:00:00Z"},
		{FieldLocation: "unparseable", FieldTime: "yesterday"},
		{FieldLocation: "no time"},
	}

	got := ApplyFilters(records, filters, FilterConfig{}, slog.Default())
	assert.Equal(t, []any{"start bound", "inside", "end bound", "no time"}, locations(got))

	t.Run("half-open range is ignored", func(t *testing.T) {
		got := ApplyFilters(records, Filters{TimeRange: TimeRange{Start: start}}, FilterConfig{}, slog.Default())
		assert.Len(t, got, len(records))
	})
}

func TestApplyFilters_CombinedFilters(t *testing.T) {
	records := []Record{
		{FieldLocation: "6", FieldTime: "2020-04-06 10:00:00", FieldPower: 9},
		{FieldLocation: "6", FieldTime: "2020-04-09 10:00:00", FieldPower: 9},
		{FieldLocation: "6", FieldTime: "2020-04-06 11:00:00", FieldPower: 2},
		{FieldLocation: "7", FieldTime: "2020-04-06 10:00:00", FieldPower: 9},
	}
	filters := Filters{
		Location:  "6",
		Metric:    FieldPower,
		Threshold: Float(5),
		TimeRange: TimeRange{
			Start: time.Date(2020, time.April, 6, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2020, time.April, 6, 23, 59, 59, 0, time.UTC),
		},
	}

	got := ApplyFilters(records, filters, FilterConfig{}, slog.Default())
	require.Len(t, got, 1)
	assert.Equal(t, records[0], got[0])
}

func TestApplyFilters_MalformedInput(t *testing.T) {
	t.Run("nil sequence", func(t *testing.T) {
		got := ApplyFilters(nil, Filters{}, FilterConfig{}, slog.Default())
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("nil records are dropped", func(t *testing.T) {
		got := ApplyFilters([]Record{nil, {FieldLocation: "6"}}, Filters{}, FilterConfig{}, slog.Default())
		assert.Len(t, got, 1)
	})

	t.Run("panic yields empty result", func(t *testing.T) {
		records := []Record{{FieldLocation: panicky{}}}
		got := ApplyFilters(records, Filters{Location: "6"}, FilterConfig{}, slog.Default())
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

// panicky fails when rendered as a location.
type panicky struct{}

func (panicky) String() string { panic("boom") }

func TestApplyFilters_DoesNotModifyInput(t *testing.T) {
	records := damageRecords()
	_ = ApplyFilters(records, Filters{Threshold: Float(4)}, FilterConfig{}, slog.Default())
	assert.Len(t, records, 2)
	_, hasScore := records[0][FieldCombinedDamage]
	assert.False(t, hasScore)
}

func TestCombinedDamage_MemoizesRepeatedFields(t *testing.T) {
	same := func(loc string) Record {
		return Record{FieldLocation: loc, FieldSewerAndWater: 5, FieldPower: 8, FieldRoadsBridges: 3, FieldMedical: 2, FieldBuildings: 4}
	}
	records := []Record{
		same("1"),
		same("2"),
		{FieldLocation: "3", FieldSewerAndWater: 1, FieldPower: 1, FieldRoadsBridges: 1, FieldMedical: 1, FieldBuildings: 1},
		same("4"),
	}

	m := matcher{scores: make(map[[5]float64]float64)}
	want := []float64{4.4, 4.4, 1, 4.4}
	for i, rec := range records {
		score, ok := m.combinedDamage(rec)
		require.True(t, ok)
		assert.InDelta(t, want[i], score, 1e-9, "record %d", i)
	}
	assert.Len(t, m.scores, 2)

	kept := ApplyFilters(records, Filters{Threshold: Float(4)}, FilterConfig{}, slog.New(slog.DiscardHandler))
	assert.Equal(t, []any{"1", "2", "4"}, locations(kept))
}

func TestAsRecords(t *testing.T) {
	t.Run("map slices", func(t *testing.T) {
		got, err := AsRecords([]map[string]any{{FieldLocation: "1"}})
		require.NoError(t, err)
		assert.Equal(t, []Record{{FieldLocation: "1"}}, got)
	})

	t.Run("string maps from csv", func(t *testing.T) {
		got, err := AsRecords([]map[string]string{{FieldPower: "3"}})
		require.NoError(t, err)
		assert.Equal(t, []Record{{FieldPower: "3"}}, got)
	})

	t.Run("decoded json array", func(t *testing.T) {
		got, err := AsRecords([]any{map[string]any{FieldLocation: 2.0}, "junk"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Nil(t, got[1])
	})

	t.Run("not a sequence", func(t *testing.T) {
		_, err := AsRecords(map[string]any{FieldLocation: "1"})
		require.ErrorIs(t, err, ErrMalformedInput)
	})
}

func TestCombinedScore(t *testing.T) {
	assert.InDelta(t, 4.4, CombinedScore([5]float64{5, 8, 3, 2, 4}), 1e-9)
}
