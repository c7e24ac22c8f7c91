package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeFilters(t *testing.T) {
	tests := []struct {
		name     string
		filters  Filters
		expected string
	}{
		{"empty", Filters{}, "No active filters"},
		{"known district", Filters{Location: "6"}, "Active Filters: District: Downtown (6)"},
		{"unknown district", Filters{Location: "Uptown"}, "Active Filters: District: Uptown"},
		{"metric label", Filters{Metric: FieldRoadsBridges}, "Active Filters: Metric: Roads & Bridges"},
		{"zero threshold hidden", Filters{Threshold: Float(0)}, "No active filters"},
		{
			"all filters",
			Filters{Location: "3", Metric: FieldPower, Threshold: Float(4.5)},
			"Active Filters: District: Old Town (3) | Metric: Power | Min Damage: 4.5",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SummarizeFilters(tc.filters))
		})
	}
}

func TestMetricLabel_UnknownMetric(t *testing.T) {
	assert.Equal(t, "Aftershock Count", MetricLabel("aftershock_count"))
}

func TestNeighborhoodName(t *testing.T) {
	assert.Equal(t, "Palace Hills", NeighborhoodName("1"))
	assert.Equal(t, "West Parton", NeighborhoodName(" 19 "))
	assert.Empty(t, NeighborhoodName("20"))
}

func TestNumericValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
		ok    bool
	}{
		{"float", 2.5, 2.5, true},
		{"int", 7, 7, true},
		{"json number", json.Number("3.25"), 3.25, true},
		{"padded string", " 4 ", 4, true},
		{"empty string", "", 0, false},
		{"text", "UNK", 0, false},
		{"NaN string", "NaN", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NumericValue(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestParseReportTime(t *testing.T) {
	want := time.Date(2020, time.April, 6, 0, 35, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
	}{
		{"raw feed", "2020-04-06 00:35:00"},
		{"slash date month first", "04/06/2020 00:35"},
		{"rfc3339", "2020-04-06T00:35:00Z"},
		{"unix millis", float64(want.UnixMilli())},
		{"time value", want},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseReportTime(tc.input)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseReportTime("not a time")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse report time")

	_, err = ParseReportTime(time.Time{})
	require.Error(t, err)

	got, err := ParseReportTime("04/10/2020 08:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, time.April, 10, 8, 0, 0, 0, time.UTC), got)

	_, err = ParseReportTime("13/04/2020 08:00")
	require.Error(t, err, "slash dates are month first")
}

func TestTimeRange(t *testing.T) {
	start := time.Date(2020, time.April, 6, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	r := TimeRange{Start: start, End: end}

	assert.True(t, r.Active())
	assert.True(t, r.Contains(start))
	assert.True(t, r.Contains(end))
	assert.False(t, r.Contains(end.Add(time.Nanosecond)))
	assert.False(t, TimeRange{Start: start}.Active())
}
