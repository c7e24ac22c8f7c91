package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighlightFor(t *testing.T) {
	f := newFixture(t, "http://dash.local/")
	s := f.store

	h := HighlightFor(s)
	assert.Equal(t, HighlightNone, h.Kind)
	assert.Empty(t, h.Title)

	require.NoError(t, s.Set("visualizationStates.animationGraph.currentTime", time.Date(2020, 4, 8, 14, 0, 0, 0, time.UTC)))
	h = HighlightFor(s)
	assert.Equal(t, HighlightTime, h.Kind)
	assert.Equal(t, "Time: 2020-04-08 14:00:00", h.Title)

	require.NoError(t, s.Set("visualizationStates.radarChart.hoveredMetric", "medical"))
	assert.Equal(t, "Metric: medical", HighlightFor(s).Title)

	require.NoError(t, s.Set("visualizationStates.heatmap.selectedDistrict", "4"))
	assert.Equal(t, "District: 4", HighlightFor(s).Title)

	require.NoError(t, s.Set("visualizationStates.heatmap.hoveredDistrict", "Safe Town"))
	h = HighlightFor(s)
	assert.Equal(t, HighlightDistrict, h.Kind)
	assert.Equal(t, "District: Safe Town", h.Title)
	assert.Contains(t, h.Detail, "other visualizations")

	require.NoError(t, s.Set("visualizationStates.heatmap.hoveredDistrict", ""))
	assert.Equal(t, "District: 4", HighlightFor(s).Title)
}

func TestWatchHighlights(t *testing.T) {
	f := newFixture(t, "http://dash.local/")
	got := make(chan Highlight, 4)
	sub := WatchHighlights(f.store, func(h Highlight) { got <- h })
	defer sub.Unsubscribe()

	require.NoError(t, f.store.Set("visualizationStates.radarChart.hoveredMetric", "power"))
	f.clock.Advance(tick)

	select {
	case h := <-got:
		assert.Equal(t, HighlightMetric, h.Kind)
		assert.Equal(t, "Metric: power", h.Title)
	case <-time.After(wait):
		t.Fatal("no highlight update")
	}
}
