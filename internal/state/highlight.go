package state

import (
	"fmt"
	"time"
)

// HighlightKind names what the highlights box is showing.
type HighlightKind string

const (
	HighlightNone     HighlightKind = "none"
	HighlightDistrict HighlightKind = "district"
	HighlightMetric   HighlightKind = "metric"
	HighlightTime     HighlightKind = "time"
)

// Highlight is the content of the dashboard highlights box.
type Highlight struct {
	Kind   HighlightKind `json:"kind"`
	Title  string        `json:"title"`
	Detail string        `json:"detail"`
}

// HighlightFor derives the highlights box from the visualization states. A
// hovered or selected heatmap district wins over a hovered radar metric,
// which wins over the animation's current time.
func HighlightFor(s *Store) Highlight {
	if d := firstSet(s, "visualizationStates.heatmap.hoveredDistrict", "visualizationStates.heatmap.selectedDistrict"); d != nil {
		return Highlight{
			Kind:   HighlightDistrict,
			Title:  "District: " + display(d),
			Detail: "View this district in other visualizations for more insights.",
		}
	}
	if m := firstSet(s, "visualizationStates.radarChart.hoveredMetric"); m != nil {
		return Highlight{
			Kind:   HighlightMetric,
			Title:  "Metric: " + display(m),
			Detail: "This damage metric is shown across all districts in the heatmap.",
		}
	}
	if t := firstSet(s, "visualizationStates.animationGraph.currentTime"); t != nil {
		return Highlight{
			Kind:   HighlightTime,
			Title:  "Time: " + display(t),
			Detail: "Damage data from this time point is displayed in other visualizations.",
		}
	}
	return Highlight{
		Kind:   HighlightNone,
		Detail: "Hover over or select elements in any visualization to see details here.",
	}
}

// WatchHighlights calls fn with a fresh Highlight whenever any
// visualization state changes.
func WatchHighlights(s *Store, fn func(Highlight)) *Subscription {
	return s.Subscribe(RootVisualizationStates, func(any, string) {
		fn(HighlightFor(s))
	})
}

func firstSet(s *Store, paths ...string) any {
	for _, p := range paths {
		v, ok := s.Get(p)
		if !ok || v == nil {
			continue
		}
		if str, isStr := v.(string); isStr && str == "" {
			continue
		}
		return v
	}
	return nil
}

func display(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.DateTime)
	case string:
		return t
	}
	return fmt.Sprint(v)
}
