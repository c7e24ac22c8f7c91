package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// metricLabels are the display names used by the filter panel.
var metricLabels = map[string]string{
	FieldCombinedDamage: "Combined Damage",
	FieldSewerAndWater:  "Sewer & Water",
	FieldPower:          "Power",
	FieldRoadsBridges:   "Roads & Bridges",
	FieldMedical:        "Medical",
	FieldBuildings:      "Buildings",
	FieldShakeIntensity: "Shake Intensity",
}

// MetricLabel returns the display name for a metric key. Keys without a fixed
// label are title-cased with underscores turned into spaces.
func MetricLabel(metric string) string {
	if label, ok := metricLabels[metric]; ok {
		return label
	}
	return cases.Title(language.English).String(strings.ReplaceAll(metric, "_", " "))
}

// DescribeFilters lists the active filters in panel order.
func DescribeFilters(f Filters) []string {
	p := message.NewPrinter(language.English)

	var parts []string
	if f.Location != "" {
		if name := NeighborhoodName(f.Location); name != "" {
			parts = append(parts, p.Sprintf("District: %s (%s)", name, f.Location))
		} else {
			parts = append(parts, p.Sprintf("District: %s", f.Location))
		}
	}
	if f.Metric != "" {
		parts = append(parts, p.Sprintf("Metric: %s", MetricLabel(f.Metric)))
	}
	if f.Threshold != nil && *f.Threshold != 0 {
		parts = append(parts, p.Sprintf("Min Damage: %v", *f.Threshold))
	}
	return parts
}

// SummarizeFilters renders the filter panel status line.
func SummarizeFilters(f Filters) string {
	parts := DescribeFilters(f)
	if len(parts) == 0 {
		return "No active filters"
	}
	return "Active Filters: " + strings.Join(parts, " | ")
}
