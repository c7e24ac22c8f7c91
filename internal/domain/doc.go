// Package domain models St. Himark earthquake damage reports and the filters
// the dashboard applies to them.
//
// # Data Source
//
// Reports come from the citizen damage-report feed collected after the
// St. Himark earthquake (mc1-reports-data.csv) and the per-location
// aggregates derived from it (radar_chart_data.json, daily means, box plot
// statistics). Loading and cleaning are handled by the dataset package; this
// package only interprets records.
//
// # Report Conventions
//
// Location:
//
//	Integer neighborhood id, 1–19, e.g. "6" = Downtown. CSV sources carry it as
//	text, JSON aggregates as a number. Both compare equal to the same filter
//	value. See [NeighborhoodName].
//
// Time:
//
//	"2020-04-06 00:35:00" in the raw feed, "04/06/2020 00:35" (month first) in
//	the cleaned exports, RFC 3339 in anything the dashboard writes itself.
//	See [ParseReportTime].
//
// Damage scale:
//
//	Each category is a self-reported 0–10 value:
//	  sewer_and_water, power, roads_and_bridges, medical, buildings
//	shake_intensity uses the same 0–10 scale but is not a damage category.
//
// Combined damage:
//
//	The mean of the five damage categories, or the precomputed combined_damage
//	column when a source provides it. Used when a threshold is set without a
//	specific metric. A record whose score cannot be computed passes the
//	threshold filter: missing data is treated as "no information", not as
//	"no damage". The per-metric threshold does the opposite and excludes
//	records without a numeric value for the selected metric.
package domain
