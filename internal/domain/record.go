package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is one row of tabular report data. Field names follow the source
// files (location, time, sewer_and_water, ...); values are whatever the
// loader produced and are never type-checked up front.
type Record map[string]any

// Well-known record fields.
const (
	FieldLocation       = "location"
	FieldTime           = "time"
	FieldSewerAndWater  = "sewer_and_water"
	FieldPower          = "power"
	FieldRoadsBridges   = "roads_and_bridges"
	FieldMedical        = "medical"
	FieldBuildings      = "buildings"
	FieldShakeIntensity = "shake_intensity"
	FieldCombinedDamage = "combined_damage"
)

// DamageFields are the five categories averaged into the combined damage score.
var DamageFields = [5]string{
	FieldSewerAndWater,
	FieldPower,
	FieldRoadsBridges,
	FieldMedical,
	FieldBuildings,
}

// NumericFields lists every field a loader should coerce to a number.
var NumericFields = []string{
	FieldSewerAndWater,
	FieldPower,
	FieldRoadsBridges,
	FieldMedical,
	FieldBuildings,
	FieldShakeIntensity,
	FieldCombinedDamage,
}

// neighborhoods maps St. Himark location ids to neighborhood names.
var neighborhoods = map[string]string{
	"1":  "Palace Hills",
	"2":  "Northwest",
	"3":  "Old Town",
	"4":  "Safe Town",
	"5":  "Southwest",
	"6":  "Downtown",
	"7":  "Wilson Forest",
	"8":  "Scenic Vista",
	"9":  "Broadview",
	"10": "Chapparal",
	"11": "Terrapin Springs",
	"12": "Pepper Mill",
	"13": "Cheddarford",
	"14": "Easton",
	"15": "Weston",
	"16": "Southton",
	"17": "Oak Willow",
	"18": "East Parton",
	"19": "West Parton",
}

// NeighborhoodName returns the neighborhood for a location id, or "" when the
// id is unknown.
func NeighborhoodName(id string) string {
	return neighborhoods[strings.TrimSpace(id)]
}

// NumericValue interprets v as a number. Strings are parsed the way the
// dashboard's CSV sources need (surrounding space ignored); NaN and infinities
// are rejected so they never satisfy a threshold.
func NumericValue(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// LocationKey renders a location value so that the text "6" and the number 6
// compare equal.
func LocationKey(v any) (string, bool) {
	switch l := v.(type) {
	case nil:
		return "", false
	case string:
		return l, true
	case fmt.Stringer:
		return l.String(), true
	}
	if f, ok := NumericValue(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return fmt.Sprint(v), true
}

// reportTimeLayouts are tried in order by ParseReportTime.
var reportTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04",
	"2006-01-02",
}

// ParseReportTime interprets a record's time value. Layouts without a zone
// are read as UTC. Numbers are Unix milliseconds.
func ParseReportTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, fmt.Errorf("parse report time: zero time")
		}
		return t, nil
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, fmt.Errorf("parse report time: zero time")
		}
		return *t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range reportTimeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("parse report time: unrecognized value %q", t)
	}
	if ms, ok := NumericValue(v); ok {
		return time.UnixMilli(int64(ms)).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("parse report time: unsupported type %T", v)
}

// present reports whether a record field carries a value at all.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case time.Time:
		return !t.IsZero()
	}
	return true
}
