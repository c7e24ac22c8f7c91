package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/couchcryptid/himark-dashboard/internal/domain"
)

// Root keys of the state tree.
const (
	RootFilters             = "filters"
	RootVisualizationStates = "visualizationStates"
	RootURLSync             = "urlSync"
	RootEvents              = "events"
)

// Paths inside the typed subtrees.
const (
	PathLocation       = "filters.location"
	PathMetric         = "filters.metric"
	PathThreshold      = "filters.threshold"
	PathTimeRange      = "filters.timeRange"
	PathTimeRangeStart = "filters.timeRange.start"
	PathTimeRangeEnd   = "filters.timeRange.end"
	PathURLSyncEnabled = "urlSync.enabled"
	PathURLSyncUpdated = "urlSync.lastUpdated"
)

// URLSync records whether filters are mirrored to the URL and when the URL
// was last written. A zero LastUpdated means never.
type URLSync struct {
	Enabled     bool      `json:"enabled"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Tree is a snapshot of the whole state. Filters and URLSync are typed;
// visualization states and any other root keys are open maps so charts can
// keep whatever they need.
type Tree struct {
	Filters             domain.Filters `json:"filters"`
	VisualizationStates map[string]any `json:"visualizationStates"`
	URLSync             URLSync        `json:"urlSync"`
	Extra               map[string]any `json:"extra,omitempty"`
}

func newTree() Tree {
	return Tree{
		VisualizationStates: map[string]any{
			"heatmap": map[string]any{
				"hoveredDistrict":  nil,
				"selectedDistrict": nil,
			},
			"radarChart": map[string]any{
				"selectedDistricts": []any{},
				"hoveredMetric":     nil,
			},
			"animationGraph": map[string]any{
				"currentTime": nil,
				"playState":   "paused",
			},
		},
		URLSync: URLSync{Enabled: true},
		Extra:   map[string]any{},
	}
}

func (t Tree) clone() Tree {
	return Tree{
		Filters:             t.Filters,
		VisualizationStates: cloneMap(t.VisualizationStates),
		URLSync:             t.URLSync,
		Extra:               cloneMap(t.Extra),
	}
}

// splitPath validates a dot path and returns its segments.
func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path must be a non-empty string", ErrInvalidArgument)
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: path %q has an empty segment", ErrInvalidArgument, path)
		}
	}
	return segs, nil
}

// get resolves segs against the tree. The bool is false when any segment is
// missing. Unset typed leaves resolve to nil.
func (t *Tree) get(segs []string) (any, bool) {
	switch segs[0] {
	case RootFilters:
		return getFilters(t.Filters, segs[1:])
	case RootURLSync:
		return getURLSync(t.URLSync, segs[1:])
	case RootVisualizationStates:
		return lookup(t.VisualizationStates, segs[1:])
	default:
		return lookup(t.Extra, segs)
	}
}

func getFilters(f domain.Filters, segs []string) (any, bool) {
	if len(segs) == 0 {
		return f, true
	}
	switch segs[0] {
	case "location":
		return leaf(segs, nilIfEmpty(f.Location))
	case "metric":
		return leaf(segs, nilIfEmpty(f.Metric))
	case "threshold":
		if f.Threshold == nil {
			return leaf(segs, nil)
		}
		return leaf(segs, *f.Threshold)
	case "timeRange":
		if len(segs) == 1 {
			return f.TimeRange, true
		}
		switch segs[1] {
		case "start":
			return leaf(segs[1:], nilIfZero(f.TimeRange.Start))
		case "end":
			return leaf(segs[1:], nilIfZero(f.TimeRange.End))
		}
	}
	return nil, false
}

func getURLSync(u URLSync, segs []string) (any, bool) {
	if len(segs) == 0 {
		return u, true
	}
	switch segs[0] {
	case "enabled":
		return leaf(segs, u.Enabled)
	case "lastUpdated":
		return leaf(segs, nilIfZero(u.LastUpdated))
	}
	return nil, false
}

// leaf returns v when segs names exactly one level; typed leaves have no
// children.
func leaf(segs []string, v any) (any, bool) {
	if len(segs) != 1 {
		return nil, false
	}
	return v, true
}

func lookup(node map[string]any, segs []string) (any, bool) {
	var cur any = node
	for _, s := range segs {
		m, ok := cur.(map[string]any)
		if !ok || m == nil {
			return nil, false
		}
		if cur, ok = m[s]; !ok {
			return nil, false
		}
	}
	return cloneValue(cur), true
}

// set writes value at segs and reports whether anything changed.
func (t *Tree) set(segs []string, value any) (bool, error) {
	switch segs[0] {
	case RootFilters:
		return setFilters(&t.Filters, segs[1:], value)
	case RootURLSync:
		return setURLSync(&t.URLSync, segs[1:], value)
	case RootVisualizationStates:
		return setOpen(&t.VisualizationStates, segs[1:], value)
	case RootEvents:
		return false, fmt.Errorf("%w: %s is managed through event listeners", ErrInvalidArgument, RootEvents)
	default:
		return setOpen(&t.Extra, segs, value)
	}
}

func setFilters(f *domain.Filters, segs []string, value any) (bool, error) {
	next := *f
	switch {
	case len(segs) == 0:
		v, err := asFilters(value)
		if err != nil {
			return false, err
		}
		next = v
	case len(segs) == 1 && segs[0] == "location":
		v, err := asString(value)
		if err != nil {
			return false, err
		}
		next.Location = v
	case len(segs) == 1 && segs[0] == "metric":
		v, err := asString(value)
		if err != nil {
			return false, err
		}
		next.Metric = v
	case len(segs) == 1 && segs[0] == "threshold":
		v, err := asThreshold(value)
		if err != nil {
			return false, err
		}
		next.Threshold = v
	case len(segs) == 1 && segs[0] == "timeRange":
		v, err := asTimeRange(value)
		if err != nil {
			return false, err
		}
		next.TimeRange = v
	case len(segs) == 2 && segs[0] == "timeRange" && segs[1] == "start":
		v, err := asTime(value)
		if err != nil {
			return false, err
		}
		next.TimeRange.Start = v
	case len(segs) == 2 && segs[0] == "timeRange" && segs[1] == "end":
		v, err := asTime(value)
		if err != nil {
			return false, err
		}
		next.TimeRange.End = v
	default:
		return false, fmt.Errorf("%w: unknown filter path %q", ErrInvalidArgument, strings.Join(segs, "."))
	}

	if equal(*f, next) {
		return false, nil
	}
	*f = next
	return true, nil
}

func setURLSync(u *URLSync, segs []string, value any) (bool, error) {
	next := *u
	switch {
	case len(segs) == 0:
		switch v := value.(type) {
		case URLSync:
			next = v
		case *URLSync:
			if v == nil {
				return false, fmt.Errorf("%w: urlSync cannot be nil", ErrInvalidArgument)
			}
			next = *v
		default:
			return false, typeError(RootURLSync, "URLSync", value)
		}
	case len(segs) == 1 && segs[0] == "enabled":
		v, ok := value.(bool)
		if !ok {
			return false, typeError(PathURLSyncEnabled, "bool", value)
		}
		next.Enabled = v
	case len(segs) == 1 && segs[0] == "lastUpdated":
		switch v := value.(type) {
		case nil:
			next.LastUpdated = time.Time{}
		case int64:
			next.LastUpdated = time.UnixMilli(v).UTC()
		default:
			t, err := asTime(value)
			if err != nil {
				return false, err
			}
			next.LastUpdated = t
		}
	default:
		return false, fmt.Errorf("%w: unknown urlSync path %q", ErrInvalidArgument, strings.Join(segs, "."))
	}

	if equal(*u, next) {
		return false, nil
	}
	*u = next
	return true, nil
}

// setOpen writes into an open map subtree. Missing intermediate nodes are
// created, and an intermediate that is not a map is replaced by an empty
// map, dropping whatever it held.
func setOpen(root *map[string]any, segs []string, value any) (bool, error) {
	if len(segs) == 0 {
		m, ok := value.(map[string]any)
		if !ok && value != nil {
			return false, typeError(RootVisualizationStates, "map[string]any", value)
		}
		if equal(*root, m) {
			return false, nil
		}
		*root = cloneMap(m)
		if *root == nil {
			*root = map[string]any{}
		}
		return true, nil
	}

	if *root == nil {
		*root = map[string]any{}
	}
	cur := *root
	for _, key := range segs[:len(segs)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok || next == nil {
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}

	last := segs[len(segs)-1]
	if old, ok := cur[last]; ok && equal(old, value) {
		return false, nil
	}
	cur[last] = cloneValue(value)
	return true, nil
}

// equal compares values structurally. Nil and empty collections are equal,
// as they serialize the same way. Values cmp cannot inspect never compare
// equal, so the write goes through.
func equal(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}

func asFilters(value any) (domain.Filters, error) {
	switch v := value.(type) {
	case nil:
		return domain.Filters{}, nil
	case domain.Filters:
		return cloneFilters(v), nil
	case *domain.Filters:
		if v == nil {
			return domain.Filters{}, nil
		}
		return cloneFilters(*v), nil
	}
	return domain.Filters{}, typeError(RootFilters, "domain.Filters", value)
}

func cloneFilters(f domain.Filters) domain.Filters {
	if f.Threshold != nil {
		f.Threshold = domain.Float(*f.Threshold)
	}
	return f
}

func asString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case *string:
		if v == nil {
			return "", nil
		}
		return *v, nil
	}
	return "", typeError("filter", "string", value)
}

func asThreshold(value any) (*float64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *float64:
		if v == nil {
			return nil, nil
		}
		return domain.Float(*v), nil
	case float64:
		return domain.Float(v), nil
	case float32:
		return domain.Float(float64(v)), nil
	case int:
		return domain.Float(float64(v)), nil
	case int64:
		return domain.Float(float64(v)), nil
	}
	return nil, typeError(PathThreshold, "number", value)
}

func asTimeRange(value any) (domain.TimeRange, error) {
	switch v := value.(type) {
	case nil:
		return domain.TimeRange{}, nil
	case domain.TimeRange:
		return v, nil
	case *domain.TimeRange:
		if v == nil {
			return domain.TimeRange{}, nil
		}
		return *v, nil
	}
	return domain.TimeRange{}, typeError(PathTimeRange, "domain.TimeRange", value)
}

func asTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, nil
		}
		return *v, nil
	}
	return time.Time{}, typeError("time", "time.Time", value)
}

func typeError(path, want string, got any) error {
	return fmt.Errorf("%w: %s expects %s, got %T", ErrInvalidArgument, path, want, got)
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nilIfZero(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies the container types the open subtrees hold so
// callers never share maps or slices with the store.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		if t == nil {
			return t
		}
		return append([]string(nil), t...)
	case domain.Filters:
		return cloneFilters(t)
	case Tree:
		return t.clone()
	}
	return v
}
