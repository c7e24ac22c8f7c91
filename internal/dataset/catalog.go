package dataset

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/himark-dashboard/internal/domain"
	"github.com/couchcryptid/himark-dashboard/internal/observability"
)

// Catalog holds the loaded report records. Records are replaced as a whole
// and never modified in place, so readers may share the slice.
type Catalog struct {
	logger  *slog.Logger
	metrics *observability.Metrics

	records atomic.Pointer[[]domain.Record]
	version atomic.Uint64
}

// NewCatalog creates an empty catalog.
func NewCatalog(logger *slog.Logger, metrics *observability.Metrics) *Catalog {
	return &Catalog{logger: logger, metrics: metrics}
}

// CheckReadiness returns nil once a dataset has been loaded.
func (c *Catalog) CheckReadiness(_ context.Context) error {
	if c.records.Load() == nil {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

// Replace swaps in a new record set.
func (c *Catalog) Replace(records []domain.Record) {
	if records == nil {
		records = []domain.Record{}
	}
	c.records.Store(&records)
	c.version.Add(1)
	c.metrics.DatasetRecords.Set(float64(len(records)))
}

// Load reads path and replaces the records.
func (c *Catalog) Load(path string) error {
	records, err := LoadFile(path)
	if err != nil {
		return err
	}
	c.Replace(records)
	c.logger.Info("dataset loaded", "path", path, "records", len(records))
	return nil
}

// LoadWithRetry keeps trying Load until it succeeds or ctx is done,
// doubling the wait between attempts up to maxBackoff.
func (c *Catalog) LoadWithRetry(ctx context.Context, path string, backoff, maxBackoff time.Duration) error {
	for {
		err := c.Load(path)
		if err == nil {
			return nil
		}
		c.logger.Warn("dataset load failed, retrying", "path", path, "error", err, "backoff", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// Records returns the current records, or nil before the first load.
func (c *Catalog) Records() []domain.Record {
	p := c.records.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Version increases with every Replace. Callers caching derived results
// key them by version.
func (c *Catalog) Version() uint64 {
	return c.version.Load()
}

// Locations returns the distinct location ids, numeric ids in numeric
// order first.
func (c *Catalog) Locations() []string {
	seen := make(map[string]struct{})
	for _, r := range c.Records() {
		if v, ok := r[domain.FieldLocation]; ok {
			if key, ok := domain.LocationKey(v); ok {
				seen[key] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	slices.SortFunc(out, compareLocations)
	return out
}

// Timestamps returns the distinct parseable report times in order.
func (c *Catalog) Timestamps() []time.Time {
	seen := make(map[int64]time.Time)
	for _, r := range c.Records() {
		v, ok := r[domain.FieldTime]
		if !ok {
			continue
		}
		t, err := domain.ParseReportTime(v)
		if err != nil {
			continue
		}
		seen[t.UnixNano()] = t
	}

	out := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

func compareLocations(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(na, nb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return cmp.Compare(a, b)
}
