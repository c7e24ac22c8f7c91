// Command validate checks a St. Himark report file end to end: field ranges,
// filter consistency across locations and metrics, and that share links
// reproduce the filters and result sets they were written from.
//
// Usage:
//
//	go run ./cmd/validate -data data/mock/reports.csv
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/himark-dashboard/internal/adapter/history"
	"github.com/couchcryptid/himark-dashboard/internal/dataset"
	"github.com/couchcryptid/himark-dashboard/internal/domain"
	"github.com/couchcryptid/himark-dashboard/internal/observability"
	"github.com/couchcryptid/himark-dashboard/internal/state"
)

// Reports must fall inside the observation window.
var (
	windowStart = time.Date(2020, time.April, 6, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2020, time.April, 11, 0, 0, 0, 0, time.UTC)
)

const shareThreshold = 5

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataPath := fs.String("data", "", "CSV or JSON report file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dataPath == "" {
		fs.Usage()
		return 2
	}

	logger := slog.New(slog.DiscardHandler)
	catalog := dataset.NewCatalog(logger, observability.NewUnregisteredMetrics())

	fmt.Fprintln(stdout, "=== St. Himark Report Validation ===")
	fmt.Fprintln(stdout)

	if err := catalog.Load(*dataPath); err != nil {
		fmt.Fprintf(stderr, "FATAL: load %s: %v\n", *dataPath, err)
		return 1
	}
	records := catalog.Records()

	phases := []*phase{
		validateSchema(records),
		validateLocationPartition(catalog, logger),
		validateMetricThresholds(records, logger),
		validateShareLinks(catalog, logger),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(stdout, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Records: %d, locations: %d, distinct times: %d\n",
		len(records), len(catalog.Locations()), len(catalog.Timestamps()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(stdout, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(stdout, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(stdout, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(stdout, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Report Schema ──

func validateSchema(records []domain.Record) *phase {
	p := &phase{name: "Phase 1: Report Schema"}
	for i, rec := range records {
		pf := func(format string, args ...any) {
			p.errorf("record %d: "+format, append([]any{i}, args...)...)
		}

		loc, ok := domain.LocationKey(rec[domain.FieldLocation])
		switch {
		case !ok:
			pf("location is missing")
		case domain.NeighborhoodName(loc) == "":
			pf("location %q is not a St. Himark district", loc)
		}

		t, err := domain.ParseReportTime(rec[domain.FieldTime])
		if err != nil {
			pf("%v", err)
		} else if t.Before(windowStart) || !t.Before(windowEnd) {
			pf("time %s outside %s..%s", t.Format(time.DateTime), windowStart.Format(time.DateOnly), windowEnd.Format(time.DateOnly))
		}

		for _, field := range domain.NumericFields {
			raw, present := rec[field]
			if !present {
				continue
			}
			v, ok := domain.NumericValue(raw)
			if !ok {
				pf("%s=%v is not numeric", field, raw)
				continue
			}
			if v < 0 || v > 10 {
				pf("%s=%g outside 0..10", field, v)
			}
		}
	}
	return p
}

// ── Phase 2: Location Partition ──
// Every record with a location is returned by exactly one location filter.

func validateLocationPartition(catalog *dataset.Catalog, logger *slog.Logger) *phase {
	p := &phase{name: "Phase 2: Location Partition"}
	records := catalog.Records()

	var located int
	for _, rec := range records {
		if _, ok := domain.LocationKey(rec[domain.FieldLocation]); ok {
			located++
		}
	}

	var total int
	for _, loc := range catalog.Locations() {
		kept := domain.ApplyFilters(records, domain.Filters{Location: loc}, domain.FilterConfig{}, logger)
		for i, rec := range kept {
			if got, _ := domain.LocationKey(rec[domain.FieldLocation]); got != loc {
				p.errorf("location %s: result %d has location %q", loc, i, got)
			}
		}
		total += len(kept)
	}
	if total != located {
		p.errorf("location filters returned %d records in total, %d records have a location", total, located)
	}
	return p
}

// ── Phase 3: Metric Thresholds ──

func validateMetricThresholds(records []domain.Record, logger *slog.Logger) *phase {
	p := &phase{name: "Phase 3: Metric Thresholds"}
	for _, metric := range domain.DamageFields {
		f := domain.Filters{Metric: metric, Threshold: domain.Float(shareThreshold)}
		kept := domain.ApplyFilters(records, f, domain.FilterConfig{}, logger)

		var want int
		for _, rec := range records {
			if v, ok := domain.NumericValue(rec[metric]); ok && v >= shareThreshold {
				want++
			}
		}
		if len(kept) != want {
			p.errorf("%s >= %d: filter kept %d records, expected %d", metric, shareThreshold, len(kept), want)
		}
		for i, rec := range kept {
			if v, ok := domain.NumericValue(rec[metric]); !ok || v < shareThreshold {
				p.errorf("%s >= %d: result %d has %s=%v", metric, shareThreshold, i, metric, rec[metric])
			}
		}
	}
	return p
}

// ── Phase 4: Share Links ──
// A link written from one dashboard restores the same filters and results
// in another.

func validateShareLinks(catalog *dataset.Catalog, logger *slog.Logger) *phase {
	p := &phase{name: "Phase 4: Share Links"}
	clock := clockwork.NewFakeClockAt(windowEnd)

	cases := []domain.Filters{
		{Metric: domain.FieldCombinedDamage, Threshold: domain.Float(shareThreshold)},
		{Metric: domain.FieldMedical, Threshold: domain.Float(2.5)},
	}
	if locs := catalog.Locations(); len(locs) > 0 {
		cases = append(cases, domain.Filters{Location: locs[0]})
	}
	if ts := catalog.Timestamps(); len(ts) > 1 {
		mid := ts[len(ts)/2]
		cases = append(cases, domain.Filters{TimeRange: domain.TimeRange{Start: ts[0], End: mid}})
	}

	for _, want := range cases {
		link, err := writeShareLink(want, clock, logger)
		if err != nil {
			p.errorf("write %s: %v", domain.SummarizeFilters(want), err)
			continue
		}

		hist, err := history.NewMemory(link)
		if err != nil {
			p.errorf("parse %s: %v", link, err)
			continue
		}
		restored := state.New(state.WithLocation(hist), state.WithClock(clock), state.WithLogger(logger))
		got := restored.Filters()

		if diff := cmp.Diff(want, got); diff != "" {
			p.errorf("%s: restored filters differ (-want +got):\n%s", link, diff)
		}
		wantN := len(domain.ApplyFilters(catalog.Records(), want, domain.FilterConfig{}, logger))
		gotN := len(restored.ApplyFilters(catalog.Records(), domain.FilterConfig{}))
		if wantN != gotN {
			p.errorf("%s: restored dashboard shows %d records, expected %d", link, gotN, wantN)
		}
		restored.Close()
	}
	return p
}

func writeShareLink(f domain.Filters, clock clockwork.Clock, logger *slog.Logger) (string, error) {
	hist, err := history.NewMemory("http://localhost/dashboard")
	if err != nil {
		return "", err
	}
	store := state.New(state.WithLocation(hist), state.WithClock(clock), state.WithLogger(logger))
	defer store.Close()

	if err := store.SetSilent(state.RootFilters, f); err != nil {
		return "", err
	}
	if err := store.WriteURLFromState(); err != nil {
		return "", err
	}
	u, err := hist.URL()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
