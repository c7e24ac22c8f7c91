// Command filter applies dashboard filters taken from a shared dashboard
// URL to a report file and prints the matching records.
//
// Usage:
//
//	go run ./cmd/filter \
//	  -data data/cleaned_mc1-reports-data.csv \
//	  -url 'http://localhost:8080/?location=3&threshold=4' \
//	  -format csv
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"

	"github.com/couchcryptid/himark-dashboard/internal/adapter/history"
	"github.com/couchcryptid/himark-dashboard/internal/dataset"
	"github.com/couchcryptid/himark-dashboard/internal/domain"
	"github.com/couchcryptid/himark-dashboard/internal/state"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataPath := fs.String("data", "data/cleaned_mc1-reports-data.csv", "CSV or JSON report file")
	rawURL := fs.String("url", "http://localhost/", "dashboard URL carrying filter parameters")
	format := fs.String("format", "json", "output format: json, csv, or summary")
	limit := fs.Int("limit", 0, "print at most this many records (0 for all)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	records, err := dataset.LoadFile(*dataPath)
	if err != nil {
		fmt.Fprintf(stderr, "load dataset: %v\n", err)
		return 1
	}

	hist, err := history.NewMemory(*rawURL)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	store := state.New(state.WithLocation(hist), state.WithLogger(logger))
	defer store.Close()

	out := store.ApplyFilters(records, domain.FilterConfig{})
	if *limit > 0 && *limit < len(out) {
		out = out[:*limit]
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(out)
	case "csv":
		err = writeCSV(stdout, out)
	case "summary":
		_, err = fmt.Fprintf(stdout, "%s\n%d of %d records\n", domain.SummarizeFilters(store.Filters()), len(out), len(records))
	default:
		fmt.Fprintf(stderr, "unknown format %q\n", *format)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

// writeCSV writes records with a header made of every field seen, well-known
// fields first.
func writeCSV(w io.Writer, records []domain.Record) error {
	known := append([]string{domain.FieldTime, domain.FieldLocation}, domain.NumericFields...)
	var extra []string
	present := make(map[string]bool)
	for _, r := range records {
		for k := range r {
			if !present[k] && !slices.Contains(known, k) {
				extra = append(extra, k)
			}
			present[k] = true
		}
	}
	slices.Sort(extra)

	var header []string
	for _, k := range known {
		if present[k] {
			header = append(header, k)
		}
	}
	header = append(header, extra...)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, r := range records {
		for i, k := range header {
			row[i] = cell(r[k])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
