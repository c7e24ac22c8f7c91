// Command genmock writes a synthetic St. Himark damage-report file for local
// dashboard runs and tests. Output is deterministic for a given seed.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/reports.csv \
//	  -per-location 40 \
//	  -seed 7
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/himark-dashboard/internal/domain"
)

// Report window and the quake hour, when damage peaks.
var (
	baseDate  = time.Date(2020, time.April, 6, 0, 0, 0, 0, time.UTC)
	window    = 5 * 24 * time.Hour
	quakeTime = time.Date(2020, time.April, 8, 8, 35, 0, 0, time.UTC)
)

const reportTimeLayout = "2006-01-02 15:04:05"

var columns = []string{
	domain.FieldTime,
	domain.FieldSewerAndWater,
	domain.FieldPower,
	domain.FieldRoadsBridges,
	domain.FieldMedical,
	domain.FieldBuildings,
	domain.FieldShakeIntensity,
	domain.FieldLocation,
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, logOut io.Writer) error {
	fs := flag.NewFlagSet("genmock", flag.ContinueOnError)
	fs.SetOutput(logOut)
	out := fs.String("out", "", "output path (.csv or .json)")
	perLocation := fs.Int("per-location", 40, "reports generated per location")
	seed := fs.Uint64("seed", 1, "random seed")
	missing := fs.Float64("missing", 0.05, "probability that a damage cell is left empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := log.New(logOut, "", 0)

	if *out == "" {
		fs.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *perLocation < 1 {
		return fmt.Errorf("-per-location must be positive")
	}

	records := generate(rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)), *perLocation, *missing)
	logger.Printf("generated %d reports for %d locations", len(records), 19)

	var err error
	switch strings.ToLower(filepath.Ext(*out)) {
	case ".csv":
		err = writeCSV(*out, records)
	case ".json":
		err = writeJSON(*out, records)
	default:
		return fmt.Errorf("unsupported output extension %q", filepath.Ext(*out))
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	logger.Printf("wrote %s", *out)

	printStats(logger, records)
	return nil
}

// generate produces reports sorted by time. Damage rises sharply after the
// quake and decays over the following day; some locations are harder hit.
func generate(rng *rand.Rand, perLocation int, missing float64) []domain.Record {
	var records []domain.Record //nolint:prealloc // size is a product of flags
	for loc := 1; loc <= 19; loc++ {
		severity := 0.5 + rng.Float64()
		for range perLocation {
			at := baseDate.Add(time.Duration(rng.Int64N(int64(window / time.Minute))) * time.Minute)
			intensity := damageAt(at) * severity

			rec := domain.Record{
				domain.FieldTime:     at.Format(reportTimeLayout),
				domain.FieldLocation: strconv.Itoa(loc),
			}
			for _, field := range domain.DamageFields {
				if rng.Float64() < missing {
					continue
				}
				rec[field] = clampScore(intensity + rng.NormFloat64()*1.5)
			}
			rec[domain.FieldShakeIntensity] = clampScore(intensity*1.1 + rng.NormFloat64())
			records = append(records, rec)
		}
	}

	slices.SortStableFunc(records, func(a, b domain.Record) int {
		return strings.Compare(a[domain.FieldTime].(string), b[domain.FieldTime].(string))
	})
	return records
}

// damageAt is the expected damage level at t on the 0-10 scale.
func damageAt(t time.Time) float64 {
	if t.Before(quakeTime) {
		return 1
	}
	hours := t.Sub(quakeTime).Hours()
	return 1 + 7*math.Exp(-hours/24)
}

func clampScore(v float64) float64 {
	return math.Round(math.Max(0, math.Min(10, v)))
}

func writeCSV(path string, records []domain.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // closed explicitly below on success

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return err
	}
	row := make([]string, len(columns))
	for _, r := range records {
		for i, col := range columns {
			row[i] = ""
			switch v := r[col].(type) {
			case string:
				row[i] = v
			case float64:
				row[i] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644) //nolint:gosec // fixture file
}

func printStats(logger *log.Logger, records []domain.Record) {
	var before, after int
	for _, r := range records {
		t, err := domain.ParseReportTime(r[domain.FieldTime])
		if err != nil {
			continue
		}
		if t.Before(quakeTime) {
			before++
		} else {
			after++
		}
	}
	logger.Printf("reports before quake: %d, after: %d", before, after)

	threshold := domain.Float(5)
	kept := domain.ApplyFilters(records, domain.Filters{Threshold: threshold}, domain.FilterConfig{}, nil)
	logger.Printf("reports with combined damage >= %v: %d", *threshold, len(kept))
}
