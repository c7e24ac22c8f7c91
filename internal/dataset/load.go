// Package dataset loads damage-report files into records for the dashboard.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/himark-dashboard/internal/domain"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// LoadFile reads a report file, choosing the format from its extension.
func LoadFile(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".json":
		return ReadJSON(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadCSV parses CSV with a header row. Empty cells are left out of the
// record and damage columns become float64 when they parse.
func ReadCSV(r io.Reader) ([]domain.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	records := []domain.Record{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(records)+2, err)
		}

		rec := make(domain.Record, len(cols))
		for i, cell := range row {
			if i >= len(cols) || strings.TrimSpace(cell) == "" {
				continue
			}
			rec[cols[i]] = cell
		}
		records = append(records, coerce(rec))
	}
	return records, nil
}

// ReadJSON parses a JSON array of objects.
func ReadJSON(r io.Reader) ([]domain.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json dataset: %w", err)
	}

	records := make([]domain.Record, 0, len(raw))
	for _, m := range raw {
		if m == nil {
			continue
		}
		for k, v := range m {
			if v == nil {
				delete(m, k)
			}
		}
		records = append(records, coerce(m))
	}
	return records, nil
}

func coerce(rec domain.Record) domain.Record {
	for _, field := range domain.NumericFields {
		v, ok := rec[field]
		if !ok {
			continue
		}
		if n, ok := domain.NumericValue(v); ok {
			rec[field] = n
		}
	}
	if n, ok := rec[domain.FieldLocation].(json.Number); ok {
		rec[domain.FieldLocation] = n.String()
	}
	return rec
}
