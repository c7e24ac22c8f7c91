package main

import (
	"bytes"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/himark-dashboard/internal/dataset"
	"github.com/couchcryptid/himark-dashboard/internal/domain"
)

func TestRun_CSVLoadsBack(t *testing.T) {
	out := filepath.Join(t.TempDir(), "mock", "reports.csv")
	var logs bytes.Buffer

	require.NoError(t, run([]string{"-out", out, "-per-location", "3", "-seed", "7"}, &logs))
	assert.Contains(t, logs.String(), "generated 57 reports for 19 locations")

	records, err := dataset.LoadFile(out)
	require.NoError(t, err)
	require.Len(t, records, 57)

	seen := map[string]bool{}
	for _, r := range records {
		loc, ok := domain.LocationKey(r[domain.FieldLocation])
		require.True(t, ok)
		assert.NotEmpty(t, domain.NeighborhoodName(loc))
		seen[loc] = true

		_, err := domain.ParseReportTime(r[domain.FieldTime])
		require.NoError(t, err)
		if v, ok := r[domain.FieldPower]; ok {
			assert.IsType(t, float64(0), v)
		}
	}
	assert.Len(t, seen, 19)
}

func TestRun_JSONLoadsBack(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports.json")
	require.NoError(t, run([]string{"-out", out, "-per-location", "2"}, &bytes.Buffer{}))

	records, err := dataset.LoadFile(out)
	require.NoError(t, err)
	assert.Len(t, records, 38)
}

func TestRun_Deterministic(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")
	require.NoError(t, run([]string{"-out", a, "-seed", "42", "-per-location", "5"}, &bytes.Buffer{}))
	require.NoError(t, run([]string{"-out", b, "-seed", "42", "-per-location", "5"}, &bytes.Buffer{}))

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, string(da), string(db))
}

func TestRun_Errors(t *testing.T) {
	var logs bytes.Buffer
	require.Error(t, run(nil, &logs))
	require.Error(t, run([]string{"-out", "reports.xml"}, &logs))
	require.Error(t, run([]string{"-out", "reports.csv", "-per-location", "0"}, &logs))
	require.Error(t, run([]string{"-bogus"}, &logs))
}

func TestGenerate_SortedAndBounded(t *testing.T) {
	records := generate(rand.New(rand.NewPCG(1, 2)), 10, 0.2)
	require.Len(t, records, 190)

	var missing int
	for i, r := range records {
		if i > 0 {
			assert.LessOrEqual(t, records[i-1][domain.FieldTime], r[domain.FieldTime])
		}
		for _, field := range domain.DamageFields {
			v, ok := r[field]
			if !ok {
				missing++
				continue
			}
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 10.0)
		}
	}
	assert.Positive(t, missing)
}

func TestDamageAt(t *testing.T) {
	assert.InDelta(t, 1.0, damageAt(quakeTime.Add(-time.Hour)), 0)
	assert.InDelta(t, 8.0, damageAt(quakeTime), 1e-9)
	assert.Less(t, damageAt(quakeTime.Add(48*time.Hour)), damageAt(quakeTime.Add(time.Hour)))
}
