package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_ValidFile(t *testing.T) {
	path := writeFile(t, "reports.csv", `time,sewer_and_water,power,roads_and_bridges,medical,buildings,shake_intensity,location
2020-04-06 00:00:00,5,8,3,2,4,6,6
2020-04-07 12:30:00,,7.5,,3,,4,3
2020-04-08 18:00:00,2,2,2,2,2,1,3
2020-04-10 23:59:00,9,9,9,9,9,9,19
`)
	var stdout, stderr bytes.Buffer
	code := run([]string{"-data", path}, &stdout, &stderr)

	assert.Equal(t, 0, code, stdout.String())
	assert.Contains(t, stdout.String(), "All validations passed.")
	assert.Contains(t, stdout.String(), "Records: 4, locations: 3, distinct times: 4")
}

func TestRun_ReportsSchemaErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-data", "../../internal/dataset/testdata/reports.csv"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	out := stdout.String()
	assert.Contains(t, out, "--- Phase 1: Report Schema ---")
	assert.Contains(t, out, "record 4: power=n/a is not numeric")
	assert.NotContains(t, out, "--- Phase 4: Share Links ---")
	assert.Contains(t, out, "Validation FAILED.")
}

func TestValidateSchema(t *testing.T) {
	path := writeFile(t, "reports.json", `[
  {"location": 20, "time": "2020-04-06 10:00:00", "power": 3},
  {"location": "2", "time": "2020-05-01 10:00:00", "medical": 11},
  {"time": "not a time"}
]`)
	var stdout, stderr bytes.Buffer
	code := run([]string{"-data", path}, &stdout, &stderr)
	require.Equal(t, 1, code)

	out := stdout.String()
	assert.Contains(t, out, `record 0: location "20" is not a St. Himark district`)
	assert.Contains(t, out, "record 1: time 2020-05-01 10:00:00 outside 2020-04-06..2020-04-11")
	assert.Contains(t, out, "record 1: medical=11 outside 0..10")
	assert.Contains(t, out, "record 2: location is missing")
	assert.Contains(t, out, `record 2: parse report time: unrecognized value "not a time"`)
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(nil, &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"-bogus"}, &stdout, &stderr))
	assert.Equal(t, 1, run([]string{"-data", "missing.csv"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "FATAL: load missing.csv")
}
