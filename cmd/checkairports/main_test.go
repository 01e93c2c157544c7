package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	rules := writeFile(t, dir, "airports.yaml", `
ignored: [ENRE]
airports:
  ENZV:
    crosswind_limit_kt: 25
    overrides: [{kind: fog}]
    priority: [{runways: ["18", "36"], threshold_kt: 15}]
`)
	runways := writeFile(t, dir, "runway.txt", "18 36 177 357 a b c d ENZV\n07 25 070 250 a b c d ENRE\n")

	var out bytes.Buffer
	code := run(rules, runways, true, &out)

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "ENZV   PASS")
	assert.Contains(t, out.String(), "runways:   18/177 36/357")
	assert.Contains(t, out.String(), "overrides: fog")
	assert.Contains(t, out.String(), "priority:  18/36 below 15 kt crosswind")
	assert.Contains(t, out.String(), "ENRE   IGNORED")
	assert.Contains(t, out.String(), "Airports: 1 valid, 0 rejected, 1 ignored")
}

func TestRun_Rejected(t *testing.T) {
	dir := t.TempDir()
	rules := writeFile(t, dir, "airports.yaml", `
airports:
  ENZV:
    preferred_runway: "09"
`)
	runways := writeFile(t, dir, "runway.txt", "18 36 177 357 a b c d ENZV\n")

	var out bytes.Buffer
	code := run(rules, runways, false, &out)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), `ENZV   FAIL preferred runway "09" is not configured`)
	assert.Contains(t, out.String(), "Check FAILED.")
}

func TestRun_MissingRules(t *testing.T) {
	var out bytes.Buffer
	code := run(filepath.Join(t.TempDir(), "nope.yaml"), "", false, &out)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "FATAL")
}
