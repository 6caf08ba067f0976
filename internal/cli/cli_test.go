package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifestYAML = `
data_sources:
  - name: bookings_source
    table: analytics.fct_bookings
    entities:
      - name: listing
    dimensions:
      - name: ds
        type: time
        granularity: day
        primary: true
      - name: is_instant
        type: categorical
    measures:
      - name: bookings
        agg: sum
        expr: "1"
  - name: listings
    table: analytics.dim_listings
    entities:
      - name: listing
    dimensions:
      - name: country
        type: categorical
metrics:
  - name: bookings
    type: simple
    measure: bookings
`

const testQueryYAML = `
metrics:
  - bookings
group_by:
  - metric_time
  - listing__country
`

// writeFixtures writes a manifest and query file into a temp dir.
func writeFixtures(t *testing.T) (manifestPath, queryPath string) {
	t.Helper()
	dir := t.TempDir()
	manifestPath = filepath.Join(dir, "manifest.yaml")
	queryPath = filepath.Join(dir, "query.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(testManifestYAML), 0o644))
	require.NoError(t, os.WriteFile(queryPath, []byte(testQueryYAML), 0o644))
	return manifestPath, queryPath
}

// runCmd executes the root command with the given args and returns stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	manifestPath, _ := writeFixtures(t)

	out, err := runCmd(t, "validate", "--manifest", manifestPath)
	require.NoError(t, err)
	// The listing entity appears in two sources, so no unused-entity warning.
	assert.Contains(t, out, "OK")
}

func TestValidateCommandWithQuery(t *testing.T) {
	manifestPath, queryPath := writeFixtures(t)

	out, err := runCmd(t, "validate", "--manifest", manifestPath, "--query", queryPath)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
}

func TestValidateCommandBadQuery(t *testing.T) {
	manifestPath, _ := writeFixtures(t)
	queryPath := filepath.Join(t.TempDir(), "query.yaml")
	require.NoError(t, os.WriteFile(queryPath, []byte(`
metrics:
  - bookings
group_by:
  - nonexistent
`), 0o644))

	out, err := runCmd(t, "validate", "--manifest", manifestPath, "--query", queryPath)
	require.Error(t, err)
	assert.Contains(t, out, "nonexistent")
}

func TestValidateCommandMissingManifest(t *testing.T) {
	_, err := runCmd(t, "validate", "--manifest", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestExplainCommand(t *testing.T) {
	manifestPath, queryPath := writeFixtures(t)

	out, err := runCmd(t, "explain", "--manifest", manifestPath, "--query", queryPath)
	require.NoError(t, err)
	assert.Contains(t, out, "SimpleMetric bookings <- bookings")
	assert.Contains(t, out, "Join on listing")
	assert.Contains(t, out, "ReadSource bookings_source (analytics.fct_bookings)")
}

func TestExplainCommandRequiresQuery(t *testing.T) {
	manifestPath, _ := writeFixtures(t)
	_, err := runCmd(t, "explain", "--manifest", manifestPath)
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "metricflow version")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := runCmd(t, "version", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
