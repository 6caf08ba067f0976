package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwantajee/metricflow/internal/domain"
)

const manifestYAML = `
data_sources:
  - name: bookings_source
    table: analytics.fct_bookings
    entities:
      - name: listing
      - name: guest
    dimensions:
      - name: ds
        type: time
        granularity: day
        primary: true
      - name: is_instant
        type: categorical
    columns:
      - name: booking_channel
        type: TEXT
    measures:
      - name: bookings
        agg: sum
        expr: "1"
      - name: booking_value
        agg: sum
  - name: listings
    table: analytics.dim_listings
    entities:
      - name: listing
    dimensions:
      - name: country
        type: categorical
      - name: window_start
        type: time
        validity_start: true
      - name: window_end
        type: time
        validity_end: true
metrics:
  - name: bookings
    type: simple
    measure: bookings
  - name: trailing_bookings_7d
    type: cumulative
    measure: bookings
    window: 7 days
  - name: bookings_mtd
    type: cumulative
    measure: bookings
    grain_to_date: month
  - name: bookings_growth
    type: derived
    expr: bookings - bookings_last_month
    inputs:
      - metric: bookings
      - metric: bookings
        alias: bookings_last_month
        offset_window: 1 month
  - name: value_per_booking
    type: ratio
    numerator:
      metric: booking_value_sum
    denominator:
      metric: bookings
  - name: booking_value_sum
    type: simple
    measure: booking_value
`

func TestParseManifest(t *testing.T) {
	m, err := Parse([]byte(manifestYAML))
	require.NoError(t, err)

	require.Len(t, m.DataSources, 2)
	bookings := m.DataSources[0]
	assert.Equal(t, "analytics.fct_bookings", bookings.TableRef)
	require.Len(t, bookings.Entities, 2)

	// Declared and column-derived dimensions merge, sorted by name.
	var names []string
	for _, d := range bookings.Dimensions {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"booking_channel", "ds", "is_instant"}, names)
	assert.Equal(t, domain.DimensionCategorical, bookings.Dimensions[0].Kind)
	assert.True(t, bookings.Dimensions[1].IsPrimary)

	listings := m.DataSources[1]
	start, end := listings.ValidityWindow()
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, domain.GranularityDay, start.Granularity)

	require.Len(t, m.Metrics, 6)
	trailing := m.Metrics[1]
	assert.Equal(t, domain.MetricCumulative, trailing.Type)
	assert.Equal(t, 7, trailing.Cumulative.Window.Count)
	assert.Equal(t, domain.GranularityDay, trailing.Cumulative.Window.Granularity)

	mtd := m.Metrics[2]
	assert.Nil(t, mtd.Cumulative.Window)
	assert.Equal(t, domain.GranularityMonth, mtd.Cumulative.GrainToDate)

	growth := m.Metrics[3]
	require.Len(t, growth.Derived.InputMetrics, 2)
	assert.Nil(t, growth.Derived.InputMetrics[0].OffsetWindow)
	require.NotNil(t, growth.Derived.InputMetrics[1].OffsetWindow)
	assert.Equal(t, domain.GranularityMonth, growth.Derived.InputMetrics[1].OffsetWindow.Granularity)

	ratio := m.Metrics[4]
	assert.Equal(t, "booking_value_sum", ratio.Ratio.Numerator.Name)

	// The parsed manifest must be accepted by the lookup.
	_, err = NewLookup(m)
	require.NoError(t, err)
}

func TestParseManifestRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`
data_sources:
  - name: bookings_source
    table: t
    sharding: 4
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sharding")
}

func TestParseManifestRejectsUnmappedColumnType(t *testing.T) {
	_, err := Parse([]byte(`
data_sources:
  - name: bookings_source
    table: t
    columns:
      - name: payload
        type: VARIANT
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VARIANT")
}

func TestParseManifestDimensionConflict(t *testing.T) {
	// "created" is declared categorical but its column type maps to a time
	// dimension; the builder must reject the divergent redefinition.
	_, err := Parse([]byte(`
data_sources:
  - name: bookings_source
    table: t
    dimensions:
      - name: created
        type: categorical
    columns:
      - name: created
        type: DATE
`))
	require.Error(t, err)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
}
