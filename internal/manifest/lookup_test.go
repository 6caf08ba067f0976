package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwantajee/metricflow/internal/domain"
)

func testManifest(t *testing.T) *domain.SemanticManifest {
	t.Helper()
	return &domain.SemanticManifest{
		DataSources: []domain.DataSource{
			{
				Name:     "bookings_source",
				TableRef: "analytics.fct_bookings",
				Entities: []domain.Entity{{Reference: "listing"}, {Reference: "guest"}},
				Dimensions: []domain.Dimension{
					{Name: "ds", Kind: domain.DimensionTime, Granularity: domain.GranularityDay, IsPrimary: true},
					{Name: "is_instant", Kind: domain.DimensionCategorical},
				},
				Measures: []domain.Measure{
					{Name: "bookings", Agg: domain.AggregationSum, Expr: "1"},
					{Name: "booking_value", Agg: domain.AggregationSum},
				},
			},
			{
				Name:     "visits_source",
				TableRef: "analytics.fct_visits",
				Entities: []domain.Entity{{Reference: "guest"}},
				Dimensions: []domain.Dimension{
					{Name: "ds", Kind: domain.DimensionTime, Granularity: domain.GranularityDay, IsPrimary: true},
					{Name: "referrer", Kind: domain.DimensionCategorical},
				},
				Measures: []domain.Measure{
					{Name: "visits", Agg: domain.AggregationSum, Expr: "1"},
				},
			},
			{
				Name:     "listings",
				TableRef: "analytics.dim_listings",
				Entities: []domain.Entity{{Reference: "listing"}, {Reference: "company"}},
				Dimensions: []domain.Dimension{
					{Name: "country", Kind: domain.DimensionCategorical},
					{Name: "capacity", Kind: domain.DimensionCategorical},
					{Name: "window_start", Kind: domain.DimensionTime, Granularity: domain.GranularityDay, IsValidityStart: true},
					{Name: "window_end", Kind: domain.DimensionTime, Granularity: domain.GranularityDay, IsValidityEnd: true},
				},
			},
		},
		Metrics: []domain.Metric{
			{Name: "bookings", Type: domain.MetricSimple, Simple: &domain.SimpleParams{Measure: "bookings"}},
			{Name: "visits", Type: domain.MetricSimple, Simple: &domain.SimpleParams{Measure: "visits"}},
			{Name: "trailing_bookings_7d", Type: domain.MetricCumulative,
				Cumulative: &domain.CumulativeParams{
					Measure: "bookings",
					Window:  &domain.MetricTimeWindow{Count: 7, Granularity: domain.GranularityDay},
				}},
			{Name: "bookings_mtd", Type: domain.MetricCumulative,
				Cumulative: &domain.CumulativeParams{Measure: "bookings", GrainToDate: domain.GranularityMonth}},
			{Name: "bookings_growth", Type: domain.MetricDerived,
				Derived: &domain.DerivedParams{
					Expr: "bookings - bookings_last_month",
					InputMetrics: []domain.InputMetric{
						{Name: "bookings"},
						{Name: "bookings", Alias: "bookings_last_month",
							OffsetWindow: &domain.MetricTimeWindow{Count: 1, Granularity: domain.GranularityMonth}},
					},
				}},
			{Name: "booking_rate", Type: domain.MetricRatio,
				Ratio: &domain.RatioParams{
					Numerator:   domain.InputMetric{Name: "bookings"},
					Denominator: domain.InputMetric{Name: "visits"},
				}},
			{Name: "visit_to_booking", Type: domain.MetricConversion,
				Conversion: &domain.ConversionParams{
					BaseMeasure:       "visits",
					ConversionMeasure: "bookings",
					Entity:            "guest",
					Window:            &domain.MetricTimeWindow{Count: 7, Granularity: domain.GranularityDay},
					Calculation:       "conversion_rate",
				}},
		},
	}
}

func testLookup(t *testing.T) *Lookup {
	t.Helper()
	lookup, err := NewLookup(testManifest(t))
	require.NoError(t, err)
	return lookup
}

func TestLookupByName(t *testing.T) {
	lookup := testLookup(t)

	ds, err := lookup.DataSource("bookings_source")
	require.NoError(t, err)
	assert.Equal(t, "analytics.fct_bookings", ds.TableRef)

	_, err = lookup.DataSource("payments_source")
	require.Error(t, err)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, err.Error(), `"payments_source"`)

	metric, err := lookup.Metric("trailing_bookings_7d")
	require.NoError(t, err)
	assert.Equal(t, domain.MetricCumulative, metric.Type)

	_, err = lookup.Metric("revenue")
	require.ErrorAs(t, err, &notFound)
}

func TestLookupEntityIndex(t *testing.T) {
	lookup := testLookup(t)

	assert.Equal(t, []string{"bookings_source", "listings"}, lookup.EntityDataSources("listing"))
	assert.Equal(t, []string{"bookings_source", "visits_source"}, lookup.EntityDataSources("guest"))
	assert.Equal(t, []string{"listings"}, lookup.EntityDataSources("company"))
	assert.Empty(t, lookup.EntityDataSources("host"))
}

func TestLookupMeasureSource(t *testing.T) {
	lookup := testLookup(t)

	ds, err := lookup.MeasureSource("bookings")
	require.NoError(t, err)
	assert.Equal(t, "bookings_source", ds.Name)

	_, err = lookup.MeasureSource("revenue")
	require.Error(t, err)
}

func TestLookupMetricHomeSources(t *testing.T) {
	lookup := testLookup(t)

	tests := []struct {
		metric string
		want   []string
	}{
		{metric: "bookings", want: []string{"bookings_source"}},
		{metric: "trailing_bookings_7d", want: []string{"bookings_source"}},
		{metric: "bookings_growth", want: []string{"bookings_source"}},
		{metric: "booking_rate", want: []string{"bookings_source", "visits_source"}},
		{metric: "visit_to_booking", want: []string{"bookings_source", "visits_source"}},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			got, err := lookup.MetricHomeSources(tt.metric)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupValidAggTimeDimensions(t *testing.T) {
	lookup := testLookup(t)

	specs, err := lookup.ValidAggTimeDimensions("bookings")
	require.NoError(t, err)
	require.NotEmpty(t, specs)
	// The bookings source declares ds at day granularity, so every coarser
	// granularity is also a valid aggregation time dimension.
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		assert.Equal(t, "ds", s.ElementName)
		names = append(names, s.QualifiedName())
	}
	assert.Contains(t, names, "ds__day")
	assert.Contains(t, names, "ds__month")
	assert.Len(t, specs, 5)
}

func TestNewLookupRejectsDanglingMeasure(t *testing.T) {
	m := testManifest(t)
	m.Metrics = append(m.Metrics, domain.Metric{
		Name: "revenue", Type: domain.MetricSimple, Simple: &domain.SimpleParams{Measure: "gross_revenue"},
	})
	_, err := NewLookup(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `measure "gross_revenue"`)
}

func TestNewLookupRejectsInputMetricCycle(t *testing.T) {
	m := testManifest(t)
	m.Metrics = append(m.Metrics,
		domain.Metric{Name: "a", Type: domain.MetricDerived,
			Derived: &domain.DerivedParams{Expr: "b", InputMetrics: []domain.InputMetric{{Name: "b"}}}},
		domain.Metric{Name: "b", Type: domain.MetricDerived,
			Derived: &domain.DerivedParams{Expr: "a", InputMetrics: []domain.InputMetric{{Name: "a"}}}},
	)
	_, err := NewLookup(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input metric cycle")
}
