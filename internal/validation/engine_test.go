package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwantajee/metricflow/internal/manifest"
	"github.com/hwantajee/metricflow/internal/query"
)

// panickingRule fails for one metric name and passes for all others.
type panickingRule struct {
	failFor string
}

func (panickingRule) Name() string { return "panicking_rule" }

func (r panickingRule) ValidateMetric(_ *manifest.Lookup, metric query.MetricResolution,
	_ *query.ResolverInputForQuery, _ query.ResolutionPath) []Issue {
	if metric.Name == r.failFor {
		panic("boom")
	}
	return nil
}

func TestValidateModel(t *testing.T) {
	engine := NewEngine(testLookup(t))
	results := engine.ValidateModel()

	assert.False(t, results.Blocking())
	require.Len(t, results.Warnings, 1)
	assert.Contains(t, results.Warnings[0].Message, "entity `company`")
}

func TestValidateQueryCumulativeScenario(t *testing.T) {
	// Metric with a 7 day window queried by listing only: exactly one error
	// referencing the metric-time requirement.
	res := resolveQuery(t, []string{"trailing_bookings_7d"}, []string{"listing"})

	results := NewEngine(testLookup(t)).ValidateQuery(res)
	assert.True(t, results.Blocking())
	require.Len(t, results.Errors, 1)
	assert.Contains(t, results.Errors[0].Message, `cumulative metric "trailing_bookings_7d" requires metric_time`)
	assert.Contains(t, results.Errors[0].Context.String(), "metric:trailing_bookings_7d")
}

func TestValidateQueryOffsetScenario(t *testing.T) {
	// Derived metric with a 1 month offset queried by metric_time: no issues.
	res := resolveQuery(t, []string{"bookings_growth"}, []string{"metric_time"})

	results := NewEngine(testLookup(t)).ValidateQuery(res)
	assert.False(t, results.Blocking())
	assert.Empty(t, results.All())
}

func TestValidateQueryFoldsResolutionIssues(t *testing.T) {
	input, err := query.ParseResolverInput(&query.MetricQueryRequest{
		Metrics: []string{"bookings"},
		GroupBy: []string{"country_typo"},
	})
	require.NoError(t, err)
	res, err := query.NewResolver(testLookup(t)).Resolve(input)
	require.NoError(t, err)
	require.Len(t, res.Issues, 1)

	results := NewEngine(testLookup(t)).ValidateQuery(res)
	assert.True(t, results.Blocking())
	require.Len(t, results.Errors, 1)
	assert.Contains(t, results.Errors[0].Message, "country_typo")
}

func TestRunSafelyIsolatesFailures(t *testing.T) {
	res := resolveQuery(t, []string{"bookings", "trailing_bookings_7d"}, []string{"metric_time"})

	engine := NewEngine(testLookup(t))
	engine.queryRules = []QueryRule{panickingRule{failFor: "bookings"}, MetricTimeRule{}}

	results := engine.ValidateQuery(res)

	// The panic for the first metric becomes a structured error; the
	// metric-time rule still ran for both metrics without issues.
	require.Len(t, results.Errors, 1)
	assert.Contains(t, results.Errors[0].Message, `validation rule "panicking_rule" failed: boom`)
	assert.Contains(t, results.Errors[0].Context.String(), "metric:bookings")
}

func TestRunSafelyDeterministicOrder(t *testing.T) {
	res := resolveQuery(t,
		[]string{"trailing_bookings_7d", "bookings_mtd", "bookings_growth"},
		[]string{"listing"})

	engine := NewEngine(testLookup(t))
	for range 20 {
		results := engine.ValidateQuery(res)
		require.Len(t, results.Errors, 3)
		// Issue order follows metric input order regardless of which
		// parallel invocation finished first.
		assert.Contains(t, results.Errors[0].Message, "trailing_bookings_7d")
		assert.Contains(t, results.Errors[1].Message, "bookings_mtd")
		assert.Contains(t, results.Errors[2].Message, "bookings_growth")
	}
}

func TestResultsPartitionAndMerge(t *testing.T) {
	r := FromIssues([]Issue{
		{Severity: SeverityWarning, Message: "w1"},
		{Severity: SeverityError, Message: "e1"},
		{Severity: SeverityFutureError, Message: "f1"},
		{Severity: SeverityError, Message: "e2"},
	})
	require.Len(t, r.Errors, 2)
	assert.Equal(t, "e1", r.Errors[0].Message)
	assert.Equal(t, "e2", r.Errors[1].Message)
	assert.True(t, r.Blocking())

	merged := r.Merge(FromIssues([]Issue{{Severity: SeverityError, Message: "e3"}}))
	require.Len(t, merged.Errors, 3)
	assert.Equal(t, "e3", merged.Errors[2].Message)

	all := merged.All()
	assert.Equal(t, "e1", all[0].Message)
	assert.Equal(t, "w1", all[3].Message)
	assert.Equal(t, "f1", all[4].Message)
}

func TestResultsUnknownSeverity(t *testing.T) {
	r := FromIssues([]Issue{{Severity: Severity("NOTICE"), Message: "odd"}})
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0].Message, `unknown severity "NOTICE"`)
}
