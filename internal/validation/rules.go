package validation

import (
	"fmt"

	"github.com/hwantajee/metricflow/internal/domain"
	"github.com/hwantajee/metricflow/internal/manifest"
	"github.com/hwantajee/metricflow/internal/query"
)

// ModelRule validates the manifest independently of any query. Rules must
// be pure functions of the lookup.
type ModelRule interface {
	Name() string
	ValidateModel(lookup *manifest.Lookup) []Issue
}

// QueryRule validates one metric of a resolved query against the
// resolution DAG. Rules must be pure functions of their inputs.
type QueryRule interface {
	Name() string
	ValidateMetric(lookup *manifest.Lookup, metric query.MetricResolution,
		input *query.ResolverInputForQuery, path query.ResolutionPath) []Issue
}

// UnusedEntityRule warns for every entity declared in exactly one data
// source: it can never be used as a join key.
type UnusedEntityRule struct{}

func (UnusedEntityRule) Name() string { return "unused_entity" }

func (UnusedEntityRule) ValidateModel(lookup *manifest.Lookup) []Issue {
	var issues []Issue
	for _, sourceName := range lookup.DataSourceNames() {
		ds, err := lookup.DataSource(sourceName)
		if err != nil {
			continue
		}
		for _, entity := range ds.Entities {
			declaring := lookup.EntityDataSources(entity.Reference)
			others := 0
			for _, name := range declaring {
				if name != ds.Name {
					others++
				}
			}
			if others == 0 {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Message: fmt.Sprintf(
						"entity `%s` only found in one data source `%s` which means it will be unused in joins",
						entity.Reference, ds.Name),
					Context: Context{DataSource: ds.Name, Element: entity.Reference},
				})
			}
		}
	}
	return issues
}

// MeasureAggTimeRule checks that a measure's declared aggregation time
// dimension names a time dimension on its own data source.
type MeasureAggTimeRule struct{}

func (MeasureAggTimeRule) Name() string { return "measure_agg_time_dimension" }

func (MeasureAggTimeRule) ValidateModel(lookup *manifest.Lookup) []Issue {
	var issues []Issue
	for _, sourceName := range lookup.DataSourceNames() {
		ds, err := lookup.DataSource(sourceName)
		if err != nil {
			continue
		}
		for _, measure := range ds.Measures {
			if measure.AggTimeDim == "" {
				continue
			}
			found := false
			for _, dim := range ds.Dimensions {
				if dim.Name == measure.AggTimeDim && dim.Kind == domain.DimensionTime {
					found = true
					break
				}
			}
			if !found {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Message: fmt.Sprintf(
						"measure %q declares aggregation time dimension %q which is not a time dimension of data source %q",
						measure.Name, measure.AggTimeDim, ds.Name),
					Context: Context{DataSource: ds.Name, Element: measure.Name},
				})
			}
		}
	}
	return issues
}

// MetricTimeRule enforces the metric-time requirement: cumulative metrics
// with a window or grain-to-date, and derived or ratio metrics with an
// offset input, must be queried with the generic time axis or one of the
// metric's valid aggregation time dimensions in the group-by items.
type MetricTimeRule struct{}

func (MetricTimeRule) Name() string { return "metric_time_requirement" }

func (MetricTimeRule) ValidateMetric(lookup *manifest.Lookup, metricRes query.MetricResolution,
	input *query.ResolverInputForQuery, path query.ResolutionPath) []Issue {

	metric, err := lookup.Metric(metricRes.Name)
	if err != nil {
		return []Issue{{
			Severity: SeverityError,
			Message:  err.Error(),
			Context:  Context{Path: path},
		}}
	}

	includesTimeAxis := func() bool {
		if input.IncludesMetricTime() {
			return true
		}
		validAggTime, err := lookup.ValidAggTimeDimensions(metricRes.Name)
		if err != nil {
			return false
		}
		return input.IncludesAnyTime(validAggTime)
	}

	switch metric.Type {
	case domain.MetricSimple, domain.MetricConversion:
		return nil
	case domain.MetricCumulative:
		params := metric.Cumulative
		if params == nil || (params.Window == nil && params.GrainToDate == "") {
			return nil
		}
		if includesTimeAxis() {
			return nil
		}
		return []Issue{{
			Severity: SeverityError,
			Message: fmt.Sprintf(
				"cumulative metric %q requires metric_time or a valid aggregation time dimension in the group-by items",
				metric.Name),
			Context: Context{Path: path},
		}}
	case domain.MetricDerived, domain.MetricRatio:
		hasOffset := false
		for _, in := range metric.InputMetrics() {
			if in.HasOffset() {
				hasOffset = true
				break
			}
		}
		if !hasOffset || includesTimeAxis() {
			return nil
		}
		return []Issue{{
			Severity: SeverityError,
			Message: fmt.Sprintf(
				"metric %q with offset input metrics requires metric_time or a valid aggregation time dimension in the group-by items",
				metric.Name),
			Context: Context{Path: path},
		}}
	default:
		domain.AssertMetricTypeHandled(metric.Type)
		return nil
	}
}
