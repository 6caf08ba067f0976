package dataflow

import (
	"sort"

	"github.com/hwantajee/metricflow/internal/domain"
	"github.com/hwantajee/metricflow/internal/manifest"
	"github.com/hwantajee/metricflow/internal/query"
)

// Builder transforms a fully resolved query into a dataflow plan. It
// assumes validation has already passed: plan-construction invariant
// violations are raised as panics, not returned as issues.
type Builder struct {
	lookup *manifest.Lookup
}

// NewBuilder creates a Builder over an immutable manifest lookup.
func NewBuilder(lookup *manifest.Lookup) *Builder {
	return &Builder{lookup: lookup}
}

// Build produces the plan DAG for a resolution without issues.
func (b *Builder) Build(res *query.Resolution) (*Plan, error) {
	if res == nil || len(res.Metrics) == 0 {
		return nil, domain.ErrValidation("cannot build a plan without resolved metrics")
	}
	if len(res.Issues) > 0 {
		return nil, domain.ErrValidation(
			"cannot build a plan for a query with %d unresolved items", len(res.Issues))
	}

	groupBy := make([]domain.Spec, 0, len(res.GroupBy))
	for _, item := range res.GroupBy {
		groupBy = append(groupBy, item.Spec)
	}

	var preFilters, postFilters []FilterCondition
	for _, filter := range res.Filters {
		cond := FilterCondition{
			Spec:       filter.Spec,
			MetricName: filter.MetricName,
			Op:         filter.Input.Op,
			Value:      filter.Input.Value,
		}
		if filter.MetricName != "" {
			postFilters = append(postFilters, cond)
		} else {
			preFilters = append(preFilters, cond)
		}
	}

	metricNodes := make([]Node, 0, len(res.Metrics))
	for _, metricRes := range res.Metrics {
		node, err := b.buildMetric(metricRes, groupBy, preFilters)
		if err != nil {
			return nil, err
		}
		metricNodes = append(metricNodes, node)
	}

	var root Node
	if len(metricNodes) == 1 {
		root = metricNodes[0]
	} else {
		root = &CombineMetricsNode{Metrics: metricNodes}
	}
	if len(postFilters) > 0 {
		root = &FilterNode{Input: root, Phase: FilterPostAggregation, Conditions: postFilters}
	}
	return &Plan{Root: root}, nil
}

// buildMetric dispatches exhaustively over the metric type.
func (b *Builder) buildMetric(metricRes query.MetricResolution, groupBy []domain.Spec,
	preFilters []FilterCondition) (Node, error) {

	metric, err := b.lookup.Metric(metricRes.Name)
	if err != nil {
		return nil, err
	}

	switch metric.Type {
	case domain.MetricSimple:
		input, err := b.buildAggregation(metric.Simple.Measure, groupBy, preFilters)
		if err != nil {
			return nil, err
		}
		return &SimpleMetricNode{Metric: metric.Name, Measure: metric.Simple.Measure, Input: input}, nil

	case domain.MetricCumulative:
		input, err := b.buildAggregation(metric.Cumulative.Measure, groupBy, preFilters)
		if err != nil {
			return nil, err
		}
		return &CumulativeMetricNode{
			Metric:      metric.Name,
			Measure:     metric.Cumulative.Measure,
			Window:      metric.Cumulative.Window,
			GrainToDate: metric.Cumulative.GrainToDate,
			TimeAxis:    timeAxisSpec(groupBy),
			Input:       input,
		}, nil

	case domain.MetricDerived:
		inputs := metric.Derived.InputMetrics
		node := &DerivedMetricNode{Metric: metric.Name, Expr: metric.Derived.Expr}
		for i, in := range inputs {
			inputNode, err := b.buildMetric(metricRes.Inputs[i], groupBy, preFilters)
			if err != nil {
				return nil, err
			}
			if in.HasOffset() {
				inputNode = &OffsetTimeNode{
					Input:         inputNode,
					OffsetWindow:  in.OffsetWindow,
					OffsetToGrain: in.OffsetToGrain,
				}
			}
			name := in.Alias
			if name == "" {
				name = in.Name
			}
			node.InputNames = append(node.InputNames, name)
			node.InputNodes = append(node.InputNodes, inputNode)
		}
		return node, nil

	case domain.MetricRatio:
		numerator, err := b.buildMetric(metricRes.Inputs[0], groupBy, preFilters)
		if err != nil {
			return nil, err
		}
		if metric.Ratio.Numerator.HasOffset() {
			numerator = &OffsetTimeNode{
				Input:         numerator,
				OffsetWindow:  metric.Ratio.Numerator.OffsetWindow,
				OffsetToGrain: metric.Ratio.Numerator.OffsetToGrain,
			}
		}
		denominator, err := b.buildMetric(metricRes.Inputs[1], groupBy, preFilters)
		if err != nil {
			return nil, err
		}
		if metric.Ratio.Denominator.HasOffset() {
			denominator = &OffsetTimeNode{
				Input:         denominator,
				OffsetWindow:  metric.Ratio.Denominator.OffsetWindow,
				OffsetToGrain: metric.Ratio.Denominator.OffsetToGrain,
			}
		}
		return &RatioMetricNode{Metric: metric.Name, Numerator: numerator, Denominator: denominator}, nil

	case domain.MetricConversion:
		base, err := b.buildAggregation(metric.Conversion.BaseMeasure, groupBy, preFilters)
		if err != nil {
			return nil, err
		}
		conversion, err := b.buildAggregation(metric.Conversion.ConversionMeasure, groupBy, preFilters)
		if err != nil {
			return nil, err
		}
		return &ConversionMetricNode{
			Metric:      metric.Name,
			Entity:      metric.Conversion.Entity,
			Window:      metric.Conversion.Window,
			Calculation: metric.Conversion.Calculation,
			Base:        base,
			Conversion:  conversion,
		}, nil

	default:
		domain.AssertMetricTypeHandled(metric.Type)
		return nil, nil
	}
}

// buildAggregation builds the scan/join/filter/aggregate subtree feeding
// one measure.
func (b *Builder) buildAggregation(measureName string, groupBy []domain.Spec,
	preFilters []FilterCondition) (Node, error) {

	fact, err := b.lookup.MeasureSource(measureName)
	if err != nil {
		return nil, err
	}

	var aggregated *AggregatedMeasure
	for _, m := range fact.Measures {
		if m.Name == measureName {
			expr := m.Expr
			if expr == "" {
				expr = m.Name
			}
			aggregated = &AggregatedMeasure{Name: m.Name, Agg: m.Agg, Expr: expr}
			break
		}
	}
	if aggregated == nil {
		return nil, domain.ErrNotFound("measure %q not found on data source %q", measureName, fact.Name)
	}

	var tree Node = &ReadSourceNode{SourceName: fact.Name, TableRef: fact.TableRef}

	// One join per distinct (entity, dimension source) needed by an
	// entity-linked group-by or filter spec, in sorted order. Resolution
	// already guarantees every spec is reachable from every queried
	// metric's home sources, so an unreachable spec here is rejected
	// rather than silently dropped from the subtree.
	needed := map[[2]string]*domain.DataSource{}
	collect := func(spec domain.Spec) error {
		links := entityLinksOf(spec)
		if len(links) == 0 {
			if timeSpec, ok := spec.(domain.TimeDimensionSpec); ok && timeSpec.IsMetricTime() {
				return nil
			}
			if !hasLocalElement(fact, elementNameOf(spec)) {
				return domain.ErrValidation(
					"item %q is not reachable from data source %q of measure %q",
					spec.QualifiedName(), fact.Name, measureName)
			}
			return nil
		}
		entity := links[0]
		if !declaresEntity(fact, entity) {
			return domain.ErrValidation(
				"item %q requires entity %q, which data source %q of measure %q does not declare",
				spec.QualifiedName(), entity, fact.Name, measureName)
		}
		source := b.dimensionSource(entity, elementNameOf(spec), fact.Name)
		if source == nil {
			return domain.ErrValidation(
				"item %q is not reachable through entity %q from data source %q",
				spec.QualifiedName(), entity, fact.Name)
		}
		needed[[2]string{entity, source.Name}] = source
		return nil
	}
	for _, spec := range groupBy {
		if err := collect(spec); err != nil {
			return nil, err
		}
	}
	for _, cond := range preFilters {
		if cond.Spec == nil {
			continue
		}
		if err := collect(cond.Spec); err != nil {
			return nil, err
		}
	}

	keys := make([][2]string, 0, len(needed))
	for key := range needed {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	for _, key := range keys {
		source := needed[key]
		tree = &JoinNode{
			Left:           tree,
			Right:          &ReadSourceNode{SourceName: source.Name, TableRef: source.TableRef},
			Entity:         key[0],
			ValidityWindow: CreateValidityWindowJoinDescription(InstanceSetFromDataSource(source)),
		}
	}

	if len(preFilters) > 0 {
		tree = &FilterNode{
			Input:      tree,
			Phase:      FilterPreAggregation,
			Conditions: append([]FilterCondition(nil), preFilters...),
		}
	}

	return &AggregateNode{
		Input:    tree,
		GroupBy:  append([]domain.Spec(nil), groupBy...),
		Measures: []AggregatedMeasure{*aggregated},
	}, nil
}

// dimensionSource finds the data source reachable through an entity that
// exposes the named element, preferring the lexicographically first match
// for determinism.
func (b *Builder) dimensionSource(entity, element, factName string) *domain.DataSource {
	for _, name := range b.lookup.EntityDataSources(entity) {
		if name == factName {
			continue
		}
		ds, err := b.lookup.DataSource(name)
		if err != nil {
			continue
		}
		for _, dim := range ds.Dimensions {
			if dim.Name == element {
				return ds
			}
		}
		for _, e := range ds.Entities {
			if e.Reference == element {
				return ds
			}
		}
	}
	return nil
}

func hasLocalElement(ds *domain.DataSource, element string) bool {
	for _, dim := range ds.Dimensions {
		if dim.Name == element {
			return true
		}
	}
	for _, e := range ds.Entities {
		if e.Reference == element {
			return true
		}
	}
	return false
}

func declaresEntity(ds *domain.DataSource, entity string) bool {
	for _, e := range ds.Entities {
		if e.Reference == entity {
			return true
		}
	}
	return false
}

// timeAxisSpec picks the resolved time dimension a cumulative window
// slides over: the generic time axis when present, otherwise the first
// unlinked time dimension in the group-by set.
func timeAxisSpec(groupBy []domain.Spec) *domain.TimeDimensionSpec {
	var fallback *domain.TimeDimensionSpec
	for _, spec := range groupBy {
		timeSpec, ok := spec.(domain.TimeDimensionSpec)
		if !ok {
			continue
		}
		if timeSpec.IsMetricTime() {
			return &timeSpec
		}
		if fallback == nil && len(timeSpec.EntityLinks) == 0 {
			fallback = &timeSpec
		}
	}
	return fallback
}

func entityLinksOf(spec domain.Spec) []string {
	switch s := spec.(type) {
	case domain.DimensionSpec:
		return s.EntityLinks
	case domain.TimeDimensionSpec:
		return s.EntityLinks
	case domain.EntitySpec:
		return s.EntityLinks
	default:
		return nil
	}
}

func elementNameOf(spec domain.Spec) string {
	switch s := spec.(type) {
	case domain.DimensionSpec:
		return s.ElementName
	case domain.TimeDimensionSpec:
		return s.ElementName
	case domain.EntitySpec:
		return s.ElementName
	default:
		return ""
	}
}
