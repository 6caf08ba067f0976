// Package manifest provides read-only lookup over a semantic manifest with
// indices computed once at construction, plus the loaders and builders that
// assemble a manifest from declarative input.
package manifest

import (
	"sort"

	"github.com/hwantajee/metricflow/internal/domain"
)

// Lookup provides O(1) read access to manifest elements by name. It is
// built once per compilation session, never mutated afterwards, and safe to
// share across concurrent compilations.
type Lookup struct {
	sources  map[string]*domain.DataSource
	metrics  map[string]*domain.Metric
	measures map[string]string // measure name -> owning data source name

	// entitySources maps entity reference -> sorted data source names
	// declaring it.
	entitySources map[string][]string

	sourceNames []string
	metricNames []string
}

// NewLookup validates the manifest and computes the derived indices.
func NewLookup(m *domain.SemanticManifest) (*Lookup, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	l := &Lookup{
		sources:       map[string]*domain.DataSource{},
		metrics:       map[string]*domain.Metric{},
		measures:      map[string]string{},
		entitySources: map[string][]string{},
	}

	for i := range m.DataSources {
		ds := &m.DataSources[i]
		l.sources[ds.Name] = ds
		l.sourceNames = append(l.sourceNames, ds.Name)
		for _, entity := range ds.Entities {
			l.entitySources[entity.Reference] = append(l.entitySources[entity.Reference], ds.Name)
		}
		for _, measure := range ds.Measures {
			if owner, ok := l.measures[measure.Name]; ok {
				return nil, domain.ErrConflict(
					"measure %q declared by both data source %q and %q", measure.Name, owner, ds.Name)
			}
			l.measures[measure.Name] = ds.Name
		}
	}
	for refs := range l.entitySources {
		sort.Strings(l.entitySources[refs])
	}
	sort.Strings(l.sourceNames)

	for i := range m.Metrics {
		metric := &m.Metrics[i]
		l.metrics[metric.Name] = metric
		l.metricNames = append(l.metricNames, metric.Name)
	}
	sort.Strings(l.metricNames)

	// Every measure referenced by a metric must exist, and derived/ratio
	// input references must close over declared metrics.
	for _, name := range l.metricNames {
		if _, err := l.homeSources(name, map[string]bool{}); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// DataSourceNames returns all data source names in sorted order.
func (l *Lookup) DataSourceNames() []string {
	out := make([]string, len(l.sourceNames))
	copy(out, l.sourceNames)
	return out
}

// MetricNames returns all metric names in sorted order.
func (l *Lookup) MetricNames() []string {
	out := make([]string, len(l.metricNames))
	copy(out, l.metricNames)
	return out
}

// DataSource resolves a data source by name.
func (l *Lookup) DataSource(name string) (*domain.DataSource, error) {
	ds, ok := l.sources[name]
	if !ok {
		return nil, domain.ErrNotFound("data source %q not found in semantic manifest", name)
	}
	return ds, nil
}

// Metric resolves a metric by name.
func (l *Lookup) Metric(name string) (*domain.Metric, error) {
	m, ok := l.metrics[name]
	if !ok {
		return nil, domain.ErrNotFound("metric %q not found in semantic manifest", name)
	}
	return m, nil
}

// MeasureSource resolves the data source owning a measure.
func (l *Lookup) MeasureSource(measure string) (*domain.DataSource, error) {
	name, ok := l.measures[measure]
	if !ok {
		return nil, domain.ErrNotFound("measure %q not found in semantic manifest", measure)
	}
	return l.sources[name], nil
}

// EntityDataSources returns the sorted names of data sources declaring the
// entity reference. Unknown references yield an empty set.
func (l *Lookup) EntityDataSources(reference string) []string {
	sources := l.entitySources[reference]
	out := make([]string, len(sources))
	copy(out, sources)
	return out
}

// MetricHomeSources returns the sorted names of the data sources whose
// measures feed the metric, following derived and ratio inputs recursively.
func (l *Lookup) MetricHomeSources(metricName string) ([]string, error) {
	return l.homeSources(metricName, map[string]bool{})
}

func (l *Lookup) homeSources(metricName string, visiting map[string]bool) ([]string, error) {
	if visiting[metricName] {
		return nil, domain.ErrValidation("metric %q participates in an input metric cycle", metricName)
	}
	visiting[metricName] = true
	defer delete(visiting, metricName)

	metric, err := l.Metric(metricName)
	if err != nil {
		return nil, err
	}

	set := map[string]bool{}
	addMeasure := func(measure string) error {
		ds, err := l.MeasureSource(measure)
		if err != nil {
			return domain.ErrNotFound("metric %q references measure %q which no data source declares",
				metricName, measure)
		}
		set[ds.Name] = true
		return nil
	}

	switch metric.Type {
	case domain.MetricSimple:
		if err := addMeasure(metric.Simple.Measure); err != nil {
			return nil, err
		}
	case domain.MetricCumulative:
		if err := addMeasure(metric.Cumulative.Measure); err != nil {
			return nil, err
		}
	case domain.MetricConversion:
		if err := addMeasure(metric.Conversion.BaseMeasure); err != nil {
			return nil, err
		}
		if err := addMeasure(metric.Conversion.ConversionMeasure); err != nil {
			return nil, err
		}
	case domain.MetricDerived, domain.MetricRatio:
		for _, input := range metric.InputMetrics() {
			inputSources, err := l.homeSources(input.Name, visiting)
			if err != nil {
				return nil, err
			}
			for _, name := range inputSources {
				set[name] = true
			}
		}
	default:
		domain.AssertMetricTypeHandled(metric.Type)
	}

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// ValidAggTimeDimensions returns the time dimension specs on the metric's
// home data sources that can stand in for the generic time axis, expanded
// to every granularity at or coarser than the dimension's own. The result
// is ordered by qualified name for deterministic issue output.
func (l *Lookup) ValidAggTimeDimensions(metricName string) ([]domain.TimeDimensionSpec, error) {
	homes, err := l.MetricHomeSources(metricName)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var specs []domain.TimeDimensionSpec
	for _, sourceName := range homes {
		ds := l.sources[sourceName]
		for _, dim := range ds.Dimensions {
			if dim.Kind != domain.DimensionTime {
				continue
			}
			for _, grain := range domain.AllGranularities() {
				if grain.FinerThan(dim.Granularity) {
					continue
				}
				spec := domain.TimeDimensionSpec{ElementName: dim.Name, Granularity: grain}
				if key := spec.QualifiedName(); !seen[key] {
					seen[key] = true
					specs = append(specs, spec)
				}
			}
		}
	}
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].QualifiedName() < specs[j].QualifiedName()
	})
	return specs, nil
}
