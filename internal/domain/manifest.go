package domain

const (
	// MetricTimeElementName is the engine-synthesized generic time axis. Any
	// metric can be grouped by it regardless of the name of the underlying
	// aggregation time dimension.
	MetricTimeElementName = "metric_time"

	MaxSemanticNameLength = 255
)

// DimensionKind distinguishes categorical from time-typed dimensions.
type DimensionKind string

const (
	DimensionCategorical DimensionKind = "CATEGORICAL"
	DimensionTime        DimensionKind = "TIME"
)

// AggregationType is the aggregation function applied to a measure.
type AggregationType string

const (
	AggregationSum           AggregationType = "SUM"
	AggregationCount         AggregationType = "COUNT"
	AggregationCountDistinct AggregationType = "COUNT_DISTINCT"
	AggregationAverage       AggregationType = "AVG"
	AggregationMin           AggregationType = "MIN"
	AggregationMax           AggregationType = "MAX"
)

// Entity is a named join key declared by a data source. Two data sources
// declaring the same entity reference can be joined on it.
type Entity struct {
	Reference   string
	Description string
}

// Dimension is a categorical or time-typed attribute of a data source,
// backed by exactly one physical column.
type Dimension struct {
	Name        string
	Kind        DimensionKind
	Granularity TimeGranularity // time dimensions only
	IsPrimary   bool            // primary time dimension of the data source

	// Validity window flags for slowly-changing dimension sources. A data
	// source declares at most one start/end pair.
	IsValidityStart bool
	IsValidityEnd   bool
}

// Measure is an aggregatable column of a data source.
type Measure struct {
	Name        string
	Agg         AggregationType
	Expr        string // defaults to the measure name
	AggTimeDim  string // aggregation time dimension; defaults to the primary time dimension
	Description string
}

// DataSource is a named physical table or view exposing entities,
// dimensions, and measures.
type DataSource struct {
	Name        string
	TableRef    string
	Description string
	Entities    []Entity
	Dimensions  []Dimension
	Measures    []Measure
}

// Validate checks structural invariants of the data source.
func (d *DataSource) Validate() error {
	if d.Name == "" {
		return ErrValidation("data source name is required")
	}
	if d.TableRef == "" {
		return ErrValidation("data source %q requires a table ref", d.Name)
	}

	seen := map[string]bool{}
	starts, ends, primaries := 0, 0, 0
	for _, dim := range d.Dimensions {
		if seen[dim.Name] {
			return ErrValidation("data source %q declares dimension %q more than once", d.Name, dim.Name)
		}
		seen[dim.Name] = true

		switch dim.Kind {
		case DimensionCategorical:
			if dim.IsPrimary || dim.IsValidityStart || dim.IsValidityEnd {
				return ErrValidation(
					"data source %q dimension %q is categorical and cannot carry time dimension flags",
					d.Name, dim.Name)
			}
		case DimensionTime:
			if !dim.Granularity.IsValid() {
				return ErrValidation(
					"data source %q time dimension %q has unknown granularity %q",
					d.Name, dim.Name, dim.Granularity)
			}
		default:
			return ErrValidation("data source %q dimension %q has unknown kind %q", d.Name, dim.Name, dim.Kind)
		}

		if dim.IsPrimary {
			primaries++
		}
		if dim.IsValidityStart {
			starts++
		}
		if dim.IsValidityEnd {
			ends++
		}
		if dim.IsValidityStart && dim.IsValidityEnd {
			return ErrValidation(
				"data source %q dimension %q cannot be both validity window start and end",
				d.Name, dim.Name)
		}
	}
	if primaries > 1 {
		return ErrValidation("data source %q declares more than one primary time dimension", d.Name)
	}
	if starts > 1 || ends > 1 {
		return ErrValidation("data source %q declares more than one validity window pair", d.Name)
	}
	if starts != ends {
		return ErrValidation(
			"data source %q declares an incomplete validity window (start and end must both be present)",
			d.Name)
	}
	return nil
}

// PrimaryTimeDimension returns the primary time dimension, or nil.
func (d *DataSource) PrimaryTimeDimension() *Dimension {
	for i := range d.Dimensions {
		if d.Dimensions[i].IsPrimary {
			return &d.Dimensions[i]
		}
	}
	return nil
}

// ValidityWindow returns the validity window start/end dimensions, or nils
// when the data source does not declare a window.
func (d *DataSource) ValidityWindow() (start, end *Dimension) {
	for i := range d.Dimensions {
		if d.Dimensions[i].IsValidityStart {
			start = &d.Dimensions[i]
		}
		if d.Dimensions[i].IsValidityEnd {
			end = &d.Dimensions[i]
		}
	}
	return start, end
}

// SemanticManifest aggregates all data sources and metrics. It is built once
// per compilation session and treated as immutable afterwards.
type SemanticManifest struct {
	DataSources []DataSource
	Metrics     []Metric
}

// Validate checks every data source and metric in the manifest.
func (m *SemanticManifest) Validate() error {
	sourceNames := map[string]bool{}
	for i := range m.DataSources {
		if err := m.DataSources[i].Validate(); err != nil {
			return err
		}
		if sourceNames[m.DataSources[i].Name] {
			return ErrValidation("duplicate data source %q", m.DataSources[i].Name)
		}
		sourceNames[m.DataSources[i].Name] = true
	}
	metricNames := map[string]bool{}
	for i := range m.Metrics {
		if err := m.Metrics[i].Validate(); err != nil {
			return err
		}
		if metricNames[m.Metrics[i].Name] {
			return ErrValidation("duplicate metric %q", m.Metrics[i].Name)
		}
		metricNames[m.Metrics[i].Name] = true
	}
	return nil
}
