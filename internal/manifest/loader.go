package manifest

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hwantajee/metricflow/internal/domain"
)

// YAML document shapes. Decoding is strict: unknown fields are errors.

type manifestFile struct {
	DataSources []dataSourceYAML `yaml:"data_sources"`
	Metrics     []metricYAML     `yaml:"metrics"`
}

type dataSourceYAML struct {
	Name        string          `yaml:"name"`
	Table       string          `yaml:"table"`
	Description string          `yaml:"description"`
	Entities    []entityYAML    `yaml:"entities"`
	Dimensions  []dimensionYAML `yaml:"dimensions"`
	Columns     []columnYAML    `yaml:"columns"`
	Measures    []measureYAML   `yaml:"measures"`
}

type entityYAML struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type dimensionYAML struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Granularity   string `yaml:"granularity"`
	Primary       bool   `yaml:"primary"`
	ValidityStart bool   `yaml:"validity_start"`
	ValidityEnd   bool   `yaml:"validity_end"`
}

// columnYAML declares a raw physical column; its dimension kind is derived
// from the column type through the fixed mapping table.
type columnYAML struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type measureYAML struct {
	Name        string `yaml:"name"`
	Agg         string `yaml:"agg"`
	Expr        string `yaml:"expr"`
	AggTimeDim  string `yaml:"agg_time_dimension"`
	Description string `yaml:"description"`
}

type metricYAML struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`

	Measure     string      `yaml:"measure"`
	Window      string      `yaml:"window"`
	GrainToDate string      `yaml:"grain_to_date"`
	Expr        string      `yaml:"expr"`
	Inputs      []inputYAML `yaml:"inputs"`
	Numerator   *inputYAML  `yaml:"numerator"`
	Denominator *inputYAML  `yaml:"denominator"`

	BaseMeasure       string `yaml:"base_measure"`
	ConversionMeasure string `yaml:"conversion_measure"`
	Entity            string `yaml:"entity"`
	Calculation       string `yaml:"calculation"`
}

type inputYAML struct {
	Metric        string `yaml:"metric"`
	Alias         string `yaml:"alias"`
	OffsetWindow  string `yaml:"offset_window"`
	OffsetToGrain string `yaml:"offset_to_grain"`
}

// Load reads a semantic manifest from a YAML file.
func Load(path string) (*domain.SemanticManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a semantic manifest from YAML bytes. Unknown fields are
// rejected.
func Parse(data []byte) (*domain.SemanticManifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file manifestFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	manifest := &domain.SemanticManifest{}
	for _, src := range file.DataSources {
		ds, err := buildDataSource(src)
		if err != nil {
			return nil, err
		}
		manifest.DataSources = append(manifest.DataSources, *ds)
	}
	for _, m := range file.Metrics {
		metric, err := buildMetric(m)
		if err != nil {
			return nil, err
		}
		manifest.Metrics = append(manifest.Metrics, *metric)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func buildDataSource(src dataSourceYAML) (*domain.DataSource, error) {
	ds := &domain.DataSource{
		Name:        src.Name,
		TableRef:    src.Table,
		Description: src.Description,
	}
	for _, e := range src.Entities {
		ds.Entities = append(ds.Entities, domain.Entity{Reference: e.Name, Description: e.Description})
	}

	// Declared dimensions and column-derived dimensions funnel through the
	// same builder so a differing redefinition surfaces as a conflict
	// instead of a silent overwrite.
	builder := NewDimensionSetBuilder()
	for _, d := range src.Dimensions {
		dim, err := buildDimension(src.Name, d)
		if err != nil {
			return nil, err
		}
		if err := builder.Insert(src.Name, dim); err != nil {
			return nil, err
		}
	}
	for _, col := range src.Columns {
		dim, err := DimensionForColumn(col.Name, col.Type)
		if err != nil {
			return nil, err
		}
		if err := builder.Insert(src.Name, dim); err != nil {
			return nil, err
		}
	}
	ds.Dimensions = builder.Dimensions(src.Name)

	for _, m := range src.Measures {
		agg := domain.AggregationType(strings.ToUpper(strings.TrimSpace(m.Agg)))
		switch agg {
		case domain.AggregationSum, domain.AggregationCount, domain.AggregationCountDistinct,
			domain.AggregationAverage, domain.AggregationMin, domain.AggregationMax:
		default:
			return nil, domain.ErrValidation(
				"measure %q on data source %q has unknown aggregation %q", m.Name, src.Name, m.Agg)
		}
		ds.Measures = append(ds.Measures, domain.Measure{
			Name:        m.Name,
			Agg:         agg,
			Expr:        m.Expr,
			AggTimeDim:  m.AggTimeDim,
			Description: m.Description,
		})
	}
	return ds, nil
}

func buildDimension(sourceName string, d dimensionYAML) (domain.Dimension, error) {
	switch strings.ToLower(d.Type) {
	case "categorical":
		if d.Granularity != "" {
			return domain.Dimension{}, domain.ErrValidation(
				"categorical dimension %q on data source %q cannot set a granularity", d.Name, sourceName)
		}
		return domain.Dimension{Name: d.Name, Kind: domain.DimensionCategorical}, nil
	case "time":
		grain := domain.GranularityDay
		if d.Granularity != "" {
			parsed, err := domain.ParseGranularity(d.Granularity)
			if err != nil {
				return domain.Dimension{}, err
			}
			grain = parsed
		}
		return domain.Dimension{
			Name:            d.Name,
			Kind:            domain.DimensionTime,
			Granularity:     grain,
			IsPrimary:       d.Primary,
			IsValidityStart: d.ValidityStart,
			IsValidityEnd:   d.ValidityEnd,
		}, nil
	default:
		return domain.Dimension{}, domain.ErrValidation(
			"dimension %q on data source %q has unknown type %q", d.Name, sourceName, d.Type)
	}
}

func buildMetric(m metricYAML) (*domain.Metric, error) {
	metric := &domain.Metric{
		Name:        m.Name,
		Description: m.Description,
		Type:        domain.MetricType(strings.ToUpper(strings.TrimSpace(m.Type))),
	}

	parseWindow := func(s string) (*domain.MetricTimeWindow, error) {
		if s == "" {
			return nil, nil
		}
		return domain.ParseWindow(s)
	}

	switch metric.Type {
	case domain.MetricSimple:
		metric.Simple = &domain.SimpleParams{Measure: m.Measure}
	case domain.MetricCumulative:
		window, err := parseWindow(m.Window)
		if err != nil {
			return nil, err
		}
		params := &domain.CumulativeParams{Measure: m.Measure, Window: window}
		if m.GrainToDate != "" {
			grain, err := domain.ParseGranularity(m.GrainToDate)
			if err != nil {
				return nil, err
			}
			params.GrainToDate = grain
		}
		metric.Cumulative = params
	case domain.MetricDerived:
		params := &domain.DerivedParams{Expr: m.Expr}
		for _, in := range m.Inputs {
			input, err := buildInput(in)
			if err != nil {
				return nil, err
			}
			params.InputMetrics = append(params.InputMetrics, *input)
		}
		metric.Derived = params
	case domain.MetricRatio:
		if m.Numerator == nil || m.Denominator == nil {
			return nil, domain.ErrValidation("ratio metric %q requires numerator and denominator", m.Name)
		}
		num, err := buildInput(*m.Numerator)
		if err != nil {
			return nil, err
		}
		den, err := buildInput(*m.Denominator)
		if err != nil {
			return nil, err
		}
		metric.Ratio = &domain.RatioParams{Numerator: *num, Denominator: *den}
	case domain.MetricConversion:
		window, err := parseWindow(m.Window)
		if err != nil {
			return nil, err
		}
		params := &domain.ConversionParams{
			BaseMeasure:       m.BaseMeasure,
			ConversionMeasure: m.ConversionMeasure,
			Entity:            m.Entity,
			Window:            window,
			Calculation:       "conversion_rate",
		}
		if m.Calculation != "" {
			params.Calculation = m.Calculation
		}
		metric.Conversion = params
	default:
		return nil, domain.ErrValidation("metric %q has unknown type %q", m.Name, m.Type)
	}

	if err := metric.Validate(); err != nil {
		return nil, err
	}
	return metric, nil
}

func buildInput(in inputYAML) (*domain.InputMetric, error) {
	input := &domain.InputMetric{Name: in.Metric, Alias: in.Alias}
	if in.OffsetWindow != "" {
		window, err := domain.ParseWindow(in.OffsetWindow)
		if err != nil {
			return nil, err
		}
		input.OffsetWindow = window
	}
	if in.OffsetToGrain != "" {
		grain, err := domain.ParseGranularity(in.OffsetToGrain)
		if err != nil {
			return nil, err
		}
		input.OffsetToGrain = grain
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return input, nil
}
