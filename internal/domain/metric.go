package domain

import "fmt"

// MetricType is the closed set of metric aggregation semantics. Every
// consumer dispatching on MetricType must handle all variants; dispatch
// sites assert exhaustiveness via AssertMetricTypeHandled in their default
// arm so an added variant fails loudly at each site.
type MetricType string

const (
	MetricSimple     MetricType = "SIMPLE"
	MetricCumulative MetricType = "CUMULATIVE"
	MetricDerived    MetricType = "DERIVED"
	MetricRatio      MetricType = "RATIO"
	MetricConversion MetricType = "CONVERSION"
)

// IsValid reports whether t is a known metric type.
func (t MetricType) IsValid() bool {
	switch t {
	case MetricSimple, MetricCumulative, MetricDerived, MetricRatio, MetricConversion:
		return true
	}
	return false
}

// AssertMetricTypeHandled panics with a descriptive message. It is called
// from the default arm of every switch over MetricType: reaching it means a
// dispatch site was not updated for a newly added variant.
func AssertMetricTypeHandled(t MetricType) {
	panic(fmt.Sprintf("unhandled metric type %q: dispatch site must handle all metric types", t))
}

// InputMetric is a reference to another metric used as an input to a
// derived or ratio metric, optionally evaluated against a shifted time axis.
type InputMetric struct {
	Name  string
	Alias string

	// OffsetWindow lags the input metric's time axis by a trailing window.
	// OffsetToGrain snaps it to the start of a grain. At most one is set.
	OffsetWindow  *MetricTimeWindow
	OffsetToGrain TimeGranularity
}

// HasOffset reports whether the input is evaluated on a shifted time axis.
func (i *InputMetric) HasOffset() bool {
	return i.OffsetWindow != nil || i.OffsetToGrain != ""
}

// Validate checks the input metric reference.
func (i *InputMetric) Validate() error {
	if i.Name == "" {
		return ErrValidation("input metric name is required")
	}
	if i.OffsetWindow != nil && i.OffsetToGrain != "" {
		return ErrValidation("input metric %q sets both offset_window and offset_to_grain", i.Name)
	}
	if i.OffsetToGrain != "" && !i.OffsetToGrain.IsValid() {
		return ErrValidation("input metric %q has unknown offset_to_grain %q", i.Name, i.OffsetToGrain)
	}
	return nil
}

// SimpleParams parameterizes a simple metric: one aggregated measure.
type SimpleParams struct {
	Measure string
}

// CumulativeParams parameterizes a cumulative metric. Window aggregates a
// trailing interval ending at each time bucket; GrainToDate aggregates from
// the start of the grain instead. At most one is set; both unset means
// aggregation over all time.
type CumulativeParams struct {
	Measure     string
	Window      *MetricTimeWindow
	GrainToDate TimeGranularity
}

// DerivedParams parameterizes a derived metric: an arithmetic expression
// over named input metrics.
type DerivedParams struct {
	Expr         string
	InputMetrics []InputMetric
}

// RatioParams parameterizes a ratio metric. Division is null when the
// denominator is zero or absent.
type RatioParams struct {
	Numerator   InputMetric
	Denominator InputMetric
}

// ConversionParams parameterizes a conversion metric: a base event joined
// to a conversion event within a bounded window per entity.
type ConversionParams struct {
	BaseMeasure       string
	ConversionMeasure string
	Entity            string
	Window            *MetricTimeWindow
	Calculation       string // "conversion_rate" (default) or "conversions"
}

// Metric is a named, typed aggregation definition. Exactly the params
// matching Type are set.
type Metric struct {
	Name        string
	Description string
	Type        MetricType

	Simple     *SimpleParams
	Cumulative *CumulativeParams
	Derived    *DerivedParams
	Ratio      *RatioParams
	Conversion *ConversionParams
}

// InputMetrics returns the input metric references for derived and ratio
// metrics, in declaration order. Other types have none.
func (m *Metric) InputMetrics() []InputMetric {
	switch m.Type {
	case MetricDerived:
		if m.Derived == nil {
			return nil
		}
		return m.Derived.InputMetrics
	case MetricRatio:
		if m.Ratio == nil {
			return nil
		}
		return []InputMetric{m.Ratio.Numerator, m.Ratio.Denominator}
	case MetricSimple, MetricCumulative, MetricConversion:
		return nil
	default:
		AssertMetricTypeHandled(m.Type)
		return nil
	}
}

// Validate checks that the metric is well-formed and that its params match
// its declared type.
func (m *Metric) Validate() error {
	if m.Name == "" {
		return ErrValidation("metric name is required")
	}
	if !m.Type.IsValid() {
		return ErrValidation("metric %q has unknown type %q", m.Name, m.Type)
	}

	switch m.Type {
	case MetricSimple:
		if m.Simple == nil || m.Simple.Measure == "" {
			return ErrValidation("simple metric %q requires a measure", m.Name)
		}
	case MetricCumulative:
		if m.Cumulative == nil || m.Cumulative.Measure == "" {
			return ErrValidation("cumulative metric %q requires a measure", m.Name)
		}
		if m.Cumulative.Window != nil && m.Cumulative.GrainToDate != "" {
			return ErrValidation("cumulative metric %q sets both window and grain_to_date", m.Name)
		}
		if m.Cumulative.GrainToDate != "" && !m.Cumulative.GrainToDate.IsValid() {
			return ErrValidation("cumulative metric %q has unknown grain_to_date %q", m.Name, m.Cumulative.GrainToDate)
		}
	case MetricDerived:
		if m.Derived == nil || m.Derived.Expr == "" {
			return ErrValidation("derived metric %q requires an expression", m.Name)
		}
		if len(m.Derived.InputMetrics) == 0 {
			return ErrValidation("derived metric %q requires at least one input metric", m.Name)
		}
		for i := range m.Derived.InputMetrics {
			if err := m.Derived.InputMetrics[i].Validate(); err != nil {
				return err
			}
		}
	case MetricRatio:
		if m.Ratio == nil {
			return ErrValidation("ratio metric %q requires numerator and denominator", m.Name)
		}
		if err := m.Ratio.Numerator.Validate(); err != nil {
			return err
		}
		if err := m.Ratio.Denominator.Validate(); err != nil {
			return err
		}
	case MetricConversion:
		if m.Conversion == nil || m.Conversion.BaseMeasure == "" || m.Conversion.ConversionMeasure == "" {
			return ErrValidation("conversion metric %q requires base and conversion measures", m.Name)
		}
		if m.Conversion.Entity == "" {
			return ErrValidation("conversion metric %q requires a join entity", m.Name)
		}
	default:
		AssertMetricTypeHandled(m.Type)
	}
	return nil
}
