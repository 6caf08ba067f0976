// Package dataflow builds the executable plan for a validated metric query:
// a DAG of relational operations (scans, joins, aggregations, time-shifted
// self-joins, metric arithmetic) that an external renderer lowers to a
// target query language.
package dataflow

import (
	"github.com/hwantajee/metricflow/internal/domain"
)

// Node is the base interface for all plan nodes.
type Node interface {
	node()
	// Inputs returns the upstream nodes, in stable order.
	Inputs() []Node
}

// MetricComputeNode is a marker interface for the per-metric compute nodes.
type MetricComputeNode interface {
	Node
	// MetricName returns the computed metric.
	MetricName() string
	metricComputeNode()
}

// === Relational Nodes ===

// ReadSourceNode scans one data source.
type ReadSourceNode struct {
	SourceName string
	TableRef   string
}

func (*ReadSourceNode) node()          {}
func (*ReadSourceNode) Inputs() []Node { return nil }

// JoinNode joins a dimension-bearing source into a fact tree over a shared
// entity. With a nil ValidityWindow the join is an equality join on the
// entity key; otherwise it is a range join matching a fact row at time t to
// the dimension row where window_start <= t < window_end (window_end null
// for the currently valid row).
type JoinNode struct {
	Left           Node
	Right          Node
	Entity         string
	ValidityWindow *ValidityWindowJoinDescription
}

func (*JoinNode) node()            {}
func (j *JoinNode) Inputs() []Node { return []Node{j.Left, j.Right} }

// AggregatedMeasure is one measure aggregated by an AggregateNode.
type AggregatedMeasure struct {
	Name string
	Agg  domain.AggregationType
	Expr string
}

// AggregateNode aggregates measures over the group-by specs.
type AggregateNode struct {
	Input    Node
	GroupBy  []domain.Spec
	Measures []AggregatedMeasure
}

func (*AggregateNode) node()            {}
func (n *AggregateNode) Inputs() []Node { return []Node{n.Input} }

// FilterPhase distinguishes row filters from having-style filters.
type FilterPhase string

const (
	FilterPreAggregation  FilterPhase = "PRE_AGGREGATION"
	FilterPostAggregation FilterPhase = "POST_AGGREGATION"
)

// FilterCondition is one conjunct applied by a FilterNode. Either Spec
// (row filter) or MetricName (computed-metric filter) identifies the field.
type FilterCondition struct {
	Spec       domain.Spec
	MetricName string
	Op         string
	Value      string
}

// FilterNode applies a conjunction of conditions.
type FilterNode struct {
	Input      Node
	Phase      FilterPhase
	Conditions []FilterCondition
}

func (*FilterNode) node()            {}
func (n *FilterNode) Inputs() []Node { return []Node{n.Input} }

// OffsetTimeNode evaluates its input against a shifted copy of the time
// axis: lagged by a trailing window, or snapped to the start of a grain.
// Exactly one of OffsetWindow and OffsetToGrain is set.
type OffsetTimeNode struct {
	Input         Node
	OffsetWindow  *domain.MetricTimeWindow
	OffsetToGrain domain.TimeGranularity
}

func (*OffsetTimeNode) node()            {}
func (n *OffsetTimeNode) Inputs() []Node { return []Node{n.Input} }

// CombineMetricsNode aligns the outputs of several metric subtrees on the
// shared group-by columns.
type CombineMetricsNode struct {
	Metrics []Node
}

func (*CombineMetricsNode) node() {}
func (n *CombineMetricsNode) Inputs() []Node {
	return append([]Node(nil), n.Metrics...)
}

// === Metric Compute Nodes ===

// SimpleMetricNode passes the aggregated measure through as the metric.
type SimpleMetricNode struct {
	Metric  string
	Measure string
	Input   Node
}

func (*SimpleMetricNode) node()              {}
func (n *SimpleMetricNode) Inputs() []Node   { return []Node{n.Input} }
func (n *SimpleMetricNode) MetricName() string { return n.Metric }
func (*SimpleMetricNode) metricComputeNode() {}

// CumulativeMetricNode aggregates a measure over a window of the time axis
// ending at each output bucket. With a Window the interval trails by that
// length; with GrainToDate it starts at the beginning of the grain; with
// neither it spans all time.
type CumulativeMetricNode struct {
	Metric      string
	Measure     string
	Window      *domain.MetricTimeWindow
	GrainToDate domain.TimeGranularity
	// TimeAxis is the resolved group-by time dimension the window slides
	// over; nil only when aggregating over all time.
	TimeAxis *domain.TimeDimensionSpec
	Input    Node
}

func (*CumulativeMetricNode) node()              {}
func (n *CumulativeMetricNode) Inputs() []Node   { return []Node{n.Input} }
func (n *CumulativeMetricNode) MetricName() string { return n.Metric }
func (*CumulativeMetricNode) metricComputeNode() {}

// DerivedMetricNode evaluates an arithmetic expression over input metric
// nodes. Offset inputs arrive wrapped in OffsetTimeNodes.
type DerivedMetricNode struct {
	Metric      string
	Expr        string
	InputNames  []string // expression names, aligned with InputNodes
	InputNodes  []Node
}

func (*DerivedMetricNode) node()              {}
func (n *DerivedMetricNode) Inputs() []Node   { return append([]Node(nil), n.InputNodes...) }
func (n *DerivedMetricNode) MetricName() string { return n.Metric }
func (*DerivedMetricNode) metricComputeNode() {}

// RatioMetricNode divides the numerator metric by the denominator metric.
// The division is null when the denominator is zero or absent, never a
// hard failure.
type RatioMetricNode struct {
	Metric      string
	Numerator   Node
	Denominator Node
}

func (*RatioMetricNode) node()            {}
func (n *RatioMetricNode) Inputs() []Node { return []Node{n.Numerator, n.Denominator} }
func (n *RatioMetricNode) MetricName() string { return n.Metric }
func (*RatioMetricNode) metricComputeNode() {}

// ConversionMetricNode joins a base-event stream to a conversion-event
// stream within a bounded window per entity key, producing a rate or count.
type ConversionMetricNode struct {
	Metric      string
	Entity      string
	Window      *domain.MetricTimeWindow
	Calculation string
	Base        Node
	Conversion  Node
}

func (*ConversionMetricNode) node()            {}
func (n *ConversionMetricNode) Inputs() []Node { return []Node{n.Base, n.Conversion} }
func (n *ConversionMetricNode) MetricName() string { return n.Metric }
func (*ConversionMetricNode) metricComputeNode() {}

// Plan is the dataflow plan for one compiled query.
type Plan struct {
	Root Node
}
