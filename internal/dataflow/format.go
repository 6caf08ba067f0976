package dataflow

import (
	"fmt"
	"strings"

	"github.com/hwantajee/metricflow/internal/domain"
)

// FormatPlan renders a plan as indented text, one node per line, children
// below their parent. The output is deterministic for a given plan and is
// what the explain command prints.
func FormatPlan(p *Plan) string {
	if p == nil || p.Root == nil {
		return "<empty plan>\n"
	}
	var sb strings.Builder
	formatNode(&sb, p.Root, 0)
	return sb.String()
}

func formatNode(sb *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent)
	sb.WriteString(describeNode(n))
	sb.WriteString("\n")
	for _, child := range n.Inputs() {
		formatNode(sb, child, depth+1)
	}
}

func describeNode(n Node) string {
	switch node := n.(type) {
	case *ReadSourceNode:
		return fmt.Sprintf("ReadSource %s (%s)", node.SourceName, node.TableRef)
	case *JoinNode:
		if node.ValidityWindow != nil {
			return fmt.Sprintf("Join on %s within [%s, %s)", node.Entity,
				node.ValidityWindow.WindowStart.QualifiedName(),
				node.ValidityWindow.WindowEnd.QualifiedName())
		}
		return fmt.Sprintf("Join on %s", node.Entity)
	case *AggregateNode:
		return fmt.Sprintf("Aggregate %s by [%s]",
			formatMeasures(node.Measures), formatSpecs(node.GroupBy))
	case *FilterNode:
		return fmt.Sprintf("Filter (%s) %s",
			strings.ToLower(string(node.Phase)), formatConditions(node.Conditions))
	case *OffsetTimeNode:
		if node.OffsetWindow != nil {
			return fmt.Sprintf("OffsetTime by %s", node.OffsetWindow)
		}
		return fmt.Sprintf("OffsetTime to %s", strings.ToLower(string(node.OffsetToGrain)))
	case *CombineMetricsNode:
		return fmt.Sprintf("CombineMetrics (%d)", len(node.Metrics))
	case *SimpleMetricNode:
		return fmt.Sprintf("SimpleMetric %s <- %s", node.Metric, node.Measure)
	case *CumulativeMetricNode:
		desc := fmt.Sprintf("CumulativeMetric %s <- %s", node.Metric, node.Measure)
		switch {
		case node.Window != nil:
			desc += fmt.Sprintf(" window=%s", node.Window)
		case node.GrainToDate != "":
			desc += fmt.Sprintf(" grain_to_date=%s", strings.ToLower(string(node.GrainToDate)))
		default:
			desc += " all_time"
		}
		if node.TimeAxis != nil {
			desc += fmt.Sprintf(" over %s", node.TimeAxis.QualifiedName())
		}
		return desc
	case *DerivedMetricNode:
		return fmt.Sprintf("DerivedMetric %s = %s [%s]",
			node.Metric, node.Expr, strings.Join(node.InputNames, ", "))
	case *RatioMetricNode:
		return fmt.Sprintf("RatioMetric %s", node.Metric)
	case *ConversionMetricNode:
		desc := fmt.Sprintf("ConversionMetric %s on %s (%s)",
			node.Metric, node.Entity, node.Calculation)
		if node.Window != nil {
			desc += fmt.Sprintf(" window=%s", node.Window)
		}
		return desc
	default:
		return fmt.Sprintf("%T", n)
	}
}

func formatMeasures(measures []AggregatedMeasure) string {
	parts := make([]string, 0, len(measures))
	for _, m := range measures {
		parts = append(parts, fmt.Sprintf("%s(%s)", strings.ToLower(string(m.Agg)), m.Expr))
	}
	return strings.Join(parts, ", ")
}

func formatSpecs(specs []domain.Spec) string {
	parts := make([]string, 0, len(specs))
	for _, s := range specs {
		parts = append(parts, s.QualifiedName())
	}
	return strings.Join(parts, ", ")
}

func formatConditions(conds []FilterCondition) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		field := c.MetricName
		if c.Spec != nil {
			field = c.Spec.QualifiedName()
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", field, c.Op, c.Value))
	}
	return strings.Join(parts, " AND ")
}
